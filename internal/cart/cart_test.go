package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeROM(gameCode string, extraMarker string) []byte {
	rom := make([]byte, 0x200)
	copy(rom[0xA0:0xAC], []byte("TESTGAME    "))
	copy(rom[0xAC:0xB0], []byte(gameCode))
	copy(rom[0xB0:0xB2], []byte("01"))
	var sum int
	for _, b := range rom[0xA0:0xBD] {
		sum += int(b)
	}
	rom[0xBD] = uint8((-(sum + 0x19)) & 0xFF)
	if extraMarker != "" {
		copy(rom[0x100:], []byte(extraMarker))
	}
	return rom
}

func TestParseHeaderChecksumValid(t *testing.T) {
	rom := makeROM("ABCD", "")
	h, err := ParseHeader(rom)
	require.NoError(t, err)
	require.Equal(t, "ABCD", h.GameCode)
	require.True(t, h.ChecksumValid())
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	require.Error(t, err)
}

func TestNewUsesGameDBWhenPresent(t *testing.T) {
	rom := makeROM("AXVE", "")
	c, err := New(rom)
	require.NoError(t, err)
	require.Equal(t, BackupFlash128K, c.Backup.Type)
	require.True(t, c.RTC.Present)
}

func TestNewFallsBackToMarkerScan(t *testing.T) {
	rom := makeROM("ZZZZ", "SRAM_V110")
	c, err := New(rom)
	require.NoError(t, err)
	require.Equal(t, BackupSRAM32K, c.Backup.Type)
}

func TestFlashProgramAndChipErase(t *testing.T) {
	f := newFlash(BackupFlash64K.Size())
	f.write(0x5555, 0xAA)
	f.write(0x2AAA, 0x55)
	f.write(0x5555, 0xA0) // program command
	f.write(0x1234, 0x3C)
	require.Equal(t, uint8(0x3C), f.read(0x1234))

	f.write(0x5555, 0xAA)
	f.write(0x2AAA, 0x55)
	f.write(0x5555, 0x80)
	f.write(0x5555, 0xAA)
	f.write(0x2AAA, 0x55)
	f.write(0x5555, 0x10) // chip erase
	require.Equal(t, uint8(0xFF), f.read(0x1234))
}

func TestEepromWriteThenRead(t *testing.T) {
	e := NewEeprom(BackupEEPROM512)
	// write command (10), 6-bit address = 0, then 64 data bits, then stop
	feed(e, 1, 0)
	for i := 0; i < 6; i++ {
		feed(e, 0)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}
	for _, b := range want {
		for bit := 7; bit >= 0; bit-- {
			feed(e, (b>>uint(bit))&1)
		}
	}
	feed(e, 0) // stop bit

	require.Equal(t, want, e.data[0:8])

	// read command (11), address 0
	e2 := e
	feed(e2, 1, 1)
	for i := 0; i < 6; i++ {
		feed(e2, 0)
	}
	feed(e2, 0) // stop bit triggers dummy phase

	for i := 0; i < 4; i++ {
		e2.SerialOut() // dummy preamble bits
	}
	var got []byte
	var cur byte
	for i := 0; i < 64; i++ {
		bit := e2.SerialOut()
		cur = cur<<1 | bit
		if i%8 == 7 {
			got = append(got, cur)
			cur = 0
		}
	}
	require.Equal(t, want, got)
}

func feed(e *Eeprom, bits ...uint8) {
	for _, b := range bits {
		e.SerialIn(b)
	}
}
