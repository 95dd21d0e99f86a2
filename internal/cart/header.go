// Package cart models the game cartridge: its ROM header, backup storage
// (SRAM/Flash/EEPROM), and optional real-time clock. Generalizes a bare
// ROM-plus-fixed-1-KiB-SRAM model to the full set of backup chips in use.
package cart

import "fmt"

// HeaderSize is the length of the fixed GBA cartridge header.
const HeaderSize = 0xC0

// Header is the parsed content of a GBA ROM's fixed header block.
type Header struct {
	Title             string
	GameCode          string
	MakerCode         string
	Version           uint8
	Checksum          uint8
	ComputedChecksum  uint8
}

// ChecksumValid reports whether the header's stored complement checksum
// matches the one computed from its own bytes.
func (h Header) ChecksumValid() bool {
	return h.Checksum == h.ComputedChecksum
}

// ParseHeader reads the fixed header out of a ROM image. It only rejects
// images shorter than the header itself; the 32 MiB upper bound is
// enforced by cart.New.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < HeaderSize {
		return Header{}, fmt.Errorf("cart: ROM too small for header (%d bytes, need %d)", len(rom), HeaderSize)
	}

	title := trimPadded(rom[0xA0:0xAC])
	gameCode := trimPadded(rom[0xAC:0xB0])
	makerCode := trimPadded(rom[0xB0:0xB2])
	version := rom[0xBC]
	checksum := rom[0xBD]

	var sum int
	for _, b := range rom[0xA0:0xBD] {
		sum += int(b)
	}
	computed := uint8((-(sum + 0x19)) & 0xFF)

	return Header{
		Title:            title,
		GameCode:         gameCode,
		MakerCode:        makerCode,
		Version:          version,
		Checksum:         checksum,
		ComputedChecksum: computed,
	}, nil
}

func trimPadded(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}
