package cart

// flashState tracks the Macronix/Sanyo-style command protocol real GBA
// Flash chips expose: a two-byte unlock sequence (0xAA at 0x5555, 0x55 at
// 0x2AAA) followed by a command byte, used for chip ID, sector erase, chip
// erase, byte programming, and (128 KiB parts only) bank switching.
type flashState struct {
	data []byte
	bank uint32

	step        int    // how far through the AA/55 unlock sequence we are
	idMode      bool
	eraseArmed  bool
	programNext bool
}

const (
	flashUnlockAddr1 = 0x5555
	flashUnlockAddr2 = 0x2AAA
)

func newFlash(size uint32) *flashState {
	f := &flashState{data: make([]byte, size)}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *flashState) read(addr uint32) uint8 {
	if f.idMode && addr < 2 {
		// Sanyo manufacturer/device ID for a 128 KiB part, Macronix ID
		// otherwise; either is enough to satisfy games that merely probe
		// for Flash presence before writing.
		if len(f.data) > 64*1024 {
			return [2]uint8{0x62, 0x13}[addr]
		}
		return [2]uint8{0xC2, 0x1C}[addr]
	}
	off := f.bank*0x10000 + addr
	if off >= uint32(len(f.data)) {
		return 0xFF
	}
	return f.data[off]
}

func (f *flashState) write(addr uint32, value uint8) {
	if f.programNext {
		f.programNext = false
		off := f.bank*0x10000 + addr
		if off < uint32(len(f.data)) {
			f.data[off] &= value // Flash programming can only clear bits.
		}
		f.step = 0
		return
	}

	switch f.step {
	case 0:
		if addr == flashUnlockAddr1 && value == 0xAA {
			f.step = 1
		}
	case 1:
		if addr == flashUnlockAddr2 && value == 0x55 {
			f.step = 2
		} else {
			f.step = 0
		}
	case 2:
		switch {
		case addr == flashUnlockAddr1 && value == 0x90:
			f.idMode = true
			f.step = 0
		case addr == flashUnlockAddr1 && value == 0xF0:
			f.idMode = false
			f.step = 0
		case addr == flashUnlockAddr1 && value == 0x80:
			f.eraseArmed = true
			f.step = 0
		case addr == flashUnlockAddr1 && value == 0xA0:
			f.programNext = true
			f.step = 0
		case addr == 0x0000 && value == 0xB0:
			f.bank = 0
			f.step = 0
		case addr == 0x0000 && value == 0xB1:
			f.bank = 1
			f.step = 0
		default:
			if f.eraseArmed && value == 0x30 { // sector erase
				sector := (addr &^ 0x0FFF) + f.bank*0x10000
				for i := uint32(0); i < 0x1000 && sector+i < uint32(len(f.data)); i++ {
					f.data[sector+i] = 0xFF
				}
				f.eraseArmed = false
			} else if f.eraseArmed && addr == flashUnlockAddr1 && value == 0x10 { // chip erase
				for i := range f.data {
					f.data[i] = 0xFF
				}
				f.eraseArmed = false
			}
			f.step = 0
		}
	}
}

// Backup is the cartridge's save storage: plain SRAM, a command-driven
// Flash chip, or (via the EEPROM field, accessed through the DMA serial
// protocol rather than byte addressing) EEPROM.
type Backup struct {
	Type   BackupType
	Source DetectSource
	Dirty  bool

	sram  []byte
	flash *flashState
	eep   *Eeprom
}

// DetectSource records whether the backup type came from the built-in
// database/heuristic or was set explicitly by a front-end command.
type DetectSource int

const (
	DetectAuto DetectSource = iota
	DetectManual
)

// NewBackup constructs backup storage of the given type.
func NewBackup(t BackupType, source DetectSource) *Backup {
	b := &Backup{Type: t, Source: source}
	switch t {
	case BackupSRAM32K:
		b.sram = make([]byte, t.Size())
	case BackupFlash64K, BackupFlash128K:
		b.flash = newFlash(t.Size())
	case BackupEEPROM512, BackupEEPROM8K:
		b.eep = NewEeprom(t)
	}
	return b
}

// Size is the byte-addressable window size exposed at 0x0E000000. EEPROM
// returns 0: it is never byte-addressed there on real hardware, only
// through the DMA-driven serial protocol (see Eeprom).
func (b *Backup) Size() uint32 {
	switch b.Type {
	case BackupSRAM32K:
		return uint32(len(b.sram))
	case BackupFlash64K, BackupFlash128K:
		return 0x10000 // a single bank window; bank-switched via command 0xB0/0xB1
	default:
		return 0
	}
}

func (b *Backup) Read8(addr uint32) uint8 {
	switch b.Type {
	case BackupSRAM32K:
		return b.sram[addr]
	case BackupFlash64K, BackupFlash128K:
		return b.flash.read(addr)
	default:
		return 0xFF
	}
}

func (b *Backup) Write8(addr uint32, value uint8) {
	b.Dirty = true
	switch b.Type {
	case BackupSRAM32K:
		b.sram[addr] = value
	case BackupFlash64K, BackupFlash128K:
		b.flash.write(addr, value)
	}
}

// Eeprom returns the EEPROM serial unit, or nil if this backup isn't one.
func (b *Backup) Eeprom() *Eeprom { return b.eep }

// Raw returns the backing bytes for save-file export/import (the
// "backup save file" contract) and quicksave snapshotting.
func (b *Backup) Raw() []byte {
	switch b.Type {
	case BackupSRAM32K:
		return b.sram
	case BackupFlash64K, BackupFlash128K:
		return b.flash.data
	case BackupEEPROM512, BackupEEPROM8K:
		return b.eep.data
	default:
		return nil
	}
}

// LoadRaw installs previously saved bytes (e.g. from a .sav file).
func (b *Backup) LoadRaw(data []byte) {
	copy(b.Raw(), data)
}
