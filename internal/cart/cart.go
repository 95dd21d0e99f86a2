package cart

import "fmt"

// Cartridge holds the ROM image plus whatever backup storage and RTC the
// game database (or a manual override command) resolved for it. It
// satisfies membus.Cartridge.
type Cartridge struct {
	ROM    []byte
	Header Header
	Backup *Backup
	RTC    *RTC
}

// New parses rom's header, consults the game database (falling back to a
// backup-ID string scan), and builds the matching backup
// storage and RTC.
func New(rom []byte) (*Cartridge, error) {
	if len(rom) < 192 || len(rom) > 32*1024*1024 {
		return nil, fmt.Errorf("cart: ROM size %d out of the 192B-32MiB range", len(rom))
	}
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	backupType := BackupNone
	hasRTC := false
	if info, ok := Lookup(h.GameCode); ok {
		backupType = info.Backup
		hasRTC = info.HasRTC
	} else {
		backupType = DetectFromROM(rom)
	}

	c := &Cartridge{
		ROM:    rom,
		Header: h,
		Backup: NewBackup(backupType, DetectAuto),
		RTC:    NewRTC(hasRTC),
	}
	return c, nil
}

// SetBackupType overrides the auto-detected backup type.
// the run loop ignores this command once emulation has started.
func (c *Cartridge) SetBackupType(t BackupType) {
	c.Backup = NewBackup(t, DetectManual)
}

// SetRTC overrides RTC presence, subject to the same started-emulation
// restriction as SetBackupType.
func (c *Cartridge) SetRTC(present bool) {
	c.RTC.Present = present
}

// ROMSize implements membus.Cartridge.
func (c *Cartridge) ROMSize() uint32 { return uint32(len(c.ROM)) }

// ReadROM8 implements membus.Cartridge.
func (c *Cartridge) ReadROM8(addr uint32) uint8 {
	if int(addr) >= len(c.ROM) {
		return uint8(addr >> 1) // open-bus pattern: GBA ROM mirrors the address itself past its end
	}
	return c.ROM[addr]
}

// BackupSize implements membus.Cartridge.
func (c *Cartridge) BackupSize() uint32 { return c.Backup.Size() }

// ReadBackup8 implements membus.Cartridge.
func (c *Cartridge) ReadBackup8(addr uint32) uint8 { return c.Backup.Read8(addr) }

// WriteBackup8 implements membus.Cartridge.
func (c *Cartridge) WriteBackup8(addr uint32, value uint8) { c.Backup.Write8(addr, value) }
