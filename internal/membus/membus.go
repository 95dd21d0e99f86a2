// Package membus implements the GBA's 32-bit memory map: address decoding,
// region mirroring, wait-state accounting, and the little-endian,
// rotate-on-unaligned-read semantics of the ARM7TDMI bus.
//
// A single fixed-latency Read8/Write8 pair per region isn't enough on its
// own; this adds the sequential/non-sequential wait-state costing and
// open-bus fallback the rest of the system relies on, and delegates the
// I/O register block (0x04000000-0x040003FF) to whatever component owns
// it instead of baking PPU/DMA/timer knowledge directly into the bus.
package membus

import "gbacore/internal/dbg"

// Region base addresses and sizes, per the GBA memory map.
const (
	BIOSStart = 0x00000000
	BIOSSize  = 16 * 1024

	EWRAMStart = 0x02000000
	EWRAMSize  = 256 * 1024

	IWRAMStart = 0x03000000
	IWRAMSize  = 32 * 1024

	IOStart = 0x04000000
	IOSize  = 0x400

	PaletteStart = 0x05000000
	PaletteSize  = 1 * 1024

	VRAMStart = 0x06000000
	VRAMSize  = 96 * 1024

	OAMStart = 0x07000000
	OAMSize  = 1 * 1024

	ROMWS0Start = 0x08000000
	ROMWS1Start = 0x0A000000
	ROMWS2Start = 0x0C000000
	ROMMirrorSz = 0x02000000
	ROMMaxSize  = 32 * 1024 * 1024

	BackupStart = 0x0E000000
	BackupMirrorSz = 0x02000000
)

// AccessKind distinguishes sequential bus cycles (the address continues the
// previous access) from non-sequential ones (a new access stream, e.g.
// after a branch), since the GBA charges different wait states for each.
type AccessKind uint8

const (
	NonSequential AccessKind = iota
	Sequential
)

// IODevice is implemented by whatever owns the 0x04000000 I/O register
// block (the top-level emulator, fanning out to PPU/APU/DMA/timers/IRQ/
// joypad). Keeping it as an interface here is what breaks the cyclic
// reference between the bus and every other subsystem: the bus never
// imports ppu/apu/dma/timer.
type IODevice interface {
	ReadIO8(addr uint32) uint8
	WriteIO8(addr uint32, value uint8)
}

// Cartridge is implemented by internal/cart.Cartridge.
type Cartridge interface {
	ROMSize() uint32
	ReadROM8(addr uint32) uint8
	ReadBackup8(addr uint32) uint8
	WriteBackup8(addr uint32, value uint8)
	BackupSize() uint32
}

// Bus owns the on-chip/on-board RAM regions and routes everything else to
// the cartridge or the I/O delegate.
type Bus struct {
	BIOS    []byte
	EWRAM   []byte
	IWRAM   []byte
	Palette []byte
	VRAM    []byte
	OAM     []byte

	io   IODevice
	cart Cartridge

	// openBus is the last successfully fetched value, returned for reads
	// that land outside any mapped region.
	openBus uint32
	// pcInBIOS lets BIOS reads made while the CPU's PC is itself inside
	// BIOS see the real ROM; everyone else sees the last value on the bus
	// (the GBA does not let code outside BIOS read it back).
	pcInBIOS func() bool
}

// New constructs a Bus. pcInBIOS reports whether the CPU's program counter
// currently lies in the BIOS region; the bus consults it on every BIOS read
// to implement the real-hardware BIOS read-protection quirk.
func New(io IODevice, cart Cartridge, pcInBIOS func() bool) *Bus {
	return &Bus{
		BIOS:     make([]byte, BIOSSize),
		EWRAM:    make([]byte, EWRAMSize),
		IWRAM:    make([]byte, IWRAMSize),
		Palette:  make([]byte, PaletteSize),
		VRAM:     make([]byte, VRAMSize),
		OAM:      make([]byte, OAMSize),
		io:       io,
		cart:     cart,
		pcInBIOS: pcInBIOS,
	}
}

// LoadBIOS installs a 16 KiB BIOS image.
func (b *Bus) LoadBIOS(data []byte) {
	copy(b.BIOS, data)
}

// SetCartridge swaps the cartridge a LoadRom command installs. internal/
// emulator starts the bus with a ROM-less stub so it can construct the rest
// of the wiring before a ROM is available, then calls this once one loads.
func (b *Bus) SetCartridge(cart Cartridge) {
	b.cart = cart
}

// State is the save-state-friendly snapshot of working RAM, VRAM, palette,
// and OAM. BIOS and cartridge ROM are not included: both are read-only and
// reloaded by the LoadBios/LoadRom commands rather than round-tripped
// through a save.
type State struct {
	EWRAM   []byte
	IWRAM   []byte
	Palette []byte
	VRAM    []byte
	OAM     []byte
	OpenBus uint32
}

// Snapshot captures the mutable memory regions.
func (b *Bus) Snapshot() State {
	return State{
		EWRAM:   append([]byte(nil), b.EWRAM...),
		IWRAM:   append([]byte(nil), b.IWRAM...),
		Palette: append([]byte(nil), b.Palette...),
		VRAM:    append([]byte(nil), b.VRAM...),
		OAM:     append([]byte(nil), b.OAM...),
		OpenBus: b.openBus,
	}
}

// Restore installs a previously captured memory snapshot.
func (b *Bus) Restore(s State) {
	copy(b.EWRAM, s.EWRAM)
	copy(b.IWRAM, s.IWRAM)
	copy(b.Palette, s.Palette)
	copy(b.VRAM, s.VRAM)
	copy(b.OAM, s.OAM)
	b.openBus = s.OpenBus
}

// Reset clears RAM (not BIOS/ROM) to zero, as on a hardware reset.
func (b *Bus) Reset() {
	clear(b.EWRAM)
	clear(b.IWRAM)
	clear(b.Palette)
	clear(b.VRAM)
	clear(b.OAM)
	b.openBus = 0
}

func clear(s []byte) {
	for i := range s {
		s[i] = 0
	}
}

// Read8 reads a single byte, classifying addr into a region per the GBA
// memory map and mirroring the offset within it.
func (b *Bus) Read8(addr uint32) uint8 {
	switch {
	case addr < BIOSStart+BIOSSize:
		if b.pcInBIOS == nil || b.pcInBIOS() {
			v := b.BIOS[addr-BIOSStart]
			b.openBus = uint32(v)
			return v
		}
		return uint8(b.openBus)
	case addr >= EWRAMStart && addr < EWRAMStart+0x01000000:
		v := b.EWRAM[(addr-EWRAMStart)%EWRAMSize]
		b.openBus = uint32(v)
		return v
	case addr >= IWRAMStart && addr < IWRAMStart+0x01000000:
		v := b.IWRAM[(addr-IWRAMStart)%IWRAMSize]
		b.openBus = uint32(v)
		return v
	case addr >= IOStart && addr < IOStart+0x01000000:
		off := (addr - IOStart) % 0x10000
		if off >= IOSize {
			return uint8(b.openBus)
		}
		v := b.io.ReadIO8(off)
		b.openBus = uint32(v)
		return v
	case addr >= PaletteStart && addr < PaletteStart+0x01000000:
		v := b.Palette[(addr-PaletteStart)%PaletteSize]
		b.openBus = uint32(v)
		return v
	case addr >= VRAMStart && addr < VRAMStart+0x01000000:
		v := b.VRAM[vramMirror(addr-VRAMStart)]
		b.openBus = uint32(v)
		return v
	case addr >= OAMStart && addr < OAMStart+0x01000000:
		v := b.OAM[(addr-OAMStart)%OAMSize]
		b.openBus = uint32(v)
		return v
	case addr >= ROMWS0Start && addr < ROMWS0Start+3*ROMMirrorSz:
		off := (addr - ROMWS0Start) % ROMMirrorSz
		if off >= b.cart.ROMSize() {
			return uint8(b.openBus)
		}
		v := b.cart.ReadROM8(off)
		b.openBus = uint32(v)
		return v
	case addr >= BackupStart && addr < BackupStart+BackupMirrorSz:
		off := addr - BackupStart
		if b.cart.BackupSize() == 0 || off >= b.cart.BackupSize() {
			return uint8(b.openBus)
		}
		v := b.cart.ReadBackup8(off)
		b.openBus = uint32(v)
		return v
	default:
		dbg.Printf("membus: open-bus read at %08X\n", addr)
		return uint8(b.openBus)
	}
}

// vramMirror folds the 96 KiB VRAM region's address space (which the GBA
// addresses over a nominal 128 KiB window) down into the backing array.
func vramMirror(off uint32) uint32 {
	off %= 0x20000
	if off >= VRAMSize {
		off -= 0x8000
	}
	return off
}

// Write8 writes a byte, silently dropping writes to read-only regions
// (BIOS, ROM).
func (b *Bus) Write8(addr uint32, value uint8) {
	switch {
	case addr < BIOSStart+BIOSSize:
		// BIOS is read-only.
	case addr >= EWRAMStart && addr < EWRAMStart+0x01000000:
		b.EWRAM[(addr-EWRAMStart)%EWRAMSize] = value
	case addr >= IWRAMStart && addr < IWRAMStart+0x01000000:
		b.IWRAM[(addr-IWRAMStart)%IWRAMSize] = value
	case addr >= IOStart && addr < IOStart+0x01000000:
		off := (addr - IOStart) % 0x10000
		if off < IOSize {
			b.io.WriteIO8(off, value)
		}
	case addr >= PaletteStart && addr < PaletteStart+0x01000000:
		// A lone byte write to palette RAM writes the same byte into both
		// halves of the 16-bit entry it falls within, per hardware rules.
		base := (addr - PaletteStart) % PaletteSize
		even := base &^ 1
		b.Palette[even] = value
		b.Palette[even+1] = value
	case addr >= VRAMStart && addr < VRAMStart+0x01000000:
		off := vramMirror(addr - VRAMStart)
		even := off &^ 1
		b.VRAM[even] = value
		if int(even+1) < len(b.VRAM) {
			b.VRAM[even+1] = value
		}
	case addr >= OAMStart && addr < OAMStart+0x01000000:
		// Byte writes to OAM are ignored entirely on real hardware.
	case addr >= ROMWS0Start && addr < ROMWS0Start+3*ROMMirrorSz:
		// ROM is read-only (flash/SRAM command writes go through the
		// 0x0E000000 backup window, not the ROM mirrors).
	case addr >= BackupStart && addr < BackupStart+BackupMirrorSz:
		off := addr - BackupStart
		if b.cart.BackupSize() != 0 && off < b.cart.BackupSize() {
			b.cart.WriteBackup8(off, value)
		}
	default:
		dbg.Printf("membus: open-bus write %02X at %08X\n", value, addr)
	}
}

// Read16 reads a little-endian halfword. An odd address is aligned down
// and the resulting halfword is rotated right by 8 bits, per the
// ARM7TDMI's documented unaligned-read behavior.
func (b *Bus) Read16(addr uint32) uint16 {
	aligned := addr &^ 1
	v := uint16(b.Read8(aligned)) | uint16(b.Read8(aligned+1))<<8
	if addr&1 != 0 {
		v = v>>8 | v<<8
	}
	return v
}

// Write16 aligns addr down before writing; unaligned writes are silently
// realigned rather than rotated.
func (b *Bus) Write16(addr uint32, value uint16) {
	aligned := addr &^ 1
	b.Write8(aligned, uint8(value))
	b.Write8(aligned+1, uint8(value>>8))
}

// Read32 reads a little-endian word. A non-word-aligned address is aligned
// down and the resulting word rotated right by (addr&3)*8 bits.
func (b *Bus) Read32(addr uint32) uint32 {
	aligned := addr &^ 3
	v := uint32(b.Read8(aligned)) |
		uint32(b.Read8(aligned+1))<<8 |
		uint32(b.Read8(aligned+2))<<16 |
		uint32(b.Read8(aligned+3))<<24
	rot := (addr & 3) * 8
	if rot != 0 {
		v = v>>rot | v<<(32-rot)
	}
	return v
}

// Write32 aligns addr down before writing.
func (b *Bus) Write32(addr uint32, value uint32) {
	aligned := addr &^ 3
	b.Write8(aligned, uint8(value))
	b.Write8(aligned+1, uint8(value>>8))
	b.Write8(aligned+2, uint8(value>>16))
	b.Write8(aligned+3, uint8(value>>24))
}

// OpenBus returns the last value observed on the bus, used by the CPU's
// prefetch-abort and BIOS-protection paths.
func (b *Bus) OpenBus() uint32 { return b.openBus }
