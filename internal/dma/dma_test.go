package dma

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gbacore/internal/irq"
	"gbacore/internal/membus"
)

type stubIO struct{ regs [membus.IOSize]uint8 }

func (s *stubIO) ReadIO8(addr uint32) uint8         { return s.regs[addr] }
func (s *stubIO) WriteIO8(addr uint32, value uint8) { s.regs[addr] = value }

type stubCart struct {
	rom    []byte
	backup []byte
}

func (c *stubCart) ROMSize() uint32         { return uint32(len(c.rom)) }
func (c *stubCart) ReadROM8(a uint32) uint8 { return c.rom[a] }
func (c *stubCart) BackupSize() uint32      { return uint32(len(c.backup)) }
func (c *stubCart) ReadBackup8(a uint32) uint8     { return c.backup[a] }
func (c *stubCart) WriteBackup8(a uint32, v uint8) { c.backup[a] = v }

func newTestBus() *membus.Bus {
	return membus.New(&stubIO{}, &stubCart{rom: make([]byte, 0x1000), backup: make([]byte, 0x8000)}, func() bool { return true })
}

func writeReg32(c *Controller, reg uint32, v uint32) {
	c.WriteIO8(reg, uint8(v))
	c.WriteIO8(reg+1, uint8(v>>8))
	c.WriteIO8(reg+2, uint8(v>>16))
	c.WriteIO8(reg+3, uint8(v>>24))
}

func writeReg16(c *Controller, reg uint32, v uint16) {
	c.WriteIO8(reg, uint8(v))
	c.WriteIO8(reg+1, uint8(v>>8))
}

func TestImmediateTransferMovesWords(t *testing.T) {
	bus := newTestBus()
	bus.Write32(membus.EWRAMStart, 0xCAFEBABE)
	irqc := irq.New()
	c := New(bus, irqc)

	writeReg32(c, chanBase(0), membus.EWRAMStart)        // SAD
	writeReg32(c, chanBase(0)+4, membus.EWRAMStart+0x100) // DAD
	writeReg16(c, chanBase(0)+8, 1)                       // count
	writeReg16(c, chanBase(0)+10, 0x8400)                 // enable, 32-bit unit, immediate

	require.Equal(t, uint32(0xCAFEBABE), bus.Read32(membus.EWRAMStart+0x100))
}

func TestRepeatVBlankTransferReloadsDestination(t *testing.T) {
	bus := newTestBus()
	bus.Write16(membus.EWRAMStart, 0x1234)
	irqc := irq.New()
	c := New(bus, irqc)

	writeReg32(c, chanBase(1), membus.EWRAMStart)
	writeReg32(c, chanBase(1)+4, membus.EWRAMStart+0x200)
	writeReg16(c, chanBase(1)+8, 1)
	// enable, repeat, dest increment+reload (ctrl=3 -> bits 5-6), timing=VBlank(1<<12)
	writeReg16(c, chanBase(1)+10, 0x8000|0x0200|(3<<5)|(1<<12))

	c.NotifyVBlank()
	require.Equal(t, uint16(0x1234), bus.Read16(membus.EWRAMStart+0x200))

	bus.Write16(membus.EWRAMStart+2, 0x5678) // source is not reloaded on repeat; only the destination is
	c.NotifyVBlank()
	require.Equal(t, uint16(0x5678), bus.Read16(membus.EWRAMStart+0x200))
}

func TestNonRepeatTransferDisablesItself(t *testing.T) {
	bus := newTestBus()
	irqc := irq.New()
	c := New(bus, irqc)

	writeReg32(c, chanBase(2), membus.EWRAMStart)
	writeReg32(c, chanBase(2)+4, membus.EWRAMStart+0x10)
	writeReg16(c, chanBase(2)+8, 1)
	writeReg16(c, chanBase(2)+10, 0x8000) // enable, immediate, no repeat

	require.False(t, c.ch[2].enabled())
	require.False(t, c.ch[2].running)
}

func TestIrqEnabledRequestsOnCompletion(t *testing.T) {
	bus := newTestBus()
	irqc := irq.New()
	c := New(bus, irqc)

	writeReg32(c, chanBase(0), membus.EWRAMStart)
	writeReg32(c, chanBase(0)+4, membus.EWRAMStart+0x10)
	writeReg16(c, chanBase(0)+8, 1)
	writeReg16(c, chanBase(0)+10, 0x8000|0x4000) // enable + irq enable, immediate

	require.Equal(t, uint16(1<<irq.Dma0), irqc.IF)
}

type stubEeprom struct {
	in  []uint8
	out []uint8
	pos int
}

func (s *stubEeprom) SerialIn(bit uint8) { s.in = append(s.in, bit) }
func (s *stubEeprom) SerialOut() uint8 {
	if s.pos >= len(s.out) {
		return 0
	}
	v := s.out[s.pos]
	s.pos++
	return v
}

func TestChannel3WritesToEepromWindowDriveSerialIn(t *testing.T) {
	bus := newTestBus()
	bus.Write16(membus.EWRAMStart, 1)
	bus.Write16(membus.EWRAMStart+2, 0)
	irqc := irq.New()
	c := New(bus, irqc)
	ee := &stubEeprom{}
	c.SetEeprom(ee)

	writeReg32(c, chanBase(3), membus.EWRAMStart)
	writeReg32(c, chanBase(3)+4, eepromWindow)
	writeReg16(c, chanBase(3)+8, 2)
	writeReg16(c, chanBase(3)+10, 0x8000) // enable, immediate

	require.Equal(t, []uint8{1, 0}, ee.in)
}

func TestTimerOverflowTriggersFifoRefillOnMatchingChannel(t *testing.T) {
	bus := newTestBus()
	bus.Write32(membus.EWRAMStart, 0x11111111)
	bus.Write32(membus.EWRAMStart+4, 0x22222222)
	bus.Write32(membus.EWRAMStart+8, 0x33333333)
	bus.Write32(membus.EWRAMStart+12, 0x44444444)
	irqc := irq.New()
	c := New(bus, irqc)

	writeReg32(c, chanBase(1), membus.EWRAMStart)
	writeReg32(c, chanBase(1)+4, membus.EWRAMStart+0x100)
	writeReg16(c, chanBase(1)+8, 4)
	// enable, repeat, special timing (3<<12), fifo timer select bit (0x0800) -> timer 1
	writeReg16(c, chanBase(1)+10, 0x8000|0x0200|(3<<12)|0x0800)

	c.TimerOverflow(0, false) // wrong timer, no effect
	require.Equal(t, uint32(0), bus.Read32(membus.EWRAMStart+0x100))

	c.TimerOverflow(1, false)
	// all four words land on the same fixed FIFO address; the last write wins
	require.Equal(t, uint32(0x44444444), bus.Read32(membus.EWRAMStart+0x100))
}
