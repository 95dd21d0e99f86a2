// Package cpu implements the GBA's ARM7TDMI: the ARMv4T instruction set
// (both ARM and Thumb), the seven processor modes with their banked
// registers, CPSR/SPSR flags, exception entry, and the HALT/STOP low-power
// states.
package cpu

import (
	"gbacore/internal/dbg"
	"gbacore/internal/scheduler"
)

// Mode is one of the ARM7TDMI's seven processor modes, stored in CPSR[4:0].
type Mode uint32

const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

const (
	flagN = 1 << 31
	flagZ = 1 << 30
	flagC = 1 << 29
	flagV = 1 << 28
	flagI = 1 << 7
	flagF = 1 << 6
	flagT = 1 << 5
)

// Bus is the subset of the system bus the CPU needs for fetch/load/store.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, v uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, v uint32)
}

// Timing reports the wait-state cost of a bus access so RunCycles can
// account for it; internal/emulator's timingAdapter implements this over
// membus.Cost.
type Timing interface {
	Cost(addr uint32, width int, sequential bool) uint32
}

// IRQSource reports whether an interrupt line is currently asserted.
type IRQSource interface {
	Pending() bool
}

const (
	vectorReset         = 0x00
	vectorUndefined     = 0x04
	vectorSWI           = 0x08
	vectorPrefetchAbort = 0x0C
	vectorDataAbort     = 0x10
	vectorIRQ           = 0x18
	vectorFIQ           = 0x1C
)

// CPU holds the full ARM7TDMI register file plus the two devices it talks
// to directly: the bus for fetch/load/store, and the interrupt line.
type CPU struct {
	bus    Bus
	timing Timing
	irq    IRQSource

	r    [16]uint32
	cpsr uint32

	// banked[0] is User/System's own bank; index by bankIndex(mode).
	bankedR13  [6]uint32
	bankedR14  [6]uint32
	bankedSPSR [6]uint32

	fiqR8_12     [5]uint32 // R8-R12 while in FIQ mode
	fiqR8_12User [5]uint32 // R8-R12 for every other mode

	pipeline      [2]uint32
	pipelineValid int

	halted  bool
	stopped bool
}

func New(bus Bus, timing Timing, irq IRQSource) *CPU {
	c := &CPU{bus: bus, timing: timing, irq: irq}
	c.Reset()
	return c
}

// Reset enters Supervisor mode with IRQ/FIQ masked and ARM state, and
// vectors to the reset handler.
func (c *CPU) Reset() {
	c.r = [16]uint32{}
	c.bankedR13 = [6]uint32{}
	c.bankedR14 = [6]uint32{}
	c.bankedSPSR = [6]uint32{}
	c.fiqR8_12 = [5]uint32{}
	c.fiqR8_12User = [5]uint32{}
	c.halted = false
	c.stopped = false
	c.cpsr = uint32(ModeSupervisor) | flagI | flagF
	c.r[15] = vectorReset
	c.flushPipeline()
}

// bankIndex maps a mode to its banked-register slot. User and System share
// a bank since System is just User with access to privileged instructions.
func bankIndex(m Mode) int {
	switch m {
	case ModeFIQ:
		return 1
	case ModeIRQ:
		return 2
	case ModeSupervisor:
		return 3
	case ModeAbort:
		return 4
	case ModeUndefined:
		return 5
	default:
		return 0
	}
}

func (c *CPU) mode() Mode        { return Mode(c.cpsr & 0x1F) }
func (c *CPU) thumb() bool       { return c.cpsr&flagT != 0 }
func (c *CPU) irqDisabled() bool { return c.cpsr&flagI != 0 }

// Halt puts the CPU into HALT: fetch stops but every other subsystem (and
// the scheduler driving them) keeps running until an IRQ wakes it.
func (c *CPU) Halt() { c.halted = true }

// Stop puts the CPU into STOP, the deeper low-power state; woken the same
// way as HALT in this model.
func (c *CPU) Stop() { c.stopped = true }

func (c *CPU) Resume() { c.halted = false; c.stopped = false }

func (c *CPU) Halted() bool { return c.halted || c.stopped }

func (c *CPU) flushPipeline() { c.pipelineValid = 0 }

// RunCycles executes instructions until the cycle budget is spent, sampling
// the IRQ line at each instruction boundary. It implements
// scheduler.CPURunner.
func (c *CPU) RunCycles(budget uint64) uint64 {
	if c.Halted() {
		if !c.irq.Pending() {
			return budget
		}
		c.Resume()
	}

	var spent uint64
	for spent < budget {
		if c.irq.Pending() && !c.irqDisabled() {
			c.enterException(ModeIRQ, vectorIRQ, 4)
		}
		spent += uint64(c.step())
		if c.Halted() {
			break
		}
	}
	return spent
}

// step decodes and executes exactly one instruction, returning its cycle
// cost. The ARM and Thumb decoders live in arm_decode.go/thumb.go and
// dispatch with switch statements on the opcode bits; there are no
// precomputed decode tables.
func (c *CPU) step() uint32 {
	if c.thumb() {
		return c.stepThumb()
	}
	return c.stepARM()
}

// enterException saves CPSR to the target mode's SPSR, switches mode and
// masks interrupts as the exception requires, and vectors the PC. pcAdjust
// is how far ahead of the faulting instruction the return address must
// point: ARM's 2-stage pipeline means PC has already advanced by 8 (or 4 in
// Thumb) past the instruction that triggered the exception.
func (c *CPU) enterException(mode Mode, vector uint32, pcAdjust uint32) {
	savedCPSR := c.cpsr
	returnPC := c.r[15] - pcAdjust + 4

	c.setMode(mode)
	c.setSPSR(savedCPSR)
	c.setLR(returnPC)
	c.cpsr &^= flagT
	c.cpsr |= flagI
	if mode == ModeFIQ || vector == vectorReset {
		c.cpsr |= flagF
	}
	c.r[15] = vector
	c.flushPipeline()
	dbg.Printf("cpu: exception vector=%#x mode=%#x lr=%#x", vector, mode, returnPC)
}

func (c *CPU) setLR(v uint32) {
	c.r[14] = v
}

func (c *CPU) setSPSR(v uint32) {
	m := c.mode()
	if m == ModeUser || m == ModeSystem {
		return
	}
	c.bankedSPSR[bankIndex(m)] = v
}

func (c *CPU) spsr() uint32 {
	m := c.mode()
	if m == ModeUser || m == ModeSystem {
		return c.cpsr
	}
	return c.bankedSPSR[bankIndex(m)]
}

// setMode swaps the banked register set for the new mode, including FIQ's
// separately-banked R8-R12, then updates CPSR's mode bits.
func (c *CPU) setMode(newMode Mode) {
	oldMode := c.mode()
	if oldMode == newMode {
		return
	}

	oldIdx := bankIndex(oldMode)
	c.bankedR13[oldIdx] = c.r[13]
	c.bankedR14[oldIdx] = c.r[14]

	if oldMode == ModeFIQ {
		copy(c.fiqR8_12[:], c.r[8:13])
	} else {
		copy(c.fiqR8_12User[:], c.r[8:13])
	}

	if newMode == ModeFIQ {
		copy(c.r[8:13], c.fiqR8_12[:])
	} else {
		copy(c.r[8:13], c.fiqR8_12User[:])
	}

	newIdx := bankIndex(newMode)
	c.r[13] = c.bankedR13[newIdx]
	c.r[14] = c.bankedR14[newIdx]

	c.cpsr = (c.cpsr &^ 0x1F) | uint32(newMode)
}

// RequestIRQ wakes the CPU from HALT; the actual interrupt is taken on the
// next RunCycles iteration once irq.Pending() is observed.
func (c *CPU) RequestIRQ() {
	if c.halted {
		c.Resume()
	}
}

// Registers exposes the raw R0-R15 array for save-state and debug use; R13/
// R14 reflect whatever mode is currently active.
func (c *CPU) Registers() [16]uint32 { return c.r }

func (c *CPU) CPSR() uint32 { return c.cpsr }

// SetCPSR installs a new CPSR value wholesale (used by save-state restore
// and MSR-to-CPSR), banking registers if the mode field changed.
func (c *CPU) SetCPSR(v uint32) {
	newMode := Mode(v & 0x1F)
	if newMode != c.mode() {
		c.setMode(newMode)
	}
	c.cpsr = v
}

func (c *CPU) SetRegister(i int, v uint32) {
	c.r[i] = v
	if i == 15 {
		c.flushPipeline()
	}
}

// State is the save-state-friendly snapshot of the full register file:
// every bank, not just whichever mode is presently active.
type State struct {
	R    [16]uint32
	Cpsr uint32

	BankedR13  [6]uint32
	BankedR14  [6]uint32
	BankedSPSR [6]uint32

	FiqR8_12     [5]uint32
	FiqR8_12User [5]uint32

	Halted  bool
	Stopped bool
}

// Snapshot captures every register bank.
func (c *CPU) Snapshot() State {
	return State{
		R: c.r, Cpsr: c.cpsr,
		BankedR13: c.bankedR13, BankedR14: c.bankedR14, BankedSPSR: c.bankedSPSR,
		FiqR8_12: c.fiqR8_12, FiqR8_12User: c.fiqR8_12User,
		Halted: c.halted, Stopped: c.stopped,
	}
}

// Restore installs a previously captured register state verbatim, with no
// mode-switch banking logic: the snapshot already reflects every bank.
func (c *CPU) Restore(s State) {
	c.r, c.cpsr = s.R, s.Cpsr
	c.bankedR13, c.bankedR14, c.bankedSPSR = s.BankedR13, s.BankedR14, s.BankedSPSR
	c.fiqR8_12, c.fiqR8_12User = s.FiqR8_12, s.FiqR8_12User
	c.halted, c.stopped = s.Halted, s.Stopped
	c.flushPipeline()
}

var _ scheduler.CPURunner = (*CPU)(nil)
