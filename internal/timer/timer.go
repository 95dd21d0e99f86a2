// Package timer implements the GBA's four cascading/prescaled 16-bit
// counters, modeled as scheduler events computed from the next overflow
// time rather than ticked every cycle.
package timer

import "gbacore/internal/scheduler"

// Scheduler is the subset of scheduler.Scheduler the timers need.
type Scheduler interface {
	Cycles() uint64
	AddEvent(delay uint64, handler scheduler.HandlerID, data uint32) scheduler.Handle
	Cancel(h scheduler.Handle)
}

// Notifier is called on every overflow, whether or not that timer's own
// IRQ enable bit is set — a FIFO-driving timer (0 or 1) still needs to
// trigger its sound DMA channels even with interrupts disabled.
type Notifier interface {
	TimerOverflow(index int, raiseIRQ bool)
}

var prescalerDivisor = [4]uint32{1, 64, 256, 1024}

var overflowHandler = [4]scheduler.HandlerID{
	scheduler.HandlerTimerOverflow0,
	scheduler.HandlerTimerOverflow1,
	scheduler.HandlerTimerOverflow2,
	scheduler.HandlerTimerOverflow3,
}

type unit struct {
	reload     uint16
	counter    uint16
	control    uint8
	startCycle uint64
	handle     scheduler.Handle
	scheduled  bool
	running    bool
}

func (u *unit) enabled() bool     { return u.control&0x80 != 0 }
func (u *unit) cascade() bool     { return u.control&0x04 != 0 }
func (u *unit) irqEnabled() bool  { return u.control&0x40 != 0 }
func (u *unit) prescaler() uint32 { return prescalerDivisor[u.control&0x3] }

// Controller owns the four timer units.
type Controller struct {
	units    [4]unit
	sched    Scheduler
	notifier Notifier
}

func New(sched Scheduler, notifier Notifier) *Controller {
	return &Controller{sched: sched, notifier: notifier}
}

func (c *Controller) Reset() {
	for i := range c.units {
		c.units[i] = unit{}
	}
}

// UnitState is the save-state-friendly snapshot of one timer unit. The
// scheduler handle isn't part of it: scheduler.Restore reissues handles
// for whatever overflow events were still pending, and Restore below
// leaves Scheduled false so the next IO write or overflow re-arms
// normally rather than relying on a handle that no longer exists.
type UnitState struct {
	Reload, Counter uint16
	Control         uint8
	StartCycle      uint64
	Running         bool
}

// State is the save-state-friendly snapshot of all four timer units.
type State struct {
	Units [4]UnitState
}

// Snapshot captures every unit's state.
func (c *Controller) Snapshot() State {
	var s State
	for i := range c.units {
		u := &c.units[i]
		s.Units[i] = UnitState{
			Reload: u.reload, Counter: u.counter, Control: u.control,
			StartCycle: u.startCycle, Running: u.running,
		}
	}
	return s
}

// Restore installs a previously captured unit state.
func (c *Controller) Restore(s State) {
	for i := range c.units {
		us := s.Units[i]
		c.units[i] = unit{
			reload: us.Reload, counter: us.Counter, control: us.Control,
			startCycle: us.StartCycle, running: us.Running,
		}
	}
}

// Counter returns timer i's current 16-bit value, computing it from
// elapsed scheduler cycles for free-running timers rather than tracking a
// per-cycle counter.
func (c *Controller) Counter(i int) uint16 {
	u := &c.units[i]
	if !u.running || u.cascade() {
		return u.counter
	}
	elapsed := c.sched.Cycles() - u.startCycle
	inc := elapsed / uint64(u.prescaler())
	return uint16(uint32(u.reload) + uint32(inc))
}

func (c *Controller) start(i int) {
	u := &c.units[i]
	u.counter = u.reload
	u.startCycle = c.sched.Cycles()
	u.running = true
	if !u.cascade() {
		c.scheduleOverflow(i)
	}
}

func (c *Controller) stop(i int) {
	u := &c.units[i]
	if u.scheduled {
		c.sched.Cancel(u.handle)
		u.scheduled = false
	}
	u.running = false
}

func (c *Controller) scheduleOverflow(i int) {
	u := &c.units[i]
	span := uint64(0x10000-uint32(u.reload)) * uint64(u.prescaler())
	u.handle = c.sched.AddEvent(span, overflowHandler[i], uint32(i))
	u.scheduled = true
}

// Overflow is invoked by the emulator's dispatch table when a
// HandlerTimerOverflowN event fires. It reloads the counter, reschedules
// the next overflow, notifies FIFO/IRQ consumers, and cascades into the
// next timer if that timer is configured to count timer i's overflows.
func (c *Controller) Overflow(i int) {
	u := &c.units[i]
	u.scheduled = false
	u.counter = u.reload
	u.startCycle = c.sched.Cycles()
	if u.running && !u.cascade() {
		c.scheduleOverflow(i)
	}
	c.notifier.TimerOverflow(i, u.irqEnabled())

	if i+1 < 4 {
		next := &c.units[i+1]
		if next.running && next.cascade() {
			next.counter++
			if next.counter == 0 {
				c.Overflow(i + 1)
			}
		}
	}
}

const ioBase = 0x100

// ReadIO8/WriteIO8 cover TM0CNT_L..TM3CNT_H at 0x04000100-0x0400010F.
func (c *Controller) ReadIO8(offset uint32) uint8 {
	rel := offset - ioBase
	idx := int(rel / 4)
	if idx > 3 {
		return 0
	}
	switch rel % 4 {
	case 0:
		return uint8(c.Counter(idx))
	case 1:
		return uint8(c.Counter(idx) >> 8)
	case 2:
		return c.units[idx].control
	default:
		return 0
	}
}

func (c *Controller) WriteIO8(offset uint32, value uint8) {
	rel := offset - ioBase
	idx := int(rel / 4)
	if idx > 3 {
		return
	}
	u := &c.units[idx]
	switch rel % 4 {
	case 0:
		u.reload = u.reload&0xFF00 | uint16(value)
	case 1:
		u.reload = u.reload&0x00FF | uint16(value)<<8
	case 2:
		old := u.control
		u.control = value
		wasRunning := old&0x80 != 0
		nowRunning := value&0x80 != 0
		switch {
		case nowRunning && !wasRunning:
			c.start(idx)
		case !nowRunning && wasRunning:
			c.stop(idx)
		}
	}
}
