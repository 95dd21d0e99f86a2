// Package scheduler implements the event-driven clock that paces every GBA
// subsystem. It owns the monotonic cycle counter; the CPU is itself driven
// by the scheduler, running between events rather than the other way round.
package scheduler

import (
	"container/heap"

	"gbacore/internal/dbg"
)

// HandlerID is a closed tag identifying which subsystem a fired event
// belongs to. Events carry a tag plus a small data word rather than a
// closure: dispatch goes through a single fixed table (see Dispatcher)
// so the scheduler never holds a reference back into the subsystem that
// scheduled the event.
type HandlerID uint8

const (
	HandlerNone HandlerID = iota
	HandlerHDrawEnd
	HandlerHBlankEnd
	HandlerTimerOverflow0
	HandlerTimerOverflow1
	HandlerTimerOverflow2
	HandlerTimerOverflow3
	HandlerDmaFifoRequest
	HandlerApuLengthTick
	HandlerApuEnvelopeTick
	HandlerApuSweepTick
	HandlerApuSample
	HandlerIrqPoll
)

// Dispatcher is implemented by the top-level emulator state and is the
// single fixed dispatch table the scheduler invokes fired events through.
type Dispatcher interface {
	Dispatch(id HandlerID, data uint32, lateBy uint64)
}

// CPURunner lets the scheduler drive CPU execution for the cycles between
// events. RunCycles must never run longer than budget cycles' worth of
// instructions and returns the number of cycles actually consumed.
type CPURunner interface {
	RunCycles(budget uint64) uint64
}

// Handle identifies a previously scheduled event for cancellation.
type Handle uint64

type event struct {
	cycle   uint64
	seq     uint64
	handle  Handle
	handler HandlerID
	data    uint32
	active  bool
}

// eventHeap is a container/heap.Interface over *event, ordered by
// (cycle, seq) so ties fire in insertion order.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].cycle != h[j].cycle {
		return h[i].cycle < h[j].cycle
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler is a binary min-heap of timed events plus the monotonically
// increasing cycle counter that all subsystems key off of.
type Scheduler struct {
	cycles  uint64
	seq     uint64
	nextH   Handle
	heap    eventHeap
	byHandle map[Handle]*event
}

func New() *Scheduler {
	s := &Scheduler{byHandle: make(map[Handle]*event)}
	heap.Init(&s.heap)
	return s
}

// Cycles returns the current monotonic cycle count.
func (s *Scheduler) Cycles() uint64 { return s.cycles }

// Reset discards all pending events and zeroes the cycle counter. Called on
// emulator Reset; event handles issued before a Reset are no longer valid.
func (s *Scheduler) Reset() {
	s.cycles = 0
	s.seq = 0
	s.heap = s.heap[:0]
	s.byHandle = make(map[Handle]*event)
}

// Rebase subtracts base from the cycle counter and every pending event's
// trigger cycle. Called at frame boundaries to keep the counter from
// growing without bound across an arbitrarily long session, one of this
// scheduler over/underflow policy.
func (s *Scheduler) Rebase(base uint64) {
	if base == 0 {
		return
	}
	if base > s.cycles {
		base = s.cycles
	}
	s.cycles -= base
	for _, ev := range s.heap {
		if ev.cycle > base {
			ev.cycle -= base
		} else {
			ev.cycle = 0
		}
	}
}

// AddEvent schedules handler to fire after delay cycles (delay 0 fires on
// the very next RunFor pass through the heap). A handler that reschedules
// itself from within Dispatch at a cycle strictly less than the current
// clock is clamped to current+1 and logged, per the open question in
// component graph's sharpest edges.
func (s *Scheduler) AddEvent(delay uint64, handler HandlerID, data uint32) Handle {
	trigger := s.cycles + delay
	if trigger < s.cycles {
		dbg.Printf("scheduler: event %v rescheduled at %d < current cycle %d, clamping to %d\n",
			handler, trigger, s.cycles, s.cycles+1)
		trigger = s.cycles + 1
	}
	s.nextH++
	h := s.nextH
	ev := &event{cycle: trigger, seq: s.seq, handle: h, handler: handler, data: data, active: true}
	s.seq++
	heap.Push(&s.heap, ev)
	s.byHandle[h] = ev
	return h
}

// Cancel marks a previously scheduled event inactive. Lazily removed the
// next time it reaches the front of the heap.
func (s *Scheduler) Cancel(h Handle) {
	if ev, ok := s.byHandle[h]; ok {
		ev.active = false
		delete(s.byHandle, h)
	}
}

// NextEventIn reports cycles until the next active event, and whether one
// exists at all.
func (s *Scheduler) NextEventIn() (uint64, bool) {
	for len(s.heap) > 0 {
		top := s.heap[0]
		if !top.active {
			heap.Pop(&s.heap)
			continue
		}
		if top.cycle <= s.cycles {
			return 0, true
		}
		return top.cycle - s.cycles, true
	}
	return 0, false
}

// RunFor advances the scheduler by exactly budget cycles (when no handler
// reschedules the counter itself), running runner between pops to consume
// the non-event cycles and firing every event whose trigger cycle falls
// within [cycles, cycles+budget] through dispatcher, in non-decreasing
// trigger-cycle order with ties broken by insertion order.
func (s *Scheduler) RunFor(budget uint64, runner CPURunner, dispatcher Dispatcher) {
	target := s.cycles + budget
	for s.cycles < target {
		limit := target
		var nextActive *event
		for len(s.heap) > 0 {
			top := s.heap[0]
			if !top.active {
				heap.Pop(&s.heap)
				continue
			}
			nextActive = top
			break
		}
		if nextActive != nil && nextActive.cycle < limit {
			limit = nextActive.cycle
		}

		for s.cycles < limit {
			consumed := runner.RunCycles(limit - s.cycles)
			if consumed == 0 {
				// CPU halted with nothing left to do before the next
				// event: jump straight to it rather than spin.
				s.cycles = limit
				break
			}
			s.cycles += consumed
		}

		if nextActive != nil && s.cycles >= nextActive.cycle {
			heap.Pop(&s.heap)
			delete(s.byHandle, nextActive.handle)
			lateBy := s.cycles - nextActive.cycle
			dispatcher.Dispatch(nextActive.handler, nextActive.data, lateBy)
		}
	}
}

// EventRecord is a save-state-friendly snapshot of one pending event: just
// enough to re-schedule it after a restore, since handles issued before a
// save are meaningless afterward.
type EventRecord struct {
	Cycle   uint64
	Handler HandlerID
	Data    uint32
}

// PendingEvents returns every still-active event in no particular order.
func (s *Scheduler) PendingEvents() []EventRecord {
	records := make([]EventRecord, 0, len(s.heap))
	for _, ev := range s.heap {
		if !ev.active {
			continue
		}
		records = append(records, EventRecord{Cycle: ev.cycle, Handler: ev.handler, Data: ev.data})
	}
	return records
}

// Restore replaces the scheduler's state with cycles and the given pending
// events, issuing fresh handles for each.
func (s *Scheduler) Restore(cycles uint64, events []EventRecord) {
	s.Reset()
	s.cycles = cycles
	for _, rec := range events {
		var delay uint64
		if rec.Cycle > cycles {
			delay = rec.Cycle - cycles
		}
		s.AddEvent(delay, rec.Handler, rec.Data)
	}
}
