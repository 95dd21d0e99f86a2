package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedRunner consumes cycles one at a time, up to budget, and never more.
type fixedRunner struct{ stepCost uint64 }

func (r fixedRunner) RunCycles(budget uint64) uint64 {
	if r.stepCost > budget {
		return budget
	}
	return r.stepCost
}

type recordingDispatcher struct {
	fired []HandlerID
	order []uint64
}

func (d *recordingDispatcher) Dispatch(id HandlerID, data uint32, lateBy uint64) {
	d.fired = append(d.fired, id)
	d.order = append(d.order, uint64(data))
}

func TestRunForAdvancesExactlyByBudgetWithNoEvents(t *testing.T) {
	s := New()
	s.RunFor(1000, fixedRunner{stepCost: 7}, &recordingDispatcher{})
	require.Equal(t, uint64(1000), s.Cycles())
}

func TestEventsFireInNonDecreasingOrder(t *testing.T) {
	s := New()
	s.AddEvent(100, HandlerHDrawEnd, 1)
	s.AddEvent(50, HandlerHBlankEnd, 2)
	s.AddEvent(50, HandlerTimerOverflow0, 3) // tie with the previous, inserted after

	d := &recordingDispatcher{}
	s.RunFor(200, fixedRunner{stepCost: 1}, d)

	require.Equal(t, []HandlerID{HandlerHBlankEnd, HandlerTimerOverflow0, HandlerHDrawEnd}, d.fired)
	require.Equal(t, []uint64{2, 3, 1}, d.order)
}

func TestCancelPreventsDispatch(t *testing.T) {
	s := New()
	h := s.AddEvent(10, HandlerApuSample, 0)
	s.Cancel(h)
	s.AddEvent(20, HandlerIrqPoll, 42)

	d := &recordingDispatcher{}
	s.RunFor(30, fixedRunner{stepCost: 1}, d)

	require.Equal(t, []HandlerID{HandlerIrqPoll}, d.fired)
}

func TestRescheduleBeforeCurrentCycleClamps(t *testing.T) {
	s := New()
	s.cycles = 100
	h := s.AddEvent(^uint64(0), HandlerIrqPoll, 0) // wraps to cycle 99, before the current cycle
	require.Equal(t, uint64(101), s.byHandle[h].cycle)
}

func TestReset(t *testing.T) {
	s := New()
	s.AddEvent(5, HandlerApuSample, 0)
	s.RunFor(1, fixedRunner{stepCost: 1}, &recordingDispatcher{})
	s.Reset()
	require.Equal(t, uint64(0), s.Cycles())
	next, ok := s.NextEventIn()
	require.False(t, ok)
	require.Equal(t, uint64(0), next)
}

func TestRebaseShiftsPendingEvents(t *testing.T) {
	s := New()
	s.AddEvent(500, HandlerHDrawEnd, 0)
	s.RunFor(100, fixedRunner{stepCost: 1}, &recordingDispatcher{})
	s.Rebase(100)
	require.Equal(t, uint64(0), s.Cycles())
	next, ok := s.NextEventIn()
	require.True(t, ok)
	require.Equal(t, uint64(400), next)
}
