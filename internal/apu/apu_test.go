package apu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gbacore/internal/scheduler"
)

type stubSink struct {
	left, right []int16
}

func (s *stubSink) PushSample(l, r int16) {
	s.left = append(s.left, l)
	s.right = append(s.right, r)
}

func TestMasterDisableProducesSilence(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	a.OnSample()
	require.Equal(t, []int16{0}, sink.left)
}

func TestSquareChannelTriggerProducesNonZeroSample(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	a.WriteIO8(RegSoundCntX, 0x80) // master enable
	a.WriteIO8(RegSoundCntL, 0xFF) // full volume, all channels to both ears
	a.WriteIO8(RegSoundCntL+1, 0xFF)
	a.WriteIO8(RegSound1CntH+1, 0xF0) // max initial volume
	a.WriteIO8(RegSound1CntX, 0x00)
	a.WriteIO8(RegSound1CntX+1, 0x87) // trigger, freq high bits

	a.OnSample()
	require.NotEqual(t, int16(0), sink.left[0])
}

func TestLengthCounterDisablesChannel(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	a.WriteIO8(RegSound2CntL, 0x3F) // length = 64-63 = 1
	a.WriteIO8(RegSound2CntL+1, 0xF0)
	a.WriteIO8(RegSound2CntH+1, 0xC0) // trigger + length enable
	require.True(t, a.square2.enabled)
	a.OnLengthTick()
	require.False(t, a.square2.enabled)
}

func TestFifoPushAndDrainRoundTrip(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	for i := 0; i < 20; i++ {
		a.PushFifoA(int8(i))
	}
	require.False(t, a.DrainFifoA())
	for i := 0; i < 5; i++ {
		a.fifoA.sample()
	}
	require.True(t, a.DrainFifoA())
}

func TestWaveRAMReadWriteRoundTrip(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	a.WriteIO8(RegWaveRAM, 0xAB)
	require.Equal(t, uint8(0xAB), a.ReadIO8(RegWaveRAM))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	sched := scheduler.New()
	sink := &stubSink{}
	a := New(sched, sink)
	a.WriteIO8(RegSound1CntX, 0x00)
	a.WriteIO8(RegSound1CntX+1, 0x87)
	a.PushFifoA(5)
	a.PushFifoA(-3)

	snap := a.Snapshot()

	b := New(sched, sink)
	b.Restore(snap)

	require.Equal(t, a.square1.enabled, b.square1.enabled)
	require.Equal(t, a.square1.freq, b.square1.freq)
	require.Equal(t, a.fifoA.queue, b.fifoA.queue)
	require.Equal(t, a.soundcntX, b.soundcntX)
}
