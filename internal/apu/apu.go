// Package apu implements the GBA's four PSG channels and two DMA-fed FIFO
// PCM channels, mixed into a stereo sample stream.
package apu

import "gbacore/internal/scheduler"

const sampleRate = 32768

// Scheduler is the subset the APU needs to pace its own periodic events.
type Scheduler interface {
	AddEvent(delay uint64, handler scheduler.HandlerID, data uint32) scheduler.Handle
}

// Sink receives finished stereo sample pairs; the caller of emulator.New
// supplies it (cmd/gbacore passes the ring buffer its audio callback reads).
type Sink interface {
	PushSample(left, right int16)
}

const cyclesPerSample = 16777216 / sampleRate

// APU owns the four PSG channels, the two FIFO channels, and the mixer
// control registers (SOUNDCNT_L/H/X, SOUNDBIAS).
type APU struct {
	sched Scheduler
	sink  Sink

	square1 squareChannel
	square2 squareChannel
	wave    waveChannel
	noise   noiseChannel
	fifoA   fifoChannel
	fifoB   fifoChannel

	soundcntL uint16 // per-channel volume/enable + PSG mixing
	soundcntH uint16 // FIFO volume/enable/timer select/reset
	soundcntX uint16 // master enable + channel-on status (read-only bits 0-3)
	soundbias uint16

	masterEnabled bool
}

func New(sched Scheduler, sink Sink) *APU {
	a := &APU{sched: sched, sink: sink}
	return a
}

func (a *APU) Reset() {
	*a = APU{sched: a.sched, sink: a.sink}
}

// Start arms the periodic frame-sequencer events (length/envelope/sweep)
// and the sample-generation event.
func (a *APU) Start() {
	a.sched.AddEvent(cyclesPerSample, scheduler.HandlerApuSample, 0)
	a.sched.AddEvent(65536, scheduler.HandlerApuLengthTick, 0)    // 256 Hz
	a.sched.AddEvent(262144, scheduler.HandlerApuEnvelopeTick, 0) // 64 Hz
	a.sched.AddEvent(131072, scheduler.HandlerApuSweepTick, 0)    // 128 Hz
}

// OnLengthTick clocks every channel's length counter at 256 Hz.
func (a *APU) OnLengthTick() {
	a.square1.clockLength()
	a.square2.clockLength()
	a.wave.clockLength()
	a.noise.clockLength()
	a.sched.AddEvent(65536, scheduler.HandlerApuLengthTick, 0)
}

// OnEnvelopeTick clocks square/noise envelope units at 64 Hz.
func (a *APU) OnEnvelopeTick() {
	a.square1.clockEnvelope()
	a.square2.clockEnvelope()
	a.noise.clockEnvelope()
	a.sched.AddEvent(262144, scheduler.HandlerApuEnvelopeTick, 0)
}

// OnSweepTick clocks square1's frequency sweep unit at 128 Hz.
func (a *APU) OnSweepTick() {
	a.square1.clockSweep()
	a.sched.AddEvent(131072, scheduler.HandlerApuSweepTick, 0)
}

// OnSample generates and mixes one output sample pair at sampleRate.
func (a *APU) OnSample() {
	if a.masterEnabled {
		s1 := a.square1.sample()
		s2 := a.square2.sample()
		w := a.wave.sample()
		n := a.noise.sample()

		psgL, psgR := a.mixPSG(s1, s2, w, n)
		fa := a.fifoA.sample()
		fb := a.fifoB.sample()
		fL, fR := a.mixFIFO(fa, fb)

		left := clampSample(int32(psgL) + int32(fL))
		right := clampSample(int32(psgR) + int32(fR))
		a.sink.PushSample(left, right)
	} else {
		a.sink.PushSample(0, 0)
	}
	a.sched.AddEvent(cyclesPerSample, scheduler.HandlerApuSample, 0)
}

func (a *APU) mixPSG(s1, s2, w, n int16) (int16, int16) {
	enableL := a.soundcntL >> 12 & 0xF
	enableR := a.soundcntL >> 8 & 0xF
	volL := int32(a.soundcntL>>4&0x7) + 1
	volR := int32(a.soundcntL&0x7) + 1

	sumL, sumR := int32(0), int32(0)
	chans := [4]int16{s1, s2, w, n}
	for i, s := range chans {
		if enableL&(1<<i) != 0 {
			sumL += int32(s)
		}
		if enableR&(1<<i) != 0 {
			sumR += int32(s)
		}
	}
	return int16(sumL * volL / 8), int16(sumR * volR / 8)
}

func (a *APU) mixFIFO(a1, b1 int16) (int16, int16) {
	shift := uint(2 - a.soundcntH&0x3) // 0=25%,1=50%,2=100%(,3 prohibited)
	avol := int32(a1) >> shift
	bvol := int32(b1) >> shift

	var left, right int32
	if a.soundcntH&0x0200 != 0 {
		left += avol
	}
	if a.soundcntH&0x0100 != 0 {
		right += avol
	}
	if a.soundcntH&0x2000 != 0 {
		left += bvol
	}
	if a.soundcntH&0x1000 != 0 {
		right += bvol
	}
	return int16(left), int16(right)
}

func clampSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// State is the save-state-friendly snapshot of the APU: the mixer
// registers plus every channel's generator state, flattened into exported
// fields since the channel types themselves keep their fields private.
type State struct {
	SoundcntL, SoundcntH, SoundcntX, Soundbias uint16
	MasterEnabled                              bool

	Square1, Square2 SquareState
	Wave             WaveState
	Noise            NoiseState
	FifoA, FifoB     FifoState
}

type SquareState struct {
	Duty                                    uint8
	LengthCounter                           uint16
	LengthEnable                            bool
	InitVol, EnvPeriod, EnvTimer, CurrentVol uint8
	EnvDir                                   bool
	Freq                                     uint16
	Enabled                                  bool
	Phase                                    float64
	HasSweep, SweepNegate, SweepEnabled      bool
	SweepShift, SweepPeriod, SweepTimer      uint8
	ShadowFreq                               uint16
}

type WaveState struct {
	Ram                     [16]byte
	DacEnabled              bool
	LengthCounter           uint16
	LengthEnable            bool
	VolumeShift             uint8
	Freq                    uint16
	Enabled                 bool
	Phase                   float64
}

type NoiseState struct {
	LengthCounter                  uint16
	LengthEnable                   bool
	InitVol, EnvPeriod, EnvTimer   uint8
	CurrentVol, DivisorCode, Shift uint8
	EnvDir                         bool
	NarrowMode                     bool
	Enabled                        bool
	Lfsr                           uint16
	Phase                          float64
}

type FifoState struct {
	Queue   []int8
	Current int8
}

func snapshotSquare(c *squareChannel) SquareState {
	return SquareState{
		Duty: c.duty, LengthCounter: c.lengthCounter, LengthEnable: c.lengthEnable,
		InitVol: c.initVol, EnvDir: c.envDir, EnvPeriod: c.envPeriod, EnvTimer: c.envTimer,
		CurrentVol: c.currentVol, Freq: c.freq, Enabled: c.enabled, Phase: c.phase,
		HasSweep: c.hasSweep, SweepNegate: c.sweepNegate, SweepEnabled: c.sweepEnabled,
		SweepShift: c.sweepShift, SweepPeriod: c.sweepPeriod, SweepTimer: c.sweepTimer,
		ShadowFreq: c.shadowFreq,
	}
}

func restoreSquare(c *squareChannel, s SquareState) {
	c.duty, c.lengthCounter, c.lengthEnable = s.Duty, s.LengthCounter, s.LengthEnable
	c.initVol, c.envDir, c.envPeriod, c.envTimer = s.InitVol, s.EnvDir, s.EnvPeriod, s.EnvTimer
	c.currentVol, c.freq, c.enabled, c.phase = s.CurrentVol, s.Freq, s.Enabled, s.Phase
	c.hasSweep, c.sweepNegate, c.sweepEnabled = s.HasSweep, s.SweepNegate, s.SweepEnabled
	c.sweepShift, c.sweepPeriod, c.sweepTimer, c.shadowFreq = s.SweepShift, s.SweepPeriod, s.SweepTimer, s.ShadowFreq
}

// Snapshot captures the full APU state.
func (a *APU) Snapshot() State {
	return State{
		SoundcntL: a.soundcntL, SoundcntH: a.soundcntH, SoundcntX: a.soundcntX, Soundbias: a.soundbias,
		MasterEnabled: a.masterEnabled,
		Square1:       snapshotSquare(&a.square1),
		Square2:       snapshotSquare(&a.square2),
		Wave: WaveState{
			Ram: a.wave.ram, DacEnabled: a.wave.dacEnabled, LengthCounter: a.wave.lengthCounter,
			LengthEnable: a.wave.lengthEnable, VolumeShift: a.wave.volumeShift, Freq: a.wave.freq,
			Enabled: a.wave.enabled, Phase: a.wave.phase,
		},
		Noise: NoiseState{
			LengthCounter: a.noise.lengthCounter, LengthEnable: a.noise.lengthEnable,
			InitVol: a.noise.initVol, EnvDir: a.noise.envDir, EnvPeriod: a.noise.envPeriod,
			EnvTimer: a.noise.envTimer, CurrentVol: a.noise.currentVol, DivisorCode: a.noise.divisorCode,
			Shift: a.noise.shift, NarrowMode: a.noise.narrowMode, Enabled: a.noise.enabled,
			Lfsr: a.noise.lfsr, Phase: a.noise.phase,
		},
		FifoA: FifoState{Queue: append([]int8(nil), a.fifoA.queue...), Current: a.fifoA.current},
		FifoB: FifoState{Queue: append([]int8(nil), a.fifoB.queue...), Current: a.fifoB.current},
	}
}

// Restore installs a previously captured APU state.
func (a *APU) Restore(s State) {
	a.soundcntL, a.soundcntH, a.soundcntX, a.soundbias = s.SoundcntL, s.SoundcntH, s.SoundcntX, s.Soundbias
	a.masterEnabled = s.MasterEnabled
	restoreSquare(&a.square1, s.Square1)
	restoreSquare(&a.square2, s.Square2)
	a.wave.ram, a.wave.dacEnabled, a.wave.lengthCounter = s.Wave.Ram, s.Wave.DacEnabled, s.Wave.LengthCounter
	a.wave.lengthEnable, a.wave.volumeShift, a.wave.freq = s.Wave.LengthEnable, s.Wave.VolumeShift, s.Wave.Freq
	a.wave.enabled, a.wave.phase = s.Wave.Enabled, s.Wave.Phase
	a.noise.lengthCounter, a.noise.lengthEnable = s.Noise.LengthCounter, s.Noise.LengthEnable
	a.noise.initVol, a.noise.envDir, a.noise.envPeriod = s.Noise.InitVol, s.Noise.EnvDir, s.Noise.EnvPeriod
	a.noise.envTimer, a.noise.currentVol, a.noise.divisorCode = s.Noise.EnvTimer, s.Noise.CurrentVol, s.Noise.DivisorCode
	a.noise.shift, a.noise.narrowMode, a.noise.enabled = s.Noise.Shift, s.Noise.NarrowMode, s.Noise.Enabled
	a.noise.lfsr, a.noise.phase = s.Noise.Lfsr, s.Noise.Phase
	a.fifoA.queue, a.fifoA.current = append([]int8(nil), s.FifoA.Queue...), s.FifoA.Current
	a.fifoB.queue, a.fifoB.current = append([]int8(nil), s.FifoB.Queue...), s.FifoB.Current
}

// PushFifoA/PushFifoB feed a byte of PCM data into the FIFO channels; DMA
// calls these when its sound-FIFO request fires.
func (a *APU) PushFifoA(b int8) { a.fifoA.push(b) }
func (a *APU) PushFifoB(b int8) { a.fifoB.push(b) }

// DrainFifoA/DrainFifoB report whether a FIFO has fallen to <=half full,
// the DMA sound-FIFO request condition.
func (a *APU) DrainFifoA() bool { return a.fifoA.needsRefill() }
func (a *APU) DrainFifoB() bool { return a.fifoB.needsRefill() }
