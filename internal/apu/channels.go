package apu

var dutyThreshold = [4]float64{0.125, 0.25, 0.5, 0.75}

type squareChannel struct {
	duty          uint8
	lengthCounter uint16
	lengthEnable  bool
	initVol       uint8
	envDir        bool
	envPeriod     uint8
	envTimer      uint8
	currentVol    uint8
	freq          uint16
	enabled       bool
	phase         float64

	hasSweep     bool
	sweepShift   uint8
	sweepNegate  bool
	sweepPeriod  uint8
	sweepTimer   uint8
	shadowFreq   uint16
	sweepEnabled bool
}

func (c *squareChannel) clockLength() {
	if c.lengthEnable && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

func (c *squareChannel) clockEnvelope() {
	if c.envPeriod == 0 {
		return
	}
	c.envTimer++
	if c.envTimer < c.envPeriod {
		return
	}
	c.envTimer = 0
	if c.envDir && c.currentVol < 15 {
		c.currentVol++
	} else if !c.envDir && c.currentVol > 0 {
		c.currentVol--
	}
}

func (c *squareChannel) clockSweep() {
	if !c.hasSweep || !c.sweepEnabled || c.sweepPeriod == 0 {
		return
	}
	c.sweepTimer++
	if c.sweepTimer < c.sweepPeriod {
		return
	}
	c.sweepTimer = 0
	delta := c.shadowFreq >> c.sweepShift
	var next uint16
	if c.sweepNegate {
		next = c.shadowFreq - delta
	} else {
		next = c.shadowFreq + delta
	}
	if next > 2047 {
		c.enabled = false
		return
	}
	if c.sweepShift > 0 {
		c.shadowFreq = next
		c.freq = next
	}
}

func (c *squareChannel) sample() int16 {
	if !c.enabled || c.currentVol == 0 {
		return 0
	}
	freqHz := 131072.0 / float64(2048-int(c.freq))
	period := float64(sampleRate) / freqHz
	c.phase += 1.0 / period
	if c.phase >= 1 {
		c.phase -= 1
	}
	amp := int16(c.currentVol) * 128
	if c.phase < dutyThreshold[c.duty] {
		return amp
	}
	return -amp
}

type waveChannel struct {
	ram           [16]byte // 32 4-bit samples
	dacEnabled    bool
	lengthCounter uint16
	lengthEnable  bool
	volumeShift   uint8 // 0=mute,1=100%,2=50%,3=25%
	freq          uint16
	enabled       bool
	phase         float64
}

func (c *waveChannel) clockLength() {
	if c.lengthEnable && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

func (c *waveChannel) sample() int16 {
	if !c.enabled || !c.dacEnabled || c.volumeShift == 0 {
		return 0
	}
	freqHz := 2097152.0 / float64(2048-int(c.freq))
	period := float64(sampleRate) / freqHz
	c.phase += 32.0 / period
	for c.phase >= 32 {
		c.phase -= 32
	}
	idx := int(c.phase)
	b := c.ram[idx/2]
	var nibble uint8
	if idx%2 == 0 {
		nibble = b >> 4
	} else {
		nibble = b & 0xF
	}
	signed := int16(nibble) - 8
	return signed * 32 >> (c.volumeShift - 1)
}

type noiseChannel struct {
	lengthCounter uint16
	lengthEnable  bool
	initVol       uint8
	envDir        bool
	envPeriod     uint8
	envTimer      uint8
	currentVol    uint8
	divisorCode   uint8
	shift         uint8
	narrowMode    bool
	enabled       bool
	lfsr          uint16
	phase         float64
}

var noiseDivisor = [8]float64{8, 16, 32, 48, 64, 80, 96, 112}

func (c *noiseChannel) clockLength() {
	if c.lengthEnable && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

func (c *noiseChannel) clockEnvelope() {
	if c.envPeriod == 0 {
		return
	}
	c.envTimer++
	if c.envTimer < c.envPeriod {
		return
	}
	c.envTimer = 0
	if c.envDir && c.currentVol < 15 {
		c.currentVol++
	} else if !c.envDir && c.currentVol > 0 {
		c.currentVol--
	}
}

func (c *noiseChannel) sample() int16 {
	if !c.enabled || c.currentVol == 0 {
		return 0
	}
	if c.lfsr == 0 {
		c.lfsr = 0x7FFF
	}
	freqHz := 524288.0 / noiseDivisor[c.divisorCode] / float64(uint32(2)<<c.shift)
	period := float64(sampleRate) / freqHz
	c.phase += 1.0 / period
	for c.phase >= 1 {
		c.phase -= 1
		feedback := (c.lfsr & 1) ^ (c.lfsr >> 1 & 1)
		c.lfsr >>= 1
		c.lfsr |= feedback << 14
		if c.narrowMode {
			c.lfsr &^= 1 << 6
			c.lfsr |= feedback << 6
		}
	}
	amp := int16(c.currentVol) * 128
	if c.lfsr&1 == 0 {
		return amp
	}
	return -amp
}

const fifoCapacity = 32

// fifoChannel is a direct-sound PCM channel: DMA pushes signed 8-bit
// samples in, and each APU sample tick pops one off and holds it as the
// current output level, matching the real FIFO's "last popped sample
// stays on the bus until the next pop" behavior. Real hardware paces pops
// off the selected timer's overflow rather than the fixed output rate;
// popping once per output sample is a documented simplification.
type fifoChannel struct {
	queue   []int8
	current int8
}

func (f *fifoChannel) push(b int8) {
	if len(f.queue) >= fifoCapacity {
		return
	}
	f.queue = append(f.queue, b)
}

func (f *fifoChannel) sample() int16 {
	if len(f.queue) > 0 {
		f.current = f.queue[0]
		f.queue = f.queue[1:]
	}
	return int16(f.current) * 64
}

func (f *fifoChannel) needsRefill() bool { return len(f.queue) <= fifoCapacity/2 }
