package apu

const (
	RegSound1CntL = 0x060
	RegSound1CntH = 0x062
	RegSound1CntX = 0x064
	RegSound2CntL = 0x068
	RegSound2CntH = 0x06C
	RegSound3CntL = 0x070
	RegSound3CntH = 0x072
	RegSound3CntX = 0x074
	RegSound4CntL = 0x078
	RegSound4CntH = 0x07C
	RegSoundCntL  = 0x080
	RegSoundCntH  = 0x082
	RegSoundCntX  = 0x084
	RegSoundBias  = 0x088
	RegWaveRAM    = 0x090
	RegFifoA      = 0x0A0
	RegFifoB      = 0x0A4
)

func (a *APU) ReadIO8(offset uint32) uint8 {
	switch {
	case offset == RegSoundCntL:
		return uint8(a.soundcntL)
	case offset == RegSoundCntL+1:
		return uint8(a.soundcntL >> 8)
	case offset == RegSoundCntH:
		return uint8(a.soundcntH)
	case offset == RegSoundCntH+1:
		return uint8(a.soundcntH >> 8)
	case offset == RegSoundCntX:
		status := uint16(0)
		if a.masterEnabled {
			status |= 1 << 7
		}
		if a.square1.enabled {
			status |= 1 << 0
		}
		if a.square2.enabled {
			status |= 1 << 1
		}
		if a.wave.enabled {
			status |= 1 << 2
		}
		if a.noise.enabled {
			status |= 1 << 3
		}
		return uint8(status)
	case offset == RegSoundBias:
		return uint8(a.soundbias)
	case offset == RegSoundBias+1:
		return uint8(a.soundbias >> 8)
	case offset >= RegWaveRAM && offset < RegWaveRAM+16:
		return a.wave.ram[offset-RegWaveRAM]
	default:
		return 0
	}
}

func (a *APU) WriteIO8(offset uint32, value uint8) {
	switch {
	case offset == RegSound1CntL:
		a.square1.hasSweep = true
		a.square1.sweepShift = value & 0x7
		a.square1.sweepNegate = value&0x8 != 0
		a.square1.sweepPeriod = value >> 4 & 0x7
	case offset == RegSound1CntH, offset == RegSound2CntL:
		c := a.square1Or2(offset)
		c.duty = value >> 6 & 0x3
		c.lengthCounter = uint16(64 - value&0x3F)
	case offset == RegSound1CntH+1, offset == RegSound2CntL+1:
		c := a.square1Or2(offset - 1)
		c.initVol = value >> 4 & 0xF
		c.currentVol = c.initVol
		c.envDir = value&0x8 != 0
		c.envPeriod = value & 0x7
	case offset == RegSound1CntX, offset == RegSound2CntH:
		c := a.squareFreqChannel(offset)
		c.freq = c.freq&0x700 | uint16(value)
	case offset == RegSound1CntX+1, offset == RegSound2CntH+1:
		c := a.squareFreqChannel(offset - 1)
		c.freq = c.freq&0x00FF | uint16(value&0x7)<<8
		c.lengthEnable = value&0x40 != 0
		if value&0x80 != 0 {
			c.enabled = true
			c.phase = 0
			if c.hasSweep {
				c.shadowFreq = c.freq
				c.sweepEnabled = c.sweepPeriod != 0 || c.sweepShift != 0
				c.sweepTimer = 0
			}
		}
	case offset == RegSound3CntL:
		a.wave.dacEnabled = value&0x80 != 0
	case offset == RegSound3CntH:
		a.wave.lengthCounter = uint16(256 - int(value))
	case offset == RegSound3CntH+1:
		a.wave.volumeShift = value >> 5 & 0x3
	case offset == RegSound3CntX:
		a.wave.freq = a.wave.freq&0x700 | uint16(value)
	case offset == RegSound3CntX+1:
		a.wave.freq = a.wave.freq&0x00FF | uint16(value&0x7)<<8
		a.wave.lengthEnable = value&0x40 != 0
		if value&0x80 != 0 {
			a.wave.enabled = true
			a.wave.phase = 0
		}
	case offset == RegSound4CntL:
		a.noise.lengthCounter = uint16(64 - value&0x3F)
	case offset == RegSound4CntL+1:
		a.noise.initVol = value >> 4 & 0xF
		a.noise.currentVol = a.noise.initVol
		a.noise.envDir = value&0x8 != 0
		a.noise.envPeriod = value & 0x7
	case offset == RegSound4CntH:
		a.noise.divisorCode = value & 0x7
		a.noise.narrowMode = value&0x8 != 0
		a.noise.shift = value >> 4 & 0xF
	case offset == RegSound4CntH+1:
		a.noise.lengthEnable = value&0x40 != 0
		if value&0x80 != 0 {
			a.noise.enabled = true
			a.noise.lfsr = 0x7FFF
			a.noise.phase = 0
		}
	case offset == RegSoundCntL:
		a.soundcntL = a.soundcntL&0xFF00 | uint16(value)
	case offset == RegSoundCntL+1:
		a.soundcntL = a.soundcntL&0x00FF | uint16(value)<<8
	case offset == RegSoundCntH:
		a.soundcntH = a.soundcntH&0xFF00 | uint16(value)
		if value&0x08 != 0 {
			a.fifoA.queue = a.fifoA.queue[:0]
		}
		if value&0x80 != 0 {
			a.fifoB.queue = a.fifoB.queue[:0]
		}
	case offset == RegSoundCntH+1:
		a.soundcntH = a.soundcntH&0x00FF | uint16(value)<<8
	case offset == RegSoundCntX:
		a.masterEnabled = value&0x80 != 0
	case offset == RegSoundBias:
		a.soundbias = a.soundbias&0xFF00 | uint16(value)
	case offset == RegSoundBias+1:
		a.soundbias = a.soundbias&0x00FF | uint16(value)<<8
	case offset >= RegWaveRAM && offset < RegWaveRAM+16:
		a.wave.ram[offset-RegWaveRAM] = value
	case offset >= RegFifoA && offset < RegFifoA+4:
		a.PushFifoA(int8(value))
	case offset >= RegFifoB && offset < RegFifoB+4:
		a.PushFifoB(int8(value))
	}
}

func (a *APU) square1Or2(offset uint32) *squareChannel {
	if offset == RegSound1CntH {
		return &a.square1
	}
	return &a.square2
}

func (a *APU) squareFreqChannel(offset uint32) *squareChannel {
	if offset == RegSound1CntX {
		return &a.square1
	}
	return &a.square2
}
