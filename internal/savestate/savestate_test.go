package savestate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"gbacore/internal/apu"
	"gbacore/internal/cpu"
	"gbacore/internal/dma"
	"gbacore/internal/irq"
	"gbacore/internal/membus"
	"gbacore/internal/ppu"
	"gbacore/internal/scheduler"
	"gbacore/internal/timer"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		CPU: cpu.State{
			R:          [16]uint32{0: 1, 13: 0x03007F00, 15: 0x08000100},
			Cpsr:       0x1F,
			BankedR13:  [6]uint32{1: 0x03007FA0},
			BankedR14:  [6]uint32{2: 0x08000010},
			BankedSPSR: [6]uint32{3: 0x6000001F},
		},
		Bus: membus.State{
			EWRAM:   append(make([]byte, 0, 4), 0xDE, 0xAD, 0xBE, 0xEF),
			IWRAM:   []byte{1, 2, 3},
			Palette: []byte{4, 5},
			VRAM:    []byte{6},
			OAM:     []byte{7, 8, 9},
			OpenBus: 0xCAFEBABE,
		},
		Scheduler: SchedulerState{
			Cycles: 123456,
			Events: []scheduler.EventRecord{
				{Cycle: 123500, Handler: scheduler.HandlerHDrawEnd, Data: 0},
				{Cycle: 200000, Handler: scheduler.HandlerTimerOverflow1, Data: 1},
			},
		},
		PPU: ppu.State{
			Dispcnt: 0x0080,
			Vcount:  42,
			Bgcnt:   [4]uint16{0x1234, 0, 0, 0},
			BgAffine: [2]ppu.AffineBGState{
				{Pa: 256, Pd: 256, RefX: 1000, RefY: 2000},
			},
		},
		APU: apu.State{
			SoundcntX:     0x80,
			MasterEnabled: true,
			Square1: apu.SquareState{
				Duty: 2, LengthCounter: 10, Freq: 500, Enabled: true,
			},
			FifoA: apu.FifoState{Queue: []int8{1, -1, 2}},
		},
		DMA: dma.State{
			Channels: [4]dma.ChannelState{
				{Src: 0x08000000, Dst: 0x06000000, Count: 100, Control: 0x8000, Running: true},
			},
		},
		Timer: timer.State{
			Units: [4]timer.UnitState{
				{Reload: 0xFF00, Counter: 0xFF10, Control: 0x80, StartCycle: 500, Running: true},
			},
		},
		IRQ: irq.Controller{IE: 0x3FFF, IF: 0x0001, IME: true},
		Backup: BackupState{
			Raw:        []byte{0xAA, 0xBB},
			Dirty:      true,
			RTCControl: 0x51,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap))

	got, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, snap, got)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 1, 0})

	_, err := Load(&buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad magic")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleSnapshot()))

	raw := buf.Bytes()
	raw[4] = 0xFF // version low byte, right after the 4-byte magic

	_, err := Load(bytes.NewReader(raw))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported version")
}

func TestInspectReportsVersionAndSectionSizesWithoutFullDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sampleSnapshot()))

	h, err := Inspect(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, version, h.Version)
	require.Len(t, h.SectionSizes, len(sectionNames))
	for _, name := range sectionNames {
		require.Greater(t, h.SectionSizes[name], uint32(0), "section %s should have non-zero encoded size", name)
	}
}
