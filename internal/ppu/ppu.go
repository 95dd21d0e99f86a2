// Package ppu implements the GBA picture processing unit: a line-based
// state machine driven by scheduler events rather than a per-cycle tick,
// per the mode/layer priority rules.
package ppu

import (
	"gbacore/internal/irq"
	"gbacore/internal/scheduler"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	cyclesHDraw  = 1006
	cyclesHBlank = 226
	linesVisible = 160
	linesTotal   = 228
)

// Scheduler is the subset of scheduler.Scheduler the PPU needs to pace
// its own scanline events.
type Scheduler interface {
	AddEvent(delay uint64, handler scheduler.HandlerID, data uint32) scheduler.Handle
}

// DmaNotifier is satisfied by dma.Controller.
type DmaNotifier interface {
	NotifyHBlank()
	NotifyVBlank()
}

// PPU owns the register file, the shared VRAM/palette/OAM backing
// arrays (aliased from internal/membus.Bus so writes through the bus are
// visible here with no copying), and the RGB555 output framebuffer.
type PPU struct {
	sched Scheduler
	irqc  *irq.Controller
	dma   DmaNotifier

	palette []byte
	vram    []byte
	oam     []byte

	dispcnt  uint16
	dispstat uint16
	vcount   uint16

	bgcnt  [4]uint16
	bghofs [4]uint16
	bgvofs [4]uint16

	bgAffine [2]affineBG // index 0 -> BG2, index 1 -> BG3

	win0h, win1h  uint16
	win0v, win1v  uint16
	winin, winout uint16
	mosaic        uint16
	bldcnt        uint16
	bldalpha      uint16
	bldy          uint16

	Frame   [ScreenWidth * ScreenHeight]uint16
	OnFrame func()
}

type affineBG struct {
	pa, pb, pc, pd int16
	refX, refY     int32 // 20.8 fixed point
	curX, curY     int32
}

func New(palette, vram, oam []byte, sched Scheduler, irqc *irq.Controller, dma DmaNotifier) *PPU {
	return &PPU{palette: palette, vram: vram, oam: oam, sched: sched, irqc: irqc, dma: dma}
}

func (p *PPU) Reset() {
	*p = PPU{palette: p.palette, vram: p.vram, oam: p.oam, sched: p.sched, irqc: p.irqc, dma: p.dma, OnFrame: p.OnFrame}
	p.scheduleHDrawEnd()
}

// Start arms the first scanline event; call once after construction.
func (p *PPU) Start() { p.scheduleHDrawEnd() }

// State is the save-state-friendly snapshot of everything the PPU owns
// outside the shared VRAM/palette/OAM backing arrays, which membus
// serializes directly since it owns the allocation.
type State struct {
	Dispcnt  uint16
	Dispstat uint16
	Vcount   uint16

	Bgcnt  [4]uint16
	Bghofs [4]uint16
	Bgvofs [4]uint16

	BgAffine [2]AffineBGState

	Win0H, Win1H   uint16
	Win0V, Win1V   uint16
	Winin, Winout  uint16
	Mosaic         uint16
	Bldcnt         uint16
	Bldalpha       uint16
	Bldy           uint16
}

// AffineBGState is the save-state-friendly mirror of affineBG, whose own
// fields are private to the rendering code.
type AffineBGState struct {
	Pa, Pb, Pc, Pd int16
	RefX, RefY     int32
	CurX, CurY     int32
}

func snapshotAffine(a affineBG) AffineBGState {
	return AffineBGState{Pa: a.pa, Pb: a.pb, Pc: a.pc, Pd: a.pd, RefX: a.refX, RefY: a.refY, CurX: a.curX, CurY: a.curY}
}

func restoreAffine(s AffineBGState) affineBG {
	return affineBG{pa: s.Pa, pb: s.Pb, pc: s.Pc, pd: s.Pd, refX: s.RefX, refY: s.RefY, curX: s.CurX, curY: s.CurY}
}

// Snapshot captures the PPU's register state.
func (p *PPU) Snapshot() State {
	return State{
		Dispcnt: p.dispcnt, Dispstat: p.dispstat, Vcount: p.vcount,
		Bgcnt: p.bgcnt, Bghofs: p.bghofs, Bgvofs: p.bgvofs,
		BgAffine: [2]AffineBGState{snapshotAffine(p.bgAffine[0]), snapshotAffine(p.bgAffine[1])},
		Win0H: p.win0h, Win1H: p.win1h, Win0V: p.win0v, Win1V: p.win1v,
		Winin: p.winin, Winout: p.winout, Mosaic: p.mosaic,
		Bldcnt: p.bldcnt, Bldalpha: p.bldalpha, Bldy: p.bldy,
	}
}

// Restore installs a previously captured register state. It does not re-arm
// scanline scheduling; pending scanline events come back with the
// scheduler's own restore.
func (p *PPU) Restore(s State) {
	p.dispcnt, p.dispstat, p.vcount = s.Dispcnt, s.Dispstat, s.Vcount
	p.bgcnt, p.bghofs, p.bgvofs = s.Bgcnt, s.Bghofs, s.Bgvofs
	p.bgAffine = [2]affineBG{restoreAffine(s.BgAffine[0]), restoreAffine(s.BgAffine[1])}
	p.win0h, p.win1h, p.win0v, p.win1v = s.Win0H, s.Win1H, s.Win0V, s.Win1V
	p.winin, p.winout, p.mosaic = s.Winin, s.Winout, s.Mosaic
	p.bldcnt, p.bldalpha, p.bldy = s.Bldcnt, s.Bldalpha, s.Bldy
}

func (p *PPU) scheduleHDrawEnd()  { p.sched.AddEvent(cyclesHDraw, scheduler.HandlerHDrawEnd, 0) }
func (p *PPU) scheduleHBlankEnd() { p.sched.AddEvent(cyclesHBlank, scheduler.HandlerHBlankEnd, 0) }

const (
	dispstatVBlank    = 1 << 0
	dispstatHBlank    = 1 << 1
	dispstatVCount    = 1 << 2
	dispstatVBlankIRQ = 1 << 3
	dispstatHBlankIRQ = 1 << 4
	dispstatVCountIRQ = 1 << 5
)

// OnHDrawEnd fires at the end of a scanline's visible draw window: render
// the line, raise HBlank, and notify HBlank-timed DMA.
func (p *PPU) OnHDrawEnd() {
	if p.vcount < linesVisible {
		p.renderLine(int(p.vcount))
	}
	p.dispstat |= dispstatHBlank
	if p.dispstat&dispstatHBlankIRQ != 0 {
		p.irqc.Request(irq.HBlank)
	}
	if p.vcount < linesVisible {
		p.dma.NotifyHBlank()
	}
	p.scheduleHBlankEnd()
}

// OnHBlankEnd fires at the start of the next scanline: advance VCOUNT,
// clear HBlank, update the VCount-match flag, and handle VBlank entry/exit.
func (p *PPU) OnHBlankEnd() {
	p.dispstat &^= dispstatHBlank
	p.vcount++
	if int(p.vcount) >= linesTotal {
		p.vcount = 0
		for i := range p.bgAffine {
			p.bgAffine[i].curX = p.bgAffine[i].refX
			p.bgAffine[i].curY = p.bgAffine[i].refY
		}
	}

	if p.vcount == linesVisible {
		p.dispstat |= dispstatVBlank
		if p.dispstat&dispstatVBlankIRQ != 0 {
			p.irqc.Request(irq.VBlank)
		}
		p.dma.NotifyVBlank()
		if p.OnFrame != nil {
			p.OnFrame()
		}
	} else if p.vcount == 0 {
		p.dispstat &^= dispstatVBlank
	}

	vcountTarget := p.dispstat >> 8
	if p.vcount == vcountTarget {
		p.dispstat |= dispstatVCount
		if p.dispstat&dispstatVCountIRQ != 0 {
			p.irqc.Request(irq.VCount)
		}
	} else {
		p.dispstat &^= dispstatVCount
	}

	if int(p.vcount) < linesVisible {
		for i := range p.bgAffine {
			p.bgAffine[i].curX += int32(p.bgAffine[i].pb)
			p.bgAffine[i].curY += int32(p.bgAffine[i].pd)
		}
	}

	p.scheduleHDrawEnd()
}

func (p *PPU) VCount() uint16 { return p.vcount }
