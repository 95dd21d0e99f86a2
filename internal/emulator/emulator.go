// Package emulator wires every subsystem behind one mutable reference and
// drives the run loop: drain the command queue, run one frame's worth of
// scheduler cycles, then pace to wall-clock time.
package emulator

import (
	"fmt"
	"io"
	"os"
	"time"

	"gbacore/internal/apu"
	"gbacore/internal/cart"
	"gbacore/internal/cpu"
	"gbacore/internal/dbg"
	"gbacore/internal/dma"
	"gbacore/internal/irq"
	"gbacore/internal/joypad"
	"gbacore/internal/membus"
	"gbacore/internal/message"
	"gbacore/internal/ppu"
	"gbacore/internal/savestate"
	"gbacore/internal/scheduler"
	"gbacore/internal/timer"
)

// cyclesPerFrame is the GBA's 280,896-cycle frame, 228 scanlines of 1232
// cycles each.
const cyclesPerFrame = 280896

const nativeFrameHz = 59.737

// Emulator owns every subsystem and is itself the membus.IODevice fan-out
// and the scheduler.Dispatcher every fired event routes through; holding
// both roles on one struct lets the otherwise-cyclic component graph get
// built without any subsystem importing another's package.
type Emulator struct {
	queue *message.Queue

	bus    *membus.Bus
	sched  *scheduler.Scheduler
	cpu    *cpu.CPU
	dma    *dma.Controller
	timers *timer.Controller
	ppu    *ppu.PPU
	apu    *apu.APU
	irqc   *irq.Controller
	joypad *joypad.Joypad
	cart   *cart.Cartridge

	running         bool
	started         bool
	speed           float64
	colorCorrection bool

	lastFrame time.Time
}

// New constructs a fully wired Emulator with no ROM or BIOS loaded yet;
// LoadBios/LoadRom commands populate those. sink receives finished audio
// sample pairs each frame.
func New(queue *message.Queue, sink apu.Sink) *Emulator {
	e := &Emulator{queue: queue}

	e.irqc = irq.New()
	e.sched = scheduler.New()
	e.bus = membus.New(e, emptyCartridge{}, e.pcInBIOS)
	e.dma = dma.New(e.bus, e.irqc)
	e.timers = timer.New(e.sched, e.dma)
	e.ppu = ppu.New(e.bus.Palette, e.bus.VRAM, e.bus.OAM, e.sched, e.irqc, e.dma)
	e.apu = apu.New(e.sched, sink)
	e.joypad = joypad.New()
	e.cpu = cpu.New(e.bus, timingAdapter{}, e.irqc)

	e.ppu.Start()
	e.apu.Start()
	return e
}

func (e *Emulator) pcInBIOS() bool {
	return e.cpu != nil && e.cpu.Registers()[15] < membus.BIOSStart+membus.BIOSSize
}

// emptyCartridge satisfies membus.Cartridge before any ROM is loaded: every
// ROM/backup access reports zero size, so the bus falls through to its
// open-bus path rather than indexing a nil slice.
type emptyCartridge struct{}

func (emptyCartridge) ROMSize() uint32                   { return 0 }
func (emptyCartridge) ReadROM8(addr uint32) uint8        { return 0 }
func (emptyCartridge) BackupSize() uint32                { return 0 }
func (emptyCartridge) ReadBackup8(addr uint32) uint8     { return 0 }
func (emptyCartridge) WriteBackup8(addr uint32, v uint8) {}

// timingAdapter bridges cpu.Timing's (addr, width-in-bytes, sequential)
// signature to membus.Cost's (addr, Width, AccessKind) signature, since
// internal/cpu must not import membus's concrete types.
type timingAdapter struct{}

func (t timingAdapter) Cost(addr uint32, width int, sequential bool) uint32 {
	w := membus.Width8
	switch width {
	case 2:
		w = membus.Width16
	case 4:
		w = membus.Width32
	}
	kind := membus.NonSequential
	if sequential {
		kind = membus.Sequential
	}
	return membus.Cost(addr, w, kind)
}

// Dispatch implements scheduler.Dispatcher, the fixed table every fired
// event routes through.
func (e *Emulator) Dispatch(id scheduler.HandlerID, data uint32, lateBy uint64) {
	switch id {
	case scheduler.HandlerHDrawEnd:
		e.ppu.OnHDrawEnd()
	case scheduler.HandlerHBlankEnd:
		e.ppu.OnHBlankEnd()
	case scheduler.HandlerTimerOverflow0:
		e.timers.Overflow(0)
	case scheduler.HandlerTimerOverflow1:
		e.timers.Overflow(1)
	case scheduler.HandlerTimerOverflow2:
		e.timers.Overflow(2)
	case scheduler.HandlerTimerOverflow3:
		e.timers.Overflow(3)
	case scheduler.HandlerApuLengthTick:
		e.apu.OnLengthTick()
	case scheduler.HandlerApuEnvelopeTick:
		e.apu.OnEnvelopeTick()
	case scheduler.HandlerApuSweepTick:
		e.apu.OnSweepTick()
	case scheduler.HandlerApuSample:
		e.apu.OnSample()
	default:
		dbg.Printf("emulator: unhandled scheduler event %v, %d cycles late\n", id, lateBy)
	}
}

// ReadIO8/WriteIO8 implement membus.IODevice, fanning the 0x04000000 I/O
// block out to whichever subsystem owns each register range.
func (e *Emulator) ReadIO8(offset uint32) uint8 {
	switch {
	case offset < 0x060:
		return e.ppu.ReadIO8(offset)
	case offset < 0x0B0:
		return e.apu.ReadIO8(offset)
	case offset >= 0x0B0 && offset < 0x100:
		return e.dma.ReadIO8(offset)
	case offset >= 0x100 && offset < 0x110:
		return e.timers.ReadIO8(offset)
	case offset >= 0x130 && offset < 0x134:
		return e.joypad.ReadIO8(offset)
	case offset >= 0x200 && offset < 0x20C:
		return e.irqc.ReadIO8(offset)
	default:
		return 0
	}
}

func (e *Emulator) WriteIO8(offset uint32, value uint8) {
	switch {
	case offset < 0x060:
		e.ppu.WriteIO8(offset, value)
	case offset < 0x0B0:
		e.apu.WriteIO8(offset, value)
	case offset >= 0x0B0 && offset < 0x100:
		e.dma.WriteIO8(offset, value)
	case offset >= 0x100 && offset < 0x110:
		e.timers.WriteIO8(offset, value)
	case offset >= 0x130 && offset < 0x134:
		e.joypad.WriteIO8(offset, value)
	case offset >= 0x200 && offset < 0x20C:
		e.irqc.WriteIO8(offset, value)
	}
}

// Reset reinitializes every subsystem and clears working RAM, leaving BIOS,
// ROM, and backup contents untouched.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.sched.Reset()
	e.dma.Reset()
	e.timers.Reset()
	e.irqc.Reset()
	e.ppu.Reset()
	e.apu.Reset()
	e.cpu.Reset()
	e.ppu.Start()
	e.apu.Start()
	e.running = false
}

// RunFrame drains the command queue and, if running, advances the scheduler
// by one frame. It returns true once an Exit command has been processed.
func (e *Emulator) RunFrame() bool {
	if e.drainQueue() {
		return true
	}
	if e.running {
		e.sched.RunFor(cyclesPerFrame, e.cpu, e)
		if e.joypad.IRQPending() {
			e.irqc.Request(irq.Keypad)
		}
	}
	return false
}

// Loop runs RunFrame forever, pacing to wall-clock time when a speed
// multiplier is set, until an Exit command arrives.
func (e *Emulator) Loop() {
	e.lastFrame = time.Now()
	for {
		if e.RunFrame() {
			return
		}
		e.paceFrame()
	}
}

func (e *Emulator) paceFrame() {
	if e.speed <= 0 {
		return
	}
	period := time.Duration(float64(time.Second) / nativeFrameHz / e.speed)
	elapsed := time.Since(e.lastFrame)
	if elapsed < period {
		time.Sleep(period - elapsed)
	}
	e.lastFrame = time.Now()
}

func (e *Emulator) drainQueue() bool {
	for _, cmd := range e.queue.Drain() {
		exit := e.apply(cmd)
		if cmd.Cleanup != nil {
			cmd.Cleanup(cmd.Payload)
		}
		if exit {
			return true
		}
	}
	return false
}

func (e *Emulator) apply(cmd message.Command) bool {
	switch cmd.Type {
	case message.TypeExit:
		return true
	case message.TypeLoadBios:
		e.loadBios(cmd.Payload.(message.PathPayload).Path)
	case message.TypeLoadRom:
		e.loadRom(cmd.Payload.(message.PathPayload).Path)
	case message.TypeLoadBackup:
		e.loadBackup(cmd.Payload.(message.PathPayload).Path)
	case message.TypeBackupType:
		if !e.started && e.cart != nil {
			e.cart.SetBackupType(cart.BackupType(cmd.Payload.(message.BackupTypePayload).Kind))
		}
	case message.TypeReset:
		e.Reset()
	case message.TypeRun:
		p := cmd.Payload.(message.RunPayload)
		e.running = true
		e.started = true
		e.speed = p.Speed
		e.lastFrame = time.Now()
	case message.TypePause:
		e.running = false
	case message.TypeKeyInput:
		p := cmd.Payload.(message.KeyInputPayload)
		e.joypad.SetKey(joypad.Key(p.Key), p.Pressed)
	case message.TypeQuicksave:
		if err := e.quicksave(cmd.Payload.(message.PathPayload).Path); err != nil {
			dbg.Printf("emulator: quicksave: %v\n", err)
		}
	case message.TypeQuickload:
		if err := e.quickload(cmd.Payload.(message.PathPayload).Path); err != nil {
			dbg.Printf("emulator: quickload: %v\n", err)
		}
	case message.TypeAudioResampleFreq:
		dbg.Printf("emulator: audio resample frequency change to %d Hz requires a restart; ignored\n",
			cmd.Payload.(message.AudioResampleFreqPayload).Hz)
	case message.TypeColorCorrection:
		e.colorCorrection = cmd.Payload.(message.ColorCorrectionPayload).Enabled
	case message.TypeRtc:
		if !e.started && e.cart != nil {
			e.cart.SetRTC(cmd.Payload.(message.RtcPayload).Enabled)
		}
	}
	return false
}

func (e *Emulator) loadBios(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		dbg.Printf("emulator: load bios %s: %v\n", path, err)
		return
	}
	e.bus.LoadBIOS(data)
}

func (e *Emulator) loadRom(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		dbg.Printf("emulator: load rom %s: %v\n", path, err)
		return
	}
	c, err := cart.New(data)
	if err != nil {
		dbg.Printf("emulator: parse rom %s: %v\n", path, err)
		return
	}
	e.cart = c
	e.bus.SetCartridge(c)
	e.dma.SetEeprom(c.Backup.Eeprom())
	e.Reset()
	e.started = false
}

func (e *Emulator) loadBackup(path string) {
	if e.cart == nil {
		dbg.Printf("emulator: load backup %s: no cartridge loaded\n", path)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		dbg.Printf("emulator: load backup %s: %v\n", path, err)
		return
	}
	e.cart.Backup.LoadRaw(data)
}

// quicksave/quickload implement the quicksave file commands; Frame() and the
// rest of the host-facing accessors below let cmd/gbacore build the CLI and
// front-end harness around this without reaching into Emulator's fields.
func (e *Emulator) quicksave(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return e.quicksaveTo(f)
}

func (e *Emulator) quickload(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return e.quickloadFrom(f)
}

// quicksaveTo/quickloadFrom hold the actual snapshot/restore logic against
// an io.Writer/io.Reader, independent of the on-disk path, so tests can
// round-trip through an in-memory buffer.
func (e *Emulator) quicksaveTo(w io.Writer) error {
	snap := savestate.Snapshot{
		CPU:       e.cpu.Snapshot(),
		Bus:       e.bus.Snapshot(),
		Scheduler: savestate.SchedulerState{Cycles: e.sched.Cycles(), Events: e.sched.PendingEvents()},
		PPU:       e.ppu.Snapshot(),
		APU:       e.apu.Snapshot(),
		DMA:       e.dma.Snapshot(),
		Timer:     e.timers.Snapshot(),
		IRQ:       *e.irqc,
	}
	if e.cart != nil {
		snap.Backup = savestate.BackupState{
			Raw:        append([]byte(nil), e.cart.Backup.Raw()...),
			Dirty:      e.cart.Backup.Dirty,
			RTCControl: e.cart.RTC.Control(),
		}
	}
	return savestate.Save(w, snap)
}

func (e *Emulator) quickloadFrom(r io.Reader) error {
	snap, err := savestate.Load(r)
	if err != nil {
		return err
	}

	e.cpu.Restore(snap.CPU)
	e.bus.Restore(snap.Bus)
	e.sched.Restore(snap.Scheduler.Cycles, snap.Scheduler.Events)
	e.ppu.Restore(snap.PPU)
	e.apu.Restore(snap.APU)
	e.dma.Restore(snap.DMA)
	e.timers.Restore(snap.Timer)
	*e.irqc = snap.IRQ
	if e.cart != nil {
		e.cart.Backup.LoadRaw(snap.Backup.Raw)
		e.cart.Backup.Dirty = snap.Backup.Dirty
		e.cart.RTC.SetControl(snap.Backup.RTCControl)
	}
	return nil
}

// Frame returns the most recently rendered frame's RGB555 pixels.
func (e *Emulator) Frame() *[ppu.ScreenWidth * ppu.ScreenHeight]uint16 { return &e.ppu.Frame }

// OnFrame registers a callback invoked at the start of every VBlank, once
// the current frame's pixels are final.
func (e *Emulator) OnFrame(f func()) { e.ppu.OnFrame = f }

// KeyInput returns the live KEYINPUT register for a front-end that wants to
// read state directly rather than only pushing KeyInput commands.
func (e *Emulator) KeyInput() uint16 { return e.joypad.KeyInput() }

// ColorCorrection reports whether the last ColorCorrection command enabled
// LCD gamma correction; cmd/gbacore's renderer reads this to decide whether
// to apply it before blitting a frame.
func (e *Emulator) ColorCorrection() bool { return e.colorCorrection }

// LoadSnapshot restores a quicksave file outside the command queue, for
// offline diagnostics (cmd/gbacore audio-dump) that never call Loop.
func (e *Emulator) LoadSnapshot(path string) error { return e.quickload(path) }

// AdvanceFrame runs exactly one frame's worth of scheduler cycles without
// going through the command queue or frame pacing, for diagnostics that
// want deterministic single-frame stepping.
func (e *Emulator) AdvanceFrame() { e.sched.RunFor(cyclesPerFrame, e.cpu, e) }
