package main

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"

	"gbacore/internal/emulator"
	"gbacore/internal/message"
	"gbacore/internal/ppu"
)

const (
	displayWidth  = ppu.ScreenWidth
	displayHeight = ppu.ScreenHeight
	windowScale   = 3
	audioSampleHz = 32768
)

// keyMap binds keyboard keys to the ten GBA buttons.
var keyMap = map[ebiten.Key]uint32{
	ebiten.KeyZ:          0, // A
	ebiten.KeyX:          1, // B
	ebiten.KeyBackspace:  2, // Select
	ebiten.KeyEnter:      3, // Start
	ebiten.KeyArrowRight: 4,
	ebiten.KeyArrowLeft:  5,
	ebiten.KeyArrowUp:    6,
	ebiten.KeyArrowDown:  7,
	ebiten.KeyS:          8, // R
	ebiten.KeyA:          9, // L
}

// app implements ebiten.Game, driving the front-end thread: it polls the
// keyboard into KeyInput commands and blits whatever frame the emulator
// goroutine last produced.
type app struct {
	queue *message.Queue
	emu   *emulator.Emulator
	sink  *ringSink

	mu     sync.Mutex
	pixels []byte
	tex    *ebiten.Image

	audioCtx    *audio.Context
	audioPlayer *audio.Player
}

func newApp(queue *message.Queue) *app {
	sink := newRingSink()
	a := &app{
		queue:  queue,
		sink:   sink,
		pixels: make([]byte, displayWidth*displayHeight*4),
	}
	a.emu = emulator.New(queue, sink)
	a.emu.OnFrame(a.captureFrame)
	go a.emu.Loop()
	return a
}

func (a *app) captureFrame() {
	frame := a.emu.Frame()
	correct := a.emu.ColorCorrection()

	a.mu.Lock()
	for i, c := range frame {
		r, g, b := rgb555(c)
		if correct {
			r, g, b = applyGammaCorrection(r, g, b)
		}
		a.pixels[i*4+0] = r
		a.pixels[i*4+1] = g
		a.pixels[i*4+2] = b
		a.pixels[i*4+3] = 0xFF
	}
	a.mu.Unlock()
}

func rgb555(c uint16) (r, g, b byte) {
	r5 := c & 0x1F
	g5 := (c >> 5) & 0x1F
	b5 := (c >> 10) & 0x1F
	return byte(r5<<3 | r5>>2), byte(g5<<3 | g5>>2), byte(b5<<3 | b5>>2)
}

// applyGammaCorrection approximates the GBA LCD's non-linear response,
// which makes raw RGB555 colors look washed out on a modern sRGB panel.
func applyGammaCorrection(r, g, b byte) (byte, byte, byte) {
	gamma := func(v byte) byte {
		f := float64(v) / 255.0
		f = f * f * (3 - 2*f) // smoothstep, a cheap approximation of the LCD curve
		return byte(f * 255.0)
	}
	return gamma(r), gamma(g), gamma(b)
}

func (a *app) Update() error {
	if a.audioPlayer == nil {
		a.audioCtx = audio.NewContext(audioSampleHz)
		if p, err := a.audioCtx.NewPlayer(a.sink); err == nil {
			a.audioPlayer = p
			a.audioPlayer.Play()
		}
	}

	for key, bit := range keyMap {
		a.queue.Push(message.Command{
			Type:    message.TypeKeyInput,
			Payload: message.KeyInputPayload{Key: bit, Pressed: ebiten.IsKeyPressed(key)},
		})
	}

	return nil
}

func (a *app) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(displayWidth, displayHeight)
	}
	a.mu.Lock()
	a.tex.WritePixels(a.pixels)
	a.mu.Unlock()
	screen.DrawImage(a.tex, nil)
}

func (a *app) Layout(outsideWidth, outsideHeight int) (int, int) {
	return displayWidth, displayHeight
}

func runWindow(a *app) error {
	ebiten.SetWindowSize(displayWidth*windowScale, displayHeight*windowScale)
	ebiten.SetWindowTitle("gbacore")
	err := ebiten.RunGame(a)
	a.queue.Push(message.Command{Type: message.TypeExit})
	return err
}
