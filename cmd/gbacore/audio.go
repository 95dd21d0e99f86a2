package main

import (
	"encoding/binary"
	"sync"
)

// ringSink buffers APU samples between the emulator goroutine (producer,
// via PushSample) and ebiten's audio player (consumer, via Read). Capacity
// is generous enough to absorb normal scheduling jitter; once full the
// oldest samples are dropped rather than blocking the emulator thread.
type ringSink struct {
	mu          sync.Mutex
	left, right []int16
}

const ringCapacity = 1 << 14 // ~0.5s at 32768Hz

func newRingSink() *ringSink {
	return &ringSink{}
}

// PushSample implements apu.Sink.
func (s *ringSink) PushSample(left, right int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.left) >= ringCapacity {
		s.left = s.left[1:]
		s.right = s.right[1:]
	}
	s.left = append(s.left, left)
	s.right = append(s.right, right)
}

// Read implements io.Reader for ebiten/v2/audio.Context.NewPlayer, emitting
// 16-bit little-endian interleaved stereo frames.
func (s *ringSink) Read(p []byte) (int, error) {
	frames := len(p) / 4
	s.mu.Lock()
	n := frames
	if n > len(s.left) {
		n = len(s.left)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(s.left[i]))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(s.right[i]))
	}
	s.left = s.left[n:]
	s.right = s.right[n:]
	s.mu.Unlock()

	for i := n; i < frames; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], 0)
		binary.LittleEndian.PutUint16(p[i*4+2:], 0)
	}
	return frames * 4, nil
}
