package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingSinkPushThenRead(t *testing.T) {
	s := newRingSink()
	s.PushSample(1, -1)
	s.PushSample(2, -2)

	p := make([]byte, 4*4) // 4 frames
	n, err := s.Read(p)
	require.NoError(t, err)
	require.Equal(t, 16, n)

	require.Equal(t, int16(1), int16(p[0])|int16(p[1])<<8)
	require.Equal(t, int16(-1), int16(p[2])|int16(p[3])<<8)
	require.Equal(t, int16(2), int16(p[4])|int16(p[5])<<8)
	require.Equal(t, int16(-2), int16(p[6])|int16(p[7])<<8)
	// underrun past what was pushed is zero-padded
	require.Equal(t, byte(0), p[8])
	require.Equal(t, byte(0), p[9])
}

func TestRingSinkDropsOldestWhenFull(t *testing.T) {
	s := newRingSink()
	for i := 0; i < ringCapacity+5; i++ {
		s.PushSample(int16(i), int16(-i))
	}
	require.Len(t, s.left, ringCapacity)
	require.Equal(t, int16(5), s.left[0])
}

func TestRGB555Expansion(t *testing.T) {
	r, g, b := rgb555(0x7FFF) // all five-bit fields maxed
	require.Equal(t, byte(0xFF), r)
	require.Equal(t, byte(0xFF), g)
	require.Equal(t, byte(0xFF), b)

	r, g, b = rgb555(0)
	require.Equal(t, byte(0), r)
	require.Equal(t, byte(0), g)
	require.Equal(t, byte(0), b)
}

func TestGammaCorrectionPreservesExtremes(t *testing.T) {
	r, g, b := applyGammaCorrection(0, 0, 0)
	require.Equal(t, byte(0), r)
	require.Equal(t, byte(0), g)
	require.Equal(t, byte(0), b)

	r, g, b = applyGammaCorrection(255, 255, 255)
	require.Equal(t, byte(255), r)
	require.Equal(t, byte(255), g)
	require.Equal(t, byte(255), b)
}
