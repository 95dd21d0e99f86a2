package joypad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetStateIsNothingPressed(t *testing.T) {
	j := New()
	require.Equal(t, uint16(0x03FF), j.KeyInput())
}

func TestSetKeyClearsBitWhenPressed(t *testing.T) {
	j := New()
	j.SetKey(A, true)
	require.Equal(t, uint16(0x03FF&^1), j.KeyInput())
	j.SetKey(A, false)
	require.Equal(t, uint16(0x03FF), j.KeyInput())
}

func TestIRQPendingORCondition(t *testing.T) {
	j := New()
	j.WriteIO8(RegKeyCnt, uint8(1<<A|1<<B))
	j.WriteIO8(RegKeyCnt+1, 1<<6) // irqEnable, OR condition
	require.False(t, j.IRQPending())
	j.SetKey(A, true)
	require.True(t, j.IRQPending())
}

func TestIRQPendingANDCondition(t *testing.T) {
	j := New()
	j.WriteIO8(RegKeyCnt, uint8(1<<A|1<<B))
	j.WriteIO8(RegKeyCnt+1, 1<<6|1<<7) // irqEnable, AND condition
	j.SetKey(A, true)
	require.False(t, j.IRQPending())
	j.SetKey(B, true)
	require.True(t, j.IRQPending())
}

func TestIOReadWriteRoundTrip(t *testing.T) {
	j := New()
	j.SetKey(Start, true)
	require.Equal(t, uint8(j.KeyInput()), j.ReadIO8(RegKeyInput))
	require.Equal(t, uint8(j.KeyInput()>>8), j.ReadIO8(RegKeyInput+1))
}
