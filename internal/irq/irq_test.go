package irq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineAssertedOnlyWhenEnabledAndFlagged(t *testing.T) {
	c := New()
	require.False(t, c.Line())
	c.IE = 1 << VBlank
	require.False(t, c.Line())
	c.Request(VBlank)
	require.True(t, c.Line())
}

func TestPendingRequiresIME(t *testing.T) {
	c := New()
	c.IE = 1 << Timer0
	c.Request(Timer0)
	require.False(t, c.Pending())
	c.IME = true
	require.True(t, c.Pending())
}

func TestAcknowledgeClearsOnlyRequestedBits(t *testing.T) {
	c := New()
	c.Request(VBlank)
	c.Request(HBlank)
	c.Acknowledge(1 << VBlank)
	require.Equal(t, uint16(1<<HBlank), c.IF)
}

func TestIOReadWriteRoundTrip(t *testing.T) {
	c := New()
	c.WriteIO8(RegIE, 0x34)
	c.WriteIO8(RegIE+1, 0x12)
	require.Equal(t, uint16(0x1234), c.IE)

	c.IF = 0x1234
	c.WriteIO8(RegIF, 0x04) // clears bit 2
	require.Equal(t, uint16(0x1230), c.IF)

	c.WriteIO8(RegIME, 1)
	require.True(t, c.IME)
}
