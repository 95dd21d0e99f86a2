package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushDrainPreservesFIFOOrder(t *testing.T) {
	q := New()
	q.Push(Command{Type: TypeLoadBios, Payload: PathPayload{Path: "bios.bin"}})
	q.Push(Command{Type: TypeLoadRom, Payload: PathPayload{Path: "game.gba"}})
	q.Push(Command{Type: TypeRun, Payload: RunPayload{Speed: 1.0}})

	require.Equal(t, 3, q.Len())
	drained := q.Drain()
	require.Len(t, drained, 3)
	require.Equal(t, TypeLoadBios, drained[0].Type)
	require.Equal(t, TypeLoadRom, drained[1].Type)
	require.Equal(t, TypeRun, drained[2].Type)
	require.Equal(t, 0, q.Len())
}

func TestDrainEmptiesTheQueue(t *testing.T) {
	q := New()
	q.Push(Command{Type: TypeExit})
	q.Drain()
	require.Nil(t, q.Drain())
}

func TestCleanupRunsOnlyWhenCallerInvokesIt(t *testing.T) {
	q := New()
	freed := false
	q.Push(Command{
		Type:    TypeLoadRom,
		Payload: PathPayload{Path: "game.gba"},
		Cleanup: func(any) { freed = true },
	})
	drained := q.Drain()
	require.False(t, freed)
	for _, cmd := range drained {
		if cmd.Cleanup != nil {
			cmd.Cleanup(cmd.Payload)
		}
	}
	require.True(t, freed)
}

func TestConcurrentPushIsSafe(t *testing.T) {
	q := New()
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(n int) {
			q.Push(Command{Type: TypeKeyInput, Payload: KeyInputPayload{Key: uint32(n), Pressed: true}})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	require.Equal(t, 50, q.Len())
}
