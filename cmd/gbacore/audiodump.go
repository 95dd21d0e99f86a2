package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"gbacore/internal/emulator"
	"gbacore/internal/message"
)

func newAudioDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audio-dump <savestate> <out.wav>",
		Short: "Load a quicksave and render one frame of APU output to a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpAudioFrame(args[0], args[1])
		},
	}
}

func dumpAudioFrame(savePath, outPath string) error {
	sink := newRingSink()
	e := emulator.New(message.New(), sink)
	if err := e.LoadSnapshot(savePath); err != nil {
		return fmt.Errorf("load %s: %w", savePath, err)
	}
	e.AdvanceFrame()

	sink.mu.Lock()
	left := append([]int16(nil), sink.left...)
	right := append([]int16(nil), sink.right...)
	sink.mu.Unlock()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, audioSampleHz, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: audioSampleHz},
		Data:   make([]int, 0, len(left)*2),
	}
	for i := range left {
		buf.Data = append(buf.Data, int(left[i]), int(right[i]))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}
