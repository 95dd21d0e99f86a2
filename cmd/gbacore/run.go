package main

import (
	"github.com/spf13/cobra"

	"gbacore/internal/message"
)

func newRunCommand() *cobra.Command {
	var (
		biosPath     string
		speed        float64
		resampleHz   int
		colorCorrect bool
	)

	cmd := &cobra.Command{
		Use:   "run <rom>",
		Short: "Run a ROM in a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			romPath := args[0]

			queue := message.New()
			if biosPath != "" {
				queue.Push(message.Command{Type: message.TypeLoadBios, Payload: message.PathPayload{Path: biosPath}})
			}
			queue.Push(message.Command{Type: message.TypeLoadRom, Payload: message.PathPayload{Path: romPath}})
			if resampleHz > 0 {
				queue.Push(message.Command{Type: message.TypeAudioResampleFreq, Payload: message.AudioResampleFreqPayload{Hz: resampleHz}})
			}
			queue.Push(message.Command{Type: message.TypeColorCorrection, Payload: message.ColorCorrectionPayload{Enabled: colorCorrect}})
			queue.Push(message.Command{Type: message.TypeRun, Payload: message.RunPayload{Speed: speed}})

			app := newApp(queue)
			return runWindow(app)
		},
	}

	cmd.Flags().StringVar(&biosPath, "bios", "", "path to a GBA BIOS image")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "emulation speed multiplier (1.0 = native 59.737Hz)")
	cmd.Flags().IntVar(&resampleHz, "resample-hz", 0, "requested APU output rate; the core ignores it and always outputs 32768Hz")
	cmd.Flags().BoolVar(&colorCorrect, "color-correct", false, "apply GBA LCD gamma correction to displayed colors")

	return cmd
}
