package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gbacore/internal/savestate"
)

func newQuicksaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quicksave",
		Short: "Inspect quicksave files",
	}
	cmd.AddCommand(newQuicksaveInspectCommand())
	return cmd
}

func newQuicksaveInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Print a quicksave's version header and per-section sizes without resuming emulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			h, err := savestate.Inspect(f)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}

			fmt.Printf("version: %d\n", h.Version)
			for name, size := range h.SectionSizes {
				fmt.Printf("  %-10s %d bytes\n", name, size)
			}
			return nil
		},
	}
}
