package main

import (
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/spf13/cobra"

	"gbacore/internal/savestate"
)

func newSchedDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sched-dump <savestate> <out.dot>",
		Short: "Load a quicksave and render the scheduler's pending events as a Graphviz file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpScheduler(args[0], args[1])
		},
	}
}

func dumpScheduler(savePath, outPath string) error {
	f, err := os.Open(savePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", savePath, err)
	}
	defer f.Close()

	snap, err := savestate.Load(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", savePath, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	memviz.Map(out, &snap.Scheduler)
	return nil
}
