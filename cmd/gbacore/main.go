// Command gbacore is the front-end harness around gbacore's emulation
// core: a windowed runner plus a handful of offline save-state diagnostics.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gbacore",
		Short: "A Game Boy Advance emulation core and diagnostics CLI",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newQuicksaveCommand())
	root.AddCommand(newAudioDumpCommand())
	root.AddCommand(newSchedDumpCommand())

	if err := root.Execute(); err != nil {
		log.SetFlags(0)
		log.Println(err)
		os.Exit(1)
	}
}
