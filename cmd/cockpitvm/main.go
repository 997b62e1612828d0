// main.go - cockpitvm: host CLI for running, flashing, and debugging guest
// images against either the in-process simulated platform port or a real
// board attached over serial.
//
// Grounded on the pack's cobra-based emulator CLIs (bradford-hamilton-chippy,
// zboralski-galago) for subcommand structure, generalized from the
// teacher's bare `flag` usage in cmd/ie32to64.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cockpitvm",
		Short: "Host tooling for the CockpitVM embedded bytecode VM",
		Long: `cockpitvm drives a CockpitVM guest image against a simulated or real
platform port: run it to completion, flash it over a bootloader session, or
disassemble it for inspection.`,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newFlashCmd())
	root.AddCommand(newBootloaderCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newClientCmd())
	return root
}
