package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cockpit-vm/cockpitvm/platform/sim"
	"github.com/cockpit-vm/cockpitvm/startup"
)

type stdoutSink struct{}

func (stdoutSink) Write(text string) { fmt.Print(text) }

func newRunCmd() *cobra.Command {
	var budget int
	var flashBase uint32
	var pageSize int
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <image.bin>",
		Short: "Load a guest image into simulated flash and run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			port := sim.New(nil)
			padded := make([]byte, (len(raw)+7)/8*8)
			copy(padded, raw)
			if err := port.FlashErasePage(flashBase); err != nil {
				return err
			}
			for off := 0; off < len(padded); off += 8 {
				word := uint64(0)
				for i := 0; i < 8; i++ {
					word |= uint64(padded[off+i]) << (8 * i)
				}
				if err := port.FlashProgram64(flashBase+uint32(off), word); err != nil {
					return err
				}
			}

			cfg, log, err := loadStartupConfig(configPath)
			if err != nil {
				return err
			}
			if log != nil {
				defer log.Sync()
			}
			if configPath == "" {
				cfg = startup.Config{
					FlashBaseAddr:     flashBase,
					FlashPageSize:     pageSize,
					InstructionBudget: budget,
				}
			}

			coordinator := startup.New(port, cfg)
			result := coordinator.Boot(stdoutSink{}, stdoutSink{})

			fmt.Fprintf(cmd.OutOrStdout(), "outcome: %s\n", result.Outcome)
			if result.Err != nil {
				return result.Err
			}
			if result.VM != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "instructions executed: %d\n", result.VM.Instructions)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&budget, "budget", 0, "instruction execution budget (0 = unbounded)")
	cmd.Flags().Uint32Var(&flashBase, "flash-base", 0, "simulated flash base address")
	cmd.Flags().IntVar(&pageSize, "page-size", 2048, "reserved guest page size in bytes")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML startup configuration file (§6); overrides the flags above")
	return cmd
}
