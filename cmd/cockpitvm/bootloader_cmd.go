package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cockpit-vm/cockpitvm/platform"
	"github.com/cockpit-vm/cockpitvm/platform/sim"
	"github.com/cockpit-vm/cockpitvm/startup"
)

func newBootloaderCmd() *cobra.Command {
	var flashBase uint32
	var pageSize int

	cmd := &cobra.Command{
		Use:   "bootloader",
		Short: "Force entry into bootloader mode on the simulated board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := sim.New(nil)
			if err := port.GPIOConfigure(0, platform.PinModeOutput); err != nil {
				return err
			}
			if err := port.GPIOWrite(0, true); err != nil {
				return err
			}

			coordinator := startup.New(port, startup.Config{
				BootloaderPin: 0,
				FlashBaseAddr: flashBase,
				FlashPageSize: pageSize,
			})
			result := coordinator.Boot(stdoutSink{}, stdoutSink{})
			fmt.Fprintf(cmd.OutOrStdout(), "outcome: %s\n", result.Outcome)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&flashBase, "flash-base", 0, "simulated flash base address")
	cmd.Flags().IntVar(&pageSize, "page-size", 2048, "reserved guest page size in bytes")
	return cmd
}
