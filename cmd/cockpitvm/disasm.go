package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cockpit-vm/cockpitvm/startup"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

func newDisasmCmd() *cobra.Command {
	var pageSize int
	var raw bool

	cmd := &cobra.Command{
		Use:   "disasm <image.bin>",
		Short: "Disassemble a guest image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var instructions []engine.Instruction
			if raw {
				if len(data)%4 != 0 {
					return fmt.Errorf("raw image length %d is not a multiple of 4", len(data))
				}
				instructions = make([]engine.Instruction, len(data)/4)
				for i := range instructions {
					off := i * 4
					instructions[i] = engine.Instruction{
						Opcode:    data[off],
						Flags:     data[off+1],
						Immediate: uint16(data[off+2]) | uint16(data[off+3])<<8,
					}
				}
			} else {
				parsed, imgErr := startup.ParseImage(data, pageSize)
				if imgErr != nil {
					return imgErr
				}
				instructions = parsed
			}

			for _, line := range engine.DisassembleProgram(instructions) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 2048, "reserved guest page size in bytes")
	cmd.Flags().BoolVar(&raw, "raw", false, "treat the input as a headerless instruction stream")
	return cmd
}
