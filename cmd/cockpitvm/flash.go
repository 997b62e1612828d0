package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cockpit-vm/cockpitvm/bootloader"
	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/platform/sim"
)

func newFlashCmd() *cobra.Command {
	var chunkSize int
	var verify bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "flash <image.bin>",
		Short: "Drive a bootloader session end to end against a simulated board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadBootloaderConfig(configPath)
			if err != nil {
				return err
			}

			port := sim.New(nil)
			sess := bootloader.New(port, cfg)

			seq := uint32(1)
			now := port.Millis()
			resp, outcome := sess.HandleRequest(&bootloader.Request{
				SequenceID: seq,
				Type:       bootloader.ReqHandshake,
				Handshake:  &bootloader.HandshakeRequest{ClientVersion: 1, MaxPacketSize: uint16(chunkSize)},
			}, now)
			if outcome != bootloader.Continue {
				return fmt.Errorf("handshake failed: %s", outcome)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handshake: server v%d, page size %d\n",
				resp.Handshake.ServerVersion, resp.Handshake.FlashPageSize)

			seq++
			resp, outcome = sess.HandleRequest(&bootloader.Request{
				SequenceID: seq,
				Type:       bootloader.ReqFlashProgram,
				FlashProgram: &bootloader.FlashProgramRequest{
					TotalDataLength:    uint32(len(data)),
					VerifyAfterProgram: verify,
				},
			}, now)
			if outcome != bootloader.Continue {
				return fmt.Errorf("prepare failed: %s", outcome)
			}

			for offset := 0; offset < len(data); offset += chunkSize {
				end := offset + chunkSize
				if end > len(data) {
					end = len(data)
				}
				chunk := data[offset:end]
				seq++
				resp, outcome = sess.HandleRequest(&bootloader.Request{
					SequenceID: seq,
					Type:       bootloader.ReqDataPacket,
					DataPacket: &bootloader.DataPacketRequest{
						Offset:  uint32(offset),
						Payload: chunk,
						CRC32:   crc.IEEE(chunk),
					},
				}, now)
				if outcome != bootloader.Continue && outcome != bootloader.Complete {
					return fmt.Errorf("data packet at offset %d failed: %s", offset, outcome)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "flash complete: %d bytes programmed\n", sess.Stats().BytesProgrammed)
			if resp.Type == bootloader.RespFlashProgramResponse {
				fmt.Fprintf(cmd.OutOrStdout(), "verification hash: 0x%08X\n", resp.FlashProgramResponse.VerificationHash)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 256, "bytes per DataPacket")
	cmd.Flags().BoolVar(&verify, "verify", true, "request readback verification")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML startup configuration file (§6); defaults to bootloader.DefaultConfig()")
	return cmd
}
