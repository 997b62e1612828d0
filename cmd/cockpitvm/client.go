package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cockpit-vm/cockpitvm/bootloader"
	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/platform/hostserial"
)

// newClientCmd drives a bootloader flashing session over a real serial
// device (a USB-UART adapter path, e.g. /dev/ttyUSB0) instead of the
// in-process simulator the `flash` subcommand targets.
func newClientCmd() *cobra.Command {
	var chunkSize int
	var verify bool

	cmd := &cobra.Command{
		Use:   "client <device> <image.bin>",
		Short: "Flash a guest image over a real serial device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			devicePath, imagePath := args[0], args[1]

			data, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}

			dev, err := os.OpenFile(devicePath, os.O_RDWR, 0)
			if err != nil {
				return err
			}
			defer dev.Close()

			// Raw mode disables line discipline so every byte the board
			// sends reaches us untouched, the same reasoning as the
			// interactive terminal host's stdin handling.
			oldState, err := term.MakeRaw(int(dev.Fd()))
			if err == nil {
				defer term.Restore(int(dev.Fd()), oldState)
			}

			seq := uint32(0)
			send := func(req *bootloader.Request) (*bootloader.Response, error) {
				payload, err := bootloader.EncodeRequest(req)
				if err != nil {
					return nil, err
				}
				frame, err := bootloader.EncodeFrame(payload)
				if err != nil {
					return nil, err
				}
				if _, err := dev.Write(frame); err != nil {
					return nil, err
				}
				respPayload, err := hostserial.ReadFrame(dev)
				if err != nil {
					return nil, err
				}
				resp, codecErr := bootloader.DecodeResponse(respPayload)
				if codecErr != nil {
					return nil, codecErr
				}
				return resp, nil
			}

			seq++
			resp, err := send(&bootloader.Request{
				SequenceID: seq,
				Type:       bootloader.ReqHandshake,
				Handshake:  &bootloader.HandshakeRequest{ClientVersion: 1, MaxPacketSize: uint16(chunkSize)},
			})
			if err != nil {
				return fmt.Errorf("handshake: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handshake: server v%d, page size %d\n",
				resp.Handshake.ServerVersion, resp.Handshake.FlashPageSize)

			seq++
			if _, err := send(&bootloader.Request{
				SequenceID: seq,
				Type:       bootloader.ReqFlashProgram,
				FlashProgram: &bootloader.FlashProgramRequest{
					TotalDataLength:    uint32(len(data)),
					VerifyAfterProgram: verify,
				},
			}); err != nil {
				return fmt.Errorf("prepare: %w", err)
			}

			for offset := 0; offset < len(data); offset += chunkSize {
				end := offset + chunkSize
				if end > len(data) {
					end = len(data)
				}
				chunk := data[offset:end]
				seq++
				resp, err = send(&bootloader.Request{
					SequenceID: seq,
					Type:       bootloader.ReqDataPacket,
					DataPacket: &bootloader.DataPacketRequest{
						Offset:  uint32(offset),
						Payload: chunk,
						CRC32:   crc.IEEE(chunk),
					},
				})
				if err != nil {
					return fmt.Errorf("data packet at offset %d: %w", offset, err)
				}
			}

			if resp.Type == bootloader.RespFlashProgramResponse {
				fmt.Fprintf(cmd.OutOrStdout(), "verification hash: 0x%08X\n", resp.FlashProgramResponse.VerificationHash)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "flash complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 256, "bytes per DataPacket")
	cmd.Flags().BoolVar(&verify, "verify", true, "request readback verification")
	return cmd
}
