package hostserial_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cockpit-vm/cockpitvm/bootloader"
	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/platform/hostserial"
	"github.com/cockpit-vm/cockpitvm/platform/sim"
)

// TestLoopbackBootloaderSessionFlashesImage drives a real bootloader.Session
// over a pty-backed byte stream instead of in-process function calls,
// running the "host sender" and "device session" halves as two goroutines
// joined by an errgroup.Group (§5's host-side integration harness).
func TestLoopbackBootloaderSessionFlashesImage(t *testing.T) {
	link, err := hostserial.OpenLoopback()
	require.NoError(t, err)
	defer link.Close()

	port := sim.New(nil)
	sess := bootloader.New(port, bootloader.DefaultConfig())
	image := []byte("0123456789ABCDEF")

	var g errgroup.Group
	g.Go(func() error { return runHostSender(link.Host, image) })
	g.Go(func() error { return runDeviceSession(link.Device, port, sess) })
	require.NoError(t, g.Wait())

	require.Equal(t, uint32(len(image)), sess.Stats().BytesProgrammed)
	require.Equal(t, 3, sess.Stats().FramesReceived) // handshake + prepare + 1 data packet
	raw, err := port.FlashRead(0, len(image))
	require.NoError(t, err)
	require.Equal(t, image, raw)
}

// runHostSender plays the host side of one complete flashing session:
// handshake, prepare-with-verify, then the whole image as a single
// DataPacket.
func runHostSender(w io.ReadWriter, image []byte) error {
	send := func(req *bootloader.Request) (*bootloader.Response, error) {
		payload, err := bootloader.EncodeRequest(req)
		if err != nil {
			return nil, err
		}
		frame, err := bootloader.EncodeFrame(payload)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(frame); err != nil {
			return nil, err
		}
		respPayload, err := hostserial.ReadFrame(w)
		if err != nil {
			return nil, err
		}
		resp, codecErr := bootloader.DecodeResponse(respPayload)
		if codecErr != nil {
			return nil, codecErr
		}
		return resp, nil
	}

	if _, err := send(&bootloader.Request{
		SequenceID: 1,
		Type:       bootloader.ReqHandshake,
		Handshake:  &bootloader.HandshakeRequest{ClientVersion: 1, MaxPacketSize: 256},
	}); err != nil {
		return err
	}

	if _, err := send(&bootloader.Request{
		SequenceID: 2,
		Type:       bootloader.ReqFlashProgram,
		FlashProgram: &bootloader.FlashProgramRequest{
			TotalDataLength:    uint32(len(image)),
			VerifyAfterProgram: true,
		},
	}); err != nil {
		return err
	}

	_, err := send(&bootloader.Request{
		SequenceID: 3,
		Type:       bootloader.ReqDataPacket,
		DataPacket: &bootloader.DataPacketRequest{Offset: 0, Payload: image, CRC32: crc.IEEE(image)},
	})
	return err
}

// runDeviceSession plays the device side: read one frame, decode it, hand
// it to the session, encode and send back whatever it returns, three times
// (handshake, prepare, one data packet).
func runDeviceSession(r io.ReadWriter, port *sim.Port, sess *bootloader.Session) error {
	for i := 0; i < 3; i++ {
		payload, err := hostserial.ReadFrame(r)
		if err != nil {
			return err
		}
		req, codecErr := bootloader.DecodeRequest(payload)
		if codecErr != nil {
			return codecErr
		}

		resp, _ := sess.HandleRequest(req, port.Millis())
		respPayload, err := bootloader.EncodeResponse(resp)
		if err != nil {
			return err
		}
		frame, err := bootloader.EncodeFrame(respPayload)
		if err != nil {
			return err
		}
		if _, err := r.Write(frame); err != nil {
			return err
		}
	}
	return nil
}
