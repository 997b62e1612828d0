package bootloader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/platform/sim"
)

func newTestSession() (*Session, *sim.Port) {
	port := sim.New(nil)
	cfg := DefaultConfig()
	cfg.TargetFlashAddress = 0
	cfg.FlashPageSize = 2048
	return New(port, cfg), port
}

// TestBootloaderHappyPath drives a full Handshake -> Prepare -> Data ->
// Verify -> Complete session with a single 16-byte image, matching
// scenario 5 of the quantified test properties (§8).
func TestBootloaderHappyPath(t *testing.T) {
	sess, _ := newTestSession()
	require.Equal(t, PhaseIdle, sess.Phase())

	resp, outcome := sess.HandleRequest(&Request{
		SequenceID: 1,
		Type:       ReqHandshake,
		Handshake:  &HandshakeRequest{ClientVersion: 1, MaxPacketSize: 256},
	}, 0)
	require.Equal(t, Continue, outcome)
	require.Equal(t, RespHandshake, resp.Type)
	require.Equal(t, PhaseHandshake, sess.Phase())

	image := []byte("0123456789ABCDEF")
	resp, outcome = sess.HandleRequest(&Request{
		SequenceID: 2,
		Type:       ReqFlashProgram,
		FlashProgram: &FlashProgramRequest{
			TotalDataLength:    uint32(len(image)),
			VerifyAfterProgram: true,
		},
	}, 10)
	require.Equal(t, Continue, outcome)
	require.True(t, resp.Acknowledgment.Success)
	require.Equal(t, PhaseReceiveData, sess.Phase())

	resp, outcome = sess.HandleRequest(&Request{
		SequenceID: 3,
		Type:       ReqDataPacket,
		DataPacket: &DataPacketRequest{Offset: 0, Payload: image, CRC32: crc.IEEE(image)},
	}, 20)
	require.Equal(t, Complete, outcome)
	require.Equal(t, PhaseComplete, sess.Phase())
	require.Equal(t, RespFlashProgramResponse, resp.Type)
	require.Equal(t, uint32(len(image)), resp.FlashProgramResponse.ActualDataLength)
	require.Equal(t, uint32(16), resp.FlashProgramResponse.BytesProgrammed) // already 8-byte aligned
}

// TestDataPacketCRCMismatchRecoversToIdle is scenario 6: a corrupted data
// packet is a recoverable error that resets the session to Idle without
// ending it, per §7's framing/sequence error classification.
func TestDataPacketCRCMismatchRecoversToIdle(t *testing.T) {
	sess, _ := newTestSession()
	sess.HandleRequest(&Request{SequenceID: 1, Type: ReqHandshake, Handshake: &HandshakeRequest{}}, 0)
	sess.HandleRequest(&Request{
		SequenceID:   2,
		Type:         ReqFlashProgram,
		FlashProgram: &FlashProgramRequest{TotalDataLength: 8},
	}, 1)

	resp, outcome := sess.HandleRequest(&Request{
		SequenceID: 3,
		Type:       ReqDataPacket,
		DataPacket: &DataPacketRequest{Offset: 0, Payload: []byte("12345678"), CRC32: 0xDEADBEEF},
	}, 2)

	require.Equal(t, RecoverableError, outcome)
	require.False(t, resp.Acknowledgment.Success)
	require.Equal(t, PhaseIdle, sess.Phase())
	require.Equal(t, 1, sess.Stats().RecoverableErrors)
}

func TestSessionTimeoutResetsToIdle(t *testing.T) {
	sess, _ := newTestSession()
	sess.HandleRequest(&Request{SequenceID: 1, Type: ReqHandshake, Handshake: &HandshakeRequest{}}, 0)

	_, outcome := sess.HandleRequest(&Request{
		SequenceID:   2,
		Type:         ReqFlashProgram,
		FlashProgram: &FlashProgramRequest{TotalDataLength: 8},
	}, sess.cfg.SessionTimeoutMs+1000)

	require.Equal(t, Timeout, outcome)
	require.Equal(t, PhaseIdle, sess.Phase())
}
