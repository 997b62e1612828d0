package bootloader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTripAllVariants(t *testing.T) {
	cases := []*Request{
		{
			SequenceID: 1,
			Type:       ReqHandshake,
			Handshake:  &HandshakeRequest{ClientVersion: 3, MaxPacketSize: 512, Capabilities: 0xFF},
		},
		{
			SequenceID:   2,
			Type:         ReqFlashProgram,
			FlashProgram: &FlashProgramRequest{TotalDataLength: 1024, VerifyAfterProgram: true},
		},
		{
			SequenceID: 3,
			Type:       ReqDataPacket,
			DataPacket: &DataPacketRequest{Offset: 256, Payload: []byte{1, 2, 3, 4}, CRC32: 0xABCDEF01},
		},
	}
	for _, req := range cases {
		encoded, err := EncodeRequest(req)
		require.NoError(t, err)

		decoded, decErr := DecodeRequest(encoded)
		require.Nil(t, decErr)
		require.Equal(t, req, decoded)
	}
}

func TestResponseRoundTripAllVariants(t *testing.T) {
	cases := []*Response{
		{
			SequenceID: 1,
			Type:       RespHandshake,
			Handshake:  &HandshakeResponse{ServerVersion: 1, FlashPageSize: 2048, TargetFlashAddress: 0x0801F800, Capabilities: 7},
		},
		{
			SequenceID:     2,
			Type:           RespAcknowledgment,
			Acknowledgment: &AcknowledgmentResponse{Success: false, Message: "bad offset"},
		},
		{
			SequenceID:           3,
			Type:                 RespFlashProgramResponse,
			FlashProgramResponse: &FlashProgramResponse{BytesProgrammed: 2048, ActualDataLength: 2040, VerificationHash: 0x1234ABCD},
		},
	}
	for _, resp := range cases {
		encoded, err := EncodeResponse(resp)
		require.NoError(t, err)

		decoded, decErr := DecodeResponse(encoded)
		require.Nil(t, decErr)
		require.Equal(t, resp, decoded)
	}
}

func TestDecodeRequestRejectsUnknownType(t *testing.T) {
	_, decErr := DecodeRequest([]byte{0, 0, 0, 1, 0xFF})
	require.NotNil(t, decErr)
}
