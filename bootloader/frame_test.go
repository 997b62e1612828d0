package bootloader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello bootloader")
	framed, err := EncodeFrame(payload)
	require.NoError(t, err)

	got, consumed, decErr := DecodeFrame(framed)
	require.Nil(t, decErr)
	require.Equal(t, len(framed), consumed)
	require.Equal(t, payload, got)
}

func TestDecodeFrameIncompleteReturnsZeroConsumed(t *testing.T) {
	framed, err := EncodeFrame([]byte("partial"))
	require.NoError(t, err)

	got, consumed, decErr := DecodeFrame(framed[:len(framed)-3])
	require.Nil(t, decErr)
	require.Nil(t, got)
	require.Equal(t, 0, consumed)
}

func TestDecodeFrameCRCMismatch(t *testing.T) {
	framed, err := EncodeFrame([]byte("corrupt me"))
	require.NoError(t, err)
	framed[5] ^= 0xFF // flip a payload bit without fixing the CRC

	_, _, decErr := DecodeFrame(framed)
	require.NotNil(t, decErr)
}

func TestDecodeFrameBadStartByte(t *testing.T) {
	_, _, decErr := DecodeFrame([]byte{0x00, 0x00, 0x01, 0xAA, 0x00, 0x00, 0x7F})
	require.NotNil(t, decErr)
}
