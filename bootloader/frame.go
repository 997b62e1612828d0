// frame.go - Wire framing for the bootloader serial transport (§4.5):
// START | LENGTH | PAYLOAD | CRC16 | END, with CRC16-CCITT protecting
// LENGTH||PAYLOAD. Grounded on the teacher's terminal_io.go byte-oriented
// reader, reworked from a raw passthrough into a validating frame decoder.

package bootloader

import (
	"encoding/binary"
	"fmt"

	"github.com/cockpit-vm/cockpitvm/internal/crc"
)

const (
	frameStart = 0x7E
	frameEnd   = 0x7F

	// MaxPayloadLength bounds a single frame's PAYLOAD, chosen to comfortably
	// exceed one DataPacket record at the default handshake packet size.
	MaxPayloadLength = 2048

	// frameOverheadBytes is START + LENGTH(2) + CRC16(2) + END.
	frameOverheadBytes = 6
)

// FramingError reports a malformed frame: bad start/end marker, a length
// exceeding MaxPayloadLength, or a CRC16 mismatch. It is always recoverable
// (§7). Session never sees a FramingError: it is returned to the code that
// reads frames, and the session's phase is left as it was.
type FramingError struct{ Detail string }

func (e *FramingError) Error() string { return e.Detail }

func framingErrf(format string, args ...any) *FramingError {
	return &FramingError{Detail: fmt.Sprintf(format, args...)}
}

// EncodeFrame wraps payload in the wire frame, computing CRC16-CCITT over
// LENGTH||PAYLOAD.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, framingErrf("payload length %d exceeds max %d", len(payload), MaxPayloadLength)
	}
	buf := make([]byte, 0, len(payload)+frameOverheadBytes)
	buf = append(buf, frameStart)
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(payload)))
	buf = append(buf, length...)
	buf = append(buf, payload...)

	sum := crc.CCITT(buf[1:])
	sumBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(sumBytes, sum)
	buf = append(buf, sumBytes...)
	buf = append(buf, frameEnd)
	return buf, nil
}

// DecodeFrame validates and strips one frame from buf, returning the
// payload and the number of bytes consumed. It returns a *FramingError (not
// a generic error) so callers can classify the failure per §7 without a
// type switch on arbitrary error strings.
//
// DecodeFrame does not block for more bytes: if buf does not yet contain a
// complete frame, it returns (nil, 0, nil) so the caller's byte-at-a-time
// reader can keep accumulating against the frame timeout.
func DecodeFrame(buf []byte) (payload []byte, consumed int, err *FramingError) {
	if len(buf) == 0 {
		return nil, 0, nil
	}
	if buf[0] != frameStart {
		return nil, 0, framingErrf("bad start byte 0x%02X", buf[0])
	}
	if len(buf) < 3 {
		return nil, 0, nil
	}
	length := int(binary.BigEndian.Uint16(buf[1:3]))
	if length > MaxPayloadLength {
		return nil, 0, framingErrf("length %d exceeds max %d", length, MaxPayloadLength)
	}
	total := frameOverheadBytes + length
	if len(buf) < total {
		return nil, 0, nil
	}

	payloadStart := 3
	payloadEnd := payloadStart + length
	wantCRC := binary.BigEndian.Uint16(buf[payloadEnd : payloadEnd+2])
	gotCRC := crc.CCITT(buf[1:payloadEnd])
	if wantCRC != gotCRC {
		return nil, total, framingErrf("CRC16 mismatch: frame 0x%04X, computed 0x%04X", wantCRC, gotCRC)
	}
	if buf[payloadEnd+2] != frameEnd {
		return nil, total, framingErrf("bad end byte 0x%02X", buf[payloadEnd+2])
	}
	return buf[payloadStart:payloadEnd], total, nil
}
