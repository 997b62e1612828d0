// message.go - The bootloader message layer (§4.5): length-delimited
// request/response records carrying a sequence id and a oneof-style request
// or response body.
//
// The spec describes the payload encoding as "a schema-driven serialization
// (a Protocol Buffers-compatible scheme is assumed)" but only constrains
// behaviour, not bytes on the wire. Rather than pull in
// google.golang.org/protobuf for three fixed record shapes, this is a small
// explicit binary codec: sequence id, a one-byte type tag, then the typed
// fields for that tag (see DESIGN.md for the tradeoff). Variable-length
// fields (byte payloads, messages) are length-prefixed the same way the
// outer frame length-prefixes its payload.

package bootloader

import (
	"encoding/binary"
	"fmt"
)

// RequestType tags which oneof request variant a Request carries.
type RequestType uint8

const (
	ReqHandshake RequestType = iota + 1
	ReqFlashProgram
	ReqDataPacket
)

// ResponseType tags which oneof response variant a Response carries.
type ResponseType uint8

const (
	RespHandshake ResponseType = iota + 1
	RespAcknowledgment
	RespFlashProgramResponse
)

// HandshakeRequest announces the client's protocol version, max packet
// size, and capability bitmask.
type HandshakeRequest struct {
	ClientVersion uint16
	MaxPacketSize uint16
	Capabilities  uint32
}

// FlashProgramRequest declares the total data length about to be sent and
// whether the server should read back and hash after programming.
// verify_after_program=false selects prepare semantics (§4.5 "Prepare").
type FlashProgramRequest struct {
	TotalDataLength    uint32
	VerifyAfterProgram bool
}

// DataPacketRequest carries one chunk of the staged image: a cumulative
// offset, the payload itself, and a CRC32 the server must recompute and
// match before accepting it.
type DataPacketRequest struct {
	Offset  uint32
	Payload []byte
	CRC32   uint32
}

// Request is one message-layer request record. Exactly one of Handshake,
// FlashProgram, DataPacket is populated, selected by Type.
type Request struct {
	SequenceID   uint32
	Type         RequestType
	Handshake    *HandshakeRequest
	FlashProgram *FlashProgramRequest
	DataPacket   *DataPacketRequest
}

// HandshakeResponse echoes the server's own version, flash geometry, and
// canonical capability set; mismatched client capabilities are not fatal
// (§4.5 "Handshake").
type HandshakeResponse struct {
	ServerVersion      uint16
	FlashPageSize      uint16
	TargetFlashAddress uint32
	Capabilities       uint32
}

// AcknowledgmentResponse is the generic accept/reject response: it answers
// Prepare and non-final DataPackets, a final DataPacket when verify was not
// requested, and any rejected request.
type AcknowledgmentResponse struct {
	Success bool
	Message string
}

// FlashProgramResponse reports the two tracked lengths and, when verify was
// requested, a verification hash over the unpadded data (§4.5 "Verify").
type FlashProgramResponse struct {
	BytesProgrammed  uint32
	ActualDataLength uint32
	VerificationHash uint32
}

// Response is one message-layer response record, echoing the SequenceID of
// the request it answers.
type Response struct {
	SequenceID           uint32
	Type                 ResponseType
	Handshake            *HandshakeResponse
	Acknowledgment       *AcknowledgmentResponse
	FlashProgramResponse *FlashProgramResponse
}

// CodecError reports a malformed message-layer record: truncated buffer,
// unknown type tag, or a length field that does not fit the remaining
// bytes.
type CodecError struct{ Detail string }

func (e *CodecError) Error() string { return e.Detail }

func codecErrf(format string, args ...any) *CodecError {
	return &CodecError{Detail: fmt.Sprintf(format, args...)}
}

// EncodeRequest serializes a Request to its wire form (the bytes that
// become one frame's PAYLOAD).
func EncodeRequest(req *Request) ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = appendU32(buf, req.SequenceID)
	buf = append(buf, byte(req.Type))

	switch req.Type {
	case ReqHandshake:
		h := req.Handshake
		buf = appendU16(buf, h.ClientVersion)
		buf = appendU16(buf, h.MaxPacketSize)
		buf = appendU32(buf, h.Capabilities)
	case ReqFlashProgram:
		f := req.FlashProgram
		buf = appendU32(buf, f.TotalDataLength)
		buf = append(buf, boolByte(f.VerifyAfterProgram))
	case ReqDataPacket:
		d := req.DataPacket
		buf = appendU32(buf, d.Offset)
		buf = appendU32(buf, uint32(len(d.Payload)))
		buf = append(buf, d.Payload...)
		buf = appendU32(buf, d.CRC32)
	default:
		return nil, codecErrf("unknown request type %d", req.Type)
	}
	return buf, nil
}

// DecodeRequest parses a Request from one frame's PAYLOAD.
func DecodeRequest(buf []byte) (*Request, *CodecError) {
	if len(buf) < 5 {
		return nil, codecErrf("request too short: %d bytes", len(buf))
	}
	seq := binary.BigEndian.Uint32(buf[0:4])
	typ := RequestType(buf[4])
	rest := buf[5:]

	req := &Request{SequenceID: seq, Type: typ}
	switch typ {
	case ReqHandshake:
		if len(rest) < 8 {
			return nil, codecErrf("handshake request too short: %d bytes", len(rest))
		}
		req.Handshake = &HandshakeRequest{
			ClientVersion: binary.BigEndian.Uint16(rest[0:2]),
			MaxPacketSize: binary.BigEndian.Uint16(rest[2:4]),
			Capabilities:  binary.BigEndian.Uint32(rest[4:8]),
		}
	case ReqFlashProgram:
		if len(rest) < 5 {
			return nil, codecErrf("flash program request too short: %d bytes", len(rest))
		}
		req.FlashProgram = &FlashProgramRequest{
			TotalDataLength:    binary.BigEndian.Uint32(rest[0:4]),
			VerifyAfterProgram: rest[4] != 0,
		}
	case ReqDataPacket:
		if len(rest) < 8 {
			return nil, codecErrf("data packet request too short: %d bytes", len(rest))
		}
		offset := binary.BigEndian.Uint32(rest[0:4])
		payloadLen := binary.BigEndian.Uint32(rest[4:8])
		rest = rest[8:]
		if uint32(len(rest)) < payloadLen+4 {
			return nil, codecErrf("data packet truncated: want %d payload+crc bytes, have %d", payloadLen+4, len(rest))
		}
		payload := rest[:payloadLen]
		crc32 := binary.BigEndian.Uint32(rest[payloadLen : payloadLen+4])
		req.DataPacket = &DataPacketRequest{Offset: offset, Payload: payload, CRC32: crc32}
	default:
		return nil, codecErrf("unknown request type %d", typ)
	}
	return req, nil
}

// EncodeResponse serializes a Response to its wire form.
func EncodeResponse(resp *Response) ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = appendU32(buf, resp.SequenceID)
	buf = append(buf, byte(resp.Type))

	switch resp.Type {
	case RespHandshake:
		h := resp.Handshake
		buf = appendU16(buf, h.ServerVersion)
		buf = appendU16(buf, h.FlashPageSize)
		buf = appendU32(buf, h.TargetFlashAddress)
		buf = appendU32(buf, h.Capabilities)
	case RespAcknowledgment:
		a := resp.Acknowledgment
		buf = append(buf, boolByte(a.Success))
		msg := []byte(a.Message)
		buf = appendU16(buf, uint16(len(msg)))
		buf = append(buf, msg...)
	case RespFlashProgramResponse:
		f := resp.FlashProgramResponse
		buf = appendU32(buf, f.BytesProgrammed)
		buf = appendU32(buf, f.ActualDataLength)
		buf = appendU32(buf, f.VerificationHash)
	default:
		return nil, codecErrf("unknown response type %d", resp.Type)
	}
	return buf, nil
}

// DecodeResponse parses a Response from one frame's PAYLOAD.
func DecodeResponse(buf []byte) (*Response, *CodecError) {
	if len(buf) < 5 {
		return nil, codecErrf("response too short: %d bytes", len(buf))
	}
	seq := binary.BigEndian.Uint32(buf[0:4])
	typ := ResponseType(buf[4])
	rest := buf[5:]

	resp := &Response{SequenceID: seq, Type: typ}
	switch typ {
	case RespHandshake:
		if len(rest) < 12 {
			return nil, codecErrf("handshake response too short: %d bytes", len(rest))
		}
		resp.Handshake = &HandshakeResponse{
			ServerVersion:      binary.BigEndian.Uint16(rest[0:2]),
			FlashPageSize:      binary.BigEndian.Uint16(rest[2:4]),
			TargetFlashAddress: binary.BigEndian.Uint32(rest[4:8]),
			Capabilities:       binary.BigEndian.Uint32(rest[8:12]),
		}
	case RespAcknowledgment:
		if len(rest) < 3 {
			return nil, codecErrf("acknowledgment response too short: %d bytes", len(rest))
		}
		success := rest[0] != 0
		msgLen := binary.BigEndian.Uint16(rest[1:3])
		rest = rest[3:]
		if uint16(len(rest)) < msgLen {
			return nil, codecErrf("acknowledgment message truncated: want %d, have %d", msgLen, len(rest))
		}
		resp.Acknowledgment = &AcknowledgmentResponse{Success: success, Message: string(rest[:msgLen])}
	case RespFlashProgramResponse:
		if len(rest) < 12 {
			return nil, codecErrf("flash program response too short: %d bytes", len(rest))
		}
		resp.FlashProgramResponse = &FlashProgramResponse{
			BytesProgrammed:  binary.BigEndian.Uint32(rest[0:4]),
			ActualDataLength: binary.BigEndian.Uint32(rest[4:8]),
			VerificationHash: binary.BigEndian.Uint32(rest[8:12]),
		}
	default:
		return nil, codecErrf("unknown response type %d", typ)
	}
	return resp, nil
}

func appendU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return append(buf, b...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
