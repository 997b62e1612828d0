// image.go - Guest image header layout and validation (§4.4). The reserved
// flash page holds a fixed header followed by instruction_count x 4 bytes
// of bytecode, encoded opcode|flags|immediate_lo|immediate_hi per
// instruction (§6 "Bytecode file format").

package startup

import (
	"encoding/binary"
	"fmt"

	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

const (
	// HeaderMagic identifies a CockpitVM guest image ("CVM1" when the u32
	// is read big-endian; it is stored little-endian, so the header's first
	// four bytes are "1MVC").
	HeaderMagic uint32 = 0x43564D31

	// HeaderVersion is the only header version this build accepts.
	HeaderVersion uint16 = 0x0001

	// HeaderSize is the fixed header length in bytes: magic(4) +
	// version(2) + instruction_count(2) + crc32(4) + reserved(4).
	HeaderSize = 16

	// instructionSize is the on-wire width of one Instruction record.
	instructionSize = 4
)

// ImageError reports a guest image that fails header or CRC validation.
// Every case here maps 1:1 onto one of the coordinator's non-Success
// outcomes.
type ImageError struct {
	Detail string
	Kind   Outcome // NoProgram, InvalidHeader, or CrcMismatch
}

func (e *ImageError) Error() string { return e.Detail }

func imageErr(kind Outcome, format string, args ...any) *ImageError {
	return &ImageError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Header is the fixed-layout guest image header.
type Header struct {
	Magic            uint32
	Version          uint16
	InstructionCount uint16
	CRC32            uint32
}

// EncodeImage serializes instructions with a valid header, for use by host
// tooling and by tests.
func EncodeImage(instructions []engine.Instruction) []byte {
	body := make([]byte, len(instructions)*instructionSize)
	for i, inst := range instructions {
		off := i * instructionSize
		body[off] = inst.Opcode
		body[off+1] = inst.Flags
		binary.LittleEndian.PutUint16(body[off+2:off+4], inst.Immediate)
	}

	buf := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], HeaderMagic)
	binary.LittleEndian.PutUint16(buf[4:6], HeaderVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(instructions)))
	binary.LittleEndian.PutUint32(buf[8:12], crc.IEEE(body))
	copy(buf[HeaderSize:], body)
	return buf
}

// ParseImage validates the header (magic, version, declared length against
// page capacity, CRC32 over the instruction stream) and decodes the
// instruction stream. pageSize bounds how large a declared image may be,
// matching the reserved flash page's fixed capacity.
func ParseImage(raw []byte, pageSize int) ([]engine.Instruction, *ImageError) {
	if len(raw) < HeaderSize {
		return nil, imageErr(NoProgram, "image shorter than header (%d bytes)", len(raw))
	}

	magic := binary.LittleEndian.Uint32(raw[0:4])
	if magic != HeaderMagic {
		return nil, imageErr(NoProgram, "magic mismatch: got 0x%08X, want 0x%08X", magic, HeaderMagic)
	}
	version := binary.LittleEndian.Uint16(raw[4:6])
	if version != HeaderVersion {
		return nil, imageErr(InvalidHeader, "version mismatch: got 0x%04X, want 0x%04X", version, HeaderVersion)
	}
	count := binary.LittleEndian.Uint16(raw[6:8])
	declaredCRC := binary.LittleEndian.Uint32(raw[8:12])

	bodyLen := int(count) * instructionSize
	if HeaderSize+bodyLen > pageSize {
		return nil, imageErr(InvalidHeader, "declared length %d exceeds page capacity %d", HeaderSize+bodyLen, pageSize)
	}
	if len(raw) < HeaderSize+bodyLen {
		return nil, imageErr(InvalidHeader, "image truncated: want %d bytes, have %d", HeaderSize+bodyLen, len(raw))
	}

	body := raw[HeaderSize : HeaderSize+bodyLen]
	if gotCRC := crc.IEEE(body); gotCRC != declaredCRC {
		return nil, imageErr(CrcMismatch, "CRC32 mismatch: header 0x%08X, computed 0x%08X", declaredCRC, gotCRC)
	}

	instructions := make([]engine.Instruction, count)
	for i := range instructions {
		off := i * instructionSize
		instructions[i] = engine.Instruction{
			Opcode:    body[off],
			Flags:     body[off+1],
			Immediate: binary.LittleEndian.Uint16(body[off+2 : off+4]),
		}
	}
	return instructions, nil
}
