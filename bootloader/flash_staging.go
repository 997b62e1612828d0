// flash_staging.go - Accumulates incoming DataPacket bytes and flushes them
// to flash in 64-bit-aligned chunks (§4.5 "64-bit alignment and padding").
// actual tracks the exact guest size; written (the programmed length) is
// always a multiple of 8, padded deterministically with zero bytes.

package bootloader

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/cockpit-vm/cockpitvm/platform"
)

type flashStaging struct {
	baseAddr uint32

	pending []byte // bytes received but not yet flushed to a full 8-byte word
	written uint32 // bytes already programmed (always a multiple of 8)
	actual  uint32 // exact bytes appended by the guest, unpadded

	sum hash.Hash32 // running FNV-1a over the unpadded stream, for Verify
}

// newFlashStaging resets staging state for a fresh Prepare (§4.5): erases
// the target page and clears all counters.
func newFlashStaging(port platform.Port, baseAddr uint32) (*flashStaging, error) {
	if err := port.FlashErasePage(baseAddr); err != nil {
		return nil, err
	}
	return &flashStaging{baseAddr: baseAddr, sum: fnv.New32a()}, nil
}

// append folds data into the unpadded verification hash, accumulates it in
// pending, and flushes every complete 8-byte word to flash via
// FlashProgram64. Any partial word stays in pending until the next append
// or the final flush call.
func (s *flashStaging) append(port platform.Port, data []byte) error {
	s.sum.Write(data)
	s.actual += uint32(len(data))
	s.pending = append(s.pending, data...)

	for len(s.pending) >= 8 {
		word := binary.LittleEndian.Uint64(s.pending[:8])
		if err := port.FlashProgram64(s.baseAddr+s.written, word); err != nil {
			return err
		}
		s.written += 8
		s.pending = s.pending[8:]
	}
	return nil
}

// flush pads any remaining partial word with zero bytes and programs it,
// keeping written a multiple of 8. Safe to call with no pending
// bytes (no-op).
func (s *flashStaging) flush(port platform.Port) error {
	if len(s.pending) == 0 {
		return nil
	}
	word := make([]byte, 8)
	copy(word, s.pending)
	if err := port.FlashProgram64(s.baseAddr+s.written, binary.LittleEndian.Uint64(word)); err != nil {
		return err
	}
	s.written += 8
	s.pending = nil
	return nil
}

// verificationHash returns the FNV-1a hash over the exact (unpadded) bytes
// appended so far, for the Verify response.
func (s *flashStaging) verificationHash() uint32 { return s.sum.Sum32() }
