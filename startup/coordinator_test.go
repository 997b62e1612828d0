package startup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockpit-vm/cockpitvm/platform/sim"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

const (
	testBootPin   = 0
	testFlashBase = 0
	testPageSize  = 2048
)

func newTestCoordinator(port *sim.Port) *Coordinator {
	return New(port, Config{
		BootloaderPin: testBootPin,
		FlashBaseAddr: testFlashBase,
		FlashPageSize: testPageSize,
	})
}

func TestBootEntersBootloaderModeWhenPinAsserted(t *testing.T) {
	port := sim.New(nil)
	// The sim only accepts writes to pins configured as output; this
	// stands in for an external driver asserting the bootloader line.
	require.NoError(t, port.GPIOConfigure(testBootPin, 1))
	require.NoError(t, port.GPIOWrite(testBootPin, true))

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, BootloaderMode, result.Outcome)
	require.Nil(t, result.VM)
}

func TestBootFallsBackToBootloaderOnErasedFlash(t *testing.T) {
	port := sim.New(nil)

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, NoProgram, result.Outcome)
	require.Error(t, result.Err)
}

func TestBootAutoExecutesValidGuestImage(t *testing.T) {
	port := sim.New(nil)
	image := EncodeImage([]engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 1},
		{Opcode: engine.OpHalt},
	})
	programImage(t, port, image)

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, Success, result.Outcome)
	require.NotNil(t, result.VM)
	require.True(t, result.VM.Halted)
}

func TestBootRejectsBadMagic(t *testing.T) {
	port := sim.New(nil)
	image := EncodeImage([]engine.Instruction{{Opcode: engine.OpHalt}})
	image[0] ^= 0xFF
	programImage(t, port, image)

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, NoProgram, result.Outcome)
}

func TestBootReportsCrcMismatch(t *testing.T) {
	port := sim.New(nil)
	image := EncodeImage([]engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 1},
		{Opcode: engine.OpHalt},
	})
	image[len(image)-1] ^= 0xFF // corrupt the last instruction byte, not the header
	programImage(t, port, image)

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, CrcMismatch, result.Outcome)
}

func TestBootReportsVmErrorOnFaultingGuest(t *testing.T) {
	port := sim.New(nil)
	image := EncodeImage([]engine.Instruction{
		{Opcode: engine.OpPop}, // underflow: nothing pushed yet
	})
	programImage(t, port, image)

	result := newTestCoordinator(port).Boot(nil, nil)

	require.Equal(t, VmError, result.Outcome)
	require.NotNil(t, result.VM)
	require.Equal(t, engine.ErrStackUnderflow, result.VM.Err.Code)
}

// programImage writes a full image byte-by-byte via 64-bit-aligned
// FlashProgram64 calls, the same granularity the bootloader's flash
// staging buffer uses, rather than poking the sim's flash slice directly.
func programImage(t *testing.T, port *sim.Port, image []byte) {
	t.Helper()
	require.NoError(t, port.FlashErasePage(testFlashBase))
	padded := make([]byte, (len(image)+7)/8*8)
	copy(padded, image)
	for off := 0; off < len(padded); off += 8 {
		word := uint64(0)
		for i := 0; i < 8; i++ {
			word |= uint64(padded[off+i]) << (8 * i)
		}
		require.NoError(t, port.FlashProgram64(testFlashBase+uint32(off), word))
	}
}
