package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockpit-vm/cockpitvm/platform/sim"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

func newTestVM() *ComponentVM {
	return New(sim.New(nil), nil, nil, true)
}

// TestArithmeticAndHalt is scenario 1 of the quantified test properties: a
// straight-line program that pushes two operands, adds them, and halts.
func TestArithmeticAndHalt(t *testing.T) {
	cvm := newTestVM()
	cvm.Load([]engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 2},
		{Opcode: engine.OpPush, Immediate: 3},
		{Opcode: engine.OpAdd},
		{Opcode: engine.OpHalt},
	})

	out := cvm.Run(0)

	require.True(t, out.Ok())
	require.True(t, out.Halted)
	require.Equal(t, 1, cvm.SP())
}

// TestRecursiveCallComputesFactorial is scenario 2: CALL/RET recursion
// computing 5! via repeated multiplication, exercising the call stack
// return-address convention (push pc+1, pop on RET).
func TestRecursiveCallComputesFactorial(t *testing.T) {
	// main: push 5; call fact; copy the result into global 0; halt
	// fact: on entry the stack is [.., n, ret]. If n <= 1 the n slot is
	// overwritten with 1; otherwise with n * fact(n-1). RET then leaves
	// only that result in place of n.
	const fact = 5
	prog := []engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 5},      // 0
		{Opcode: engine.OpCall, Immediate: fact},   // 1
		{Opcode: engine.OpLoadLocal, Immediate: 0}, // 2: dup result
		{Opcode: engine.OpStoreGlobal, Immediate: 0},
		{Opcode: engine.OpHalt},
		// fact:
		{Opcode: engine.OpLoadLocal, Immediate: 1}, // 5: n
		{Opcode: engine.OpPush, Immediate: 1},
		{Opcode: engine.OpLe},
		{Opcode: engine.OpJmpFalse, Immediate: 12},
		{Opcode: engine.OpPush, Immediate: 1}, // 9: base case
		{Opcode: engine.OpStoreLocal, Immediate: 1},
		{Opcode: engine.OpRet},
		{Opcode: engine.OpLoadLocal, Immediate: 1}, // 12: n
		{Opcode: engine.OpPush, Immediate: 1},
		{Opcode: engine.OpSub},
		{Opcode: engine.OpCall, Immediate: fact}, // [n, ret, fact(n-1)]
		{Opcode: engine.OpLoadLocal, Immediate: 2},
		{Opcode: engine.OpMul},
		{Opcode: engine.OpStoreLocal, Immediate: 1},
		{Opcode: engine.OpRet},
	}

	cvm := newTestVM()
	cvm.Load(prog)
	out := cvm.Run(0)

	require.True(t, out.Ok(), "run faulted: %v", out.Err)
	require.True(t, out.Halted)
	require.Equal(t, 1, cvm.SP())
	result, loadErr := cvm.Memory().LoadGlobal(0)
	require.NoError(t, loadErr)
	require.Equal(t, int32(120), result)
}

// TestMemoryBoundsViolationFaultsRun is scenario 3: writing out of bounds
// into an array latches MemoryBounds and stops the run without panicking.
func TestMemoryBoundsViolationFaultsRun(t *testing.T) {
	cvm := newTestVM()
	cvm.Load([]engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 4}, // size
		{Opcode: engine.OpCreateArray, Immediate: 0},
		{Opcode: engine.OpPush, Immediate: 5}, // index
		{Opcode: engine.OpPush, Immediate: 0}, // value
		{Opcode: engine.OpStoreArray, Immediate: 0},
		{Opcode: engine.OpHalt},
	})

	out := cvm.Run(0)

	require.False(t, out.Ok())
	require.Equal(t, engine.ErrMemoryBounds, out.Err.Code)
	require.False(t, out.Halted)
}

// TestResetClearsMemoryAndEngineButKeepsStrings verifies Reset's documented
// scope: MM and EE return to their initial state, IOC's printf string table
// (populated once via AddString) survives.
func TestResetClearsMemoryAndEngineButKeepsStrings(t *testing.T) {
	cvm := newTestVM()
	id, err := cvm.AddString("x=%d")
	require.NoError(t, err)

	cvm.Load([]engine.Instruction{
		{Opcode: engine.OpPush, Immediate: 42},
		{Opcode: engine.OpStoreGlobal, Immediate: 0},
		{Opcode: engine.OpHalt},
	})
	out := cvm.Run(0)
	require.True(t, out.Ok())

	cvm.Reset()

	v, loadErr := cvm.Memory().LoadGlobal(0)
	require.NoError(t, loadErr)
	require.Zero(t, v)

	text, printfErr := cvm.IO().VMPrintf(id, []int32{7})
	require.NoError(t, printfErr)
	require.Equal(t, "x=7", text)
}
