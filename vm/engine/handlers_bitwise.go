// handlers_bitwise.go - Bitwise opcodes (0x60-0x65). Shift amount must lie
// in [0, 32); 32 and above (and negative) is InvalidShift, fatal.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerBitwiseHandlers(t map[uint8]handler) {
	t[OpBitAnd] = binaryArith(func(a, b int32) int32 { return a & b })
	t[OpBitOr] = binaryArith(func(a, b int32) int32 { return a | b })
	t[OpBitXor] = binaryArith(func(a, b int32) int32 { return a ^ b })
	t[OpBitNot] = hBitNot
	t[OpShl] = hShl
	t[OpShr] = hShr
}

func hBitNot(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if pushErr := e.push(^a); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

func hShl(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return shift(e, func(a int32, n uint) int32 { return a << n })
}

func hShr(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return shift(e, func(a int32, n uint) int32 { return a >> n })
}

// shift pops amount (b) then value (a) and validates amount in [0, 32)
// before applying op; 0 is identity, 31 is defined, 32+ (or negative) is
// InvalidShift.
func shift(e *Engine, op func(a int32, n uint) int32) handlerResult {
	amount, err := e.pop()
	if err != nil {
		return fail(err)
	}
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if amount < 0 || amount >= 32 {
		return fail(newErr(ErrInvalidShift, "shift amount %d outside [0,32)", amount))
	}
	if pushErr := e.push(op(a, uint(amount))); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}
