// handlers_logical.go - Logical opcodes (0x40-0x42) with C-boolean
// semantics: any non-zero operand is true, results are normalised to 0/1.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerLogicalHandlers(t map[uint8]handler) {
	t[OpLogAnd] = hLogAnd
	t[OpLogOr] = hLogOr
	t[OpLogNot] = hLogNot
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func hLogAnd(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	b, err := e.pop()
	if err != nil {
		return fail(err)
	}
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if pushErr := e.push(boolToI32(a != 0 && b != 0)); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

func hLogOr(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	b, err := e.pop()
	if err != nil {
		return fail(err)
	}
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if pushErr := e.push(boolToI32(a != 0 || b != 0)); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

func hLogNot(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	a, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if pushErr := e.push(boolToI32(a == 0)); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}
