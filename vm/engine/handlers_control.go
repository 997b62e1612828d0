// handlers_control.go - Control flow opcodes (0x30-0x32). Target is an
// instruction index; the dispatcher validates it against program_size
// before committing (InvalidJump otherwise), so handlers only name the
// target they want.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerControlHandlers(t map[uint8]handler) {
	t[OpJmp] = hJmp
	t[OpJmpTrue] = hJmpTrue
	t[OpJmpFalse] = hJmpFalse
}

func hJmp(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	return jumpTo(int(inst.Immediate))
}

// hJmpTrue pops one cell; 0 is false, non-zero is true.
func hJmpTrue(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	cond, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if cond != 0 {
		return jumpTo(int(inst.Immediate))
	}
	return ok()
}

func hJmpFalse(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	cond, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if cond == 0 {
		return jumpTo(int(inst.Immediate))
	}
	return ok()
}
