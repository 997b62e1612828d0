// handlers_memory.go - Memory opcodes (0x50-0x56). LOAD_LOCAL/STORE_LOCAL
// address the operand stack itself (stack-relative, immediate < sp); all
// other memory ops are mediated through the Memory Manager, whose bounds
// errors are mapped to MemoryBounds here rather than at the MM boundary,
// since only EE knows whether a given fault should end the program.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerMemoryHandlers(t map[uint8]handler) {
	t[OpLoadGlobal] = hLoadGlobal
	t[OpStoreGlobal] = hStoreGlobal
	t[OpLoadLocal] = hLoadLocal
	t[OpStoreLocal] = hStoreLocal
	t[OpLoadArray] = hLoadArray
	t[OpStoreArray] = hStoreArray
	t[OpCreateArray] = hCreateArray
}

func hLoadGlobal(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	v, mmErr := mm.LoadGlobal(uint8(inst.Immediate))
	if mmErr != nil {
		return fail(newErr(ErrMemoryBounds, "%v", mmErr))
	}
	if err := e.push(v); err != nil {
		return fail(err)
	}
	return ok()
}

func hStoreGlobal(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	v, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if mmErr := mm.StoreGlobal(uint8(inst.Immediate), v); mmErr != nil {
		return fail(newErr(ErrMemoryBounds, "%v", mmErr))
	}
	return ok()
}

// hLoadLocal peeks (does not pop) stack[sp-1-index] and pushes a copy,
// where index == inst.Immediate counts from the current top of stack.
func hLoadLocal(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	v, err := e.peekLocal(int(inst.Immediate))
	if err != nil {
		return fail(err)
	}
	if pushErr := e.push(v); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

// hStoreLocal pops the value to store, then writes it into the slot
// `index` positions below the (already reduced) top of stack — i.e. the
// local variable area sits just below the value that was on top before
// this instruction ran.
func hStoreLocal(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	v, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if storeErr := e.storeLocal(int(inst.Immediate), v); storeErr != nil {
		return fail(storeErr)
	}
	return ok()
}

// hLoadArray pops index, pushes array[id][index].
func hLoadArray(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	index, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if index < 0 {
		return fail(newErr(ErrMemoryBounds, "negative array index %d", index))
	}
	v, mmErr := mm.LoadArrayElement(uint8(inst.Immediate), uint16(index))
	if mmErr != nil {
		return fail(newErr(ErrMemoryBounds, "%v", mmErr))
	}
	if pushErr := e.push(v); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

// hStoreArray: guest pushes index then value, so value (last pushed) is
// consumed first, then index, before writing array[id][index] = value.
func hStoreArray(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	value, err := e.pop()
	if err != nil {
		return fail(err)
	}
	index, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if index < 0 {
		return fail(newErr(ErrMemoryBounds, "negative array index %d", index))
	}
	if mmErr := mm.StoreArrayElement(uint8(inst.Immediate), uint16(index), value); mmErr != nil {
		return fail(newErr(ErrMemoryBounds, "%v", mmErr))
	}
	return ok()
}

// hCreateArray pops the element count and creates array[id] with that
// many elements; creating an id that already exists is a MemoryBounds
// error, matching §3's "creation of an already-existing id fails".
func hCreateArray(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	size, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if size < 0 {
		return fail(newErr(ErrMemoryBounds, "negative array size %d", size))
	}
	if mmErr := mm.CreateArray(uint8(inst.Immediate), uint16(size)); mmErr != nil {
		return fail(newErr(ErrMemoryBounds, "%v", mmErr))
	}
	return ok()
}
