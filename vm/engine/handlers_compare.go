// handlers_compare.go - Comparison opcodes (0x20-0x2B). Unsigned by
// default; either the FlagSigned bit on the base opcode or a dedicated
// _SIGNED opcode selects the signed i32 compare. Result is 0 or 1.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

func registerCompareHandlers(t map[uint8]handler) {
	t[OpEq] = compareHandler(cmpEq, false)
	t[OpNe] = compareHandler(cmpNe, false)
	t[OpLt] = compareHandler(cmpLt, false)
	t[OpGt] = compareHandler(cmpGt, false)
	t[OpLe] = compareHandler(cmpLe, false)
	t[OpGe] = compareHandler(cmpGe, false)
	t[OpEqS] = compareHandler(cmpEq, true)
	t[OpNeS] = compareHandler(cmpNe, true)
	t[OpLtS] = compareHandler(cmpLt, true)
	t[OpGtS] = compareHandler(cmpGt, true)
	t[OpLeS] = compareHandler(cmpLe, true)
	t[OpGeS] = compareHandler(cmpGe, true)
}

type compareFunc func(a, b int64) bool

func cmpEq(a, b int64) bool { return a == b }
func cmpNe(a, b int64) bool { return a != b }
func cmpLt(a, b int64) bool { return a < b }
func cmpGt(a, b int64) bool { return a > b }
func cmpLe(a, b int64) bool { return a <= b }
func cmpGe(a, b int64) bool { return a >= b }

// compareHandler builds a handler for one comparison kind. forceSigned is
// true for the dedicated _SIGNED opcodes; the unsigned-opcode family still
// honours FlagSigned on the instruction itself, per §4.1.
func compareHandler(cmp compareFunc, forceSigned bool) handler {
	return func(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
		b, err := e.pop()
		if err != nil {
			return fail(err)
		}
		a, err := e.pop()
		if err != nil {
			return fail(err)
		}

		signed := forceSigned || inst.Flags&FlagSigned != 0
		var result bool
		if signed {
			result = cmp(int64(a), int64(b))
		} else {
			result = cmp(int64(uint32(a)), int64(uint32(b)))
		}

		var pushVal int32
		if result {
			pushVal = 1
		}
		if pushErr := e.push(pushVal); pushErr != nil {
			return fail(pushErr)
		}
		return ok()
	}
}
