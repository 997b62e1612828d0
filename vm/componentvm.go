// componentvm.go - ComponentVM (C5): thin composition that owns the Memory
// Manager, I/O Controller and Execution Engine, and exposes a single
// load/run/reset surface to the Startup Coordinator and to host tooling.
//
// Grounded on the teacher's machine_bus.go, which plays the same role for
// its CPU/memory/IO triad: own the parts, wire them together once, expose a
// narrow façade, and never let a caller reach into a sub-component directly.

package vm

import (
	"fmt"

	"github.com/cockpit-vm/cockpitvm/platform"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

// Outcome is the result of a single Run, translating the engine's latched
// VMError (if any) into the caller-facing shape.
type Outcome struct {
	Halted       bool
	Err          *engine.VMError
	Instructions int // instructions executed this run, for diagnostics
}

// Ok reports whether the run ended without a fatal error: either it reached
// HALT or the instruction budget ran out (check Halted to tell them apart).
func (o Outcome) Ok() bool { return o.Err == nil }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("fault: %v", o.Err)
	}
	if o.Halted {
		return "halted"
	}
	return "stopped"
}

// ComponentVM exclusively owns MM, IOC and EE (§5 "Shared resources"). EE
// holds non-owning references to MM and IOC for the duration of a single
// Run call; guest code never touches them directly, only through opcodes.
type ComponentVM struct {
	mm *memory.Manager
	io *ioctl.Controller
	ee *engine.Engine
}

// New wires a fresh ComponentVM against a platform port. uartSink and
// semihostedSink are the two printf routing destinations IOC chooses
// between based on port.DebuggerAttached(); either may be nil.
func New(port platform.Port, uartSink, semihostedSink ioctl.Sink, debugStack bool) *ComponentVM {
	return &ComponentVM{
		mm: memory.New(),
		io: ioctl.New(port, uartSink, semihostedSink),
		ee: engine.New(debugStack),
	}
}

// SetObserver installs a diagnostic observer on the underlying engine. A
// nil observer must leave behaviour bit-identical to having none (§9).
func (vm *ComponentVM) SetObserver(obs engine.Observer) { vm.ee.SetObserver(obs) }

// AddString registers a printf format string ahead of Load, returning the
// id guest PRINTF instructions reference.
func (vm *ComponentVM) AddString(s string) (uint8, error) { return vm.io.AddString(s) }

// Load installs a guest program. It does not touch MM or IOC state, so a
// caller may Load multiple programs against pre-populated globals/arrays
// within the lifetime of one ComponentVM, as long as Reset is not called
// between them.
func (vm *ComponentVM) Load(program []engine.Instruction) {
	vm.ee.LoadProgram(program)
}

// Run executes the loaded program to completion: HALT, a fatal VMError, or
// the instruction budget being exhausted (budget <= 0 means unbounded,
// appropriate only for trusted host tooling, never for untrusted guest
// programs in a bootloader recovery path).
//
// A failed run leaves MM and IOC in whatever state the handlers reached
// before the fault; ComponentVM performs no rollback of already-visible I/O
// side effects (§4.6, §7).
func (vm *ComponentVM) Run(budget int) Outcome {
	executed := 0
	for {
		if budget > 0 && executed >= budget {
			return Outcome{Instructions: executed}
		}
		err := vm.ee.ExecuteSingleInstruction(vm.mm, vm.io)
		executed++
		if err != nil {
			var vmErr *engine.VMError
			if e, ok := err.(*engine.VMError); ok {
				vmErr = e
			} else {
				vmErr = &engine.VMError{Code: engine.ErrHardwareFault, Detail: err.Error()}
			}
			return Outcome{Err: vmErr, Instructions: executed}
		}
		if vm.ee.Halted() {
			return Outcome{Halted: true, Instructions: executed}
		}
	}
}

// Reset returns MM, IOC and EE to their initial state, in that order. The
// string table IOC uses for printf survives reset (populated once via
// AddString, constant at run time per the data model); everything else
// does not.
func (vm *ComponentVM) Reset() {
	vm.mm.Reset()
	vm.io.Reset()
	vm.ee.Reset()
}

// LastError returns the most recently latched engine error, or nil.
func (vm *ComponentVM) LastError() *engine.VMError { return vm.ee.LastError() }

// PC, SP and State expose read-only engine diagnostics for host tooling
// (disassemblers, REPLs, the bootloader's VM-mode debug output).
func (vm *ComponentVM) PC() uint16          { return vm.ee.PC() }
func (vm *ComponentVM) SP() int             { return vm.ee.SP() }
func (vm *ComponentVM) State() engine.State { return vm.ee.State() }

// Memory and IO expose the owned sub-components for host-side setup (e.g.
// seeding globals before Run) and for tests; guest bytecode never reaches
// them except through Run's opcode dispatch.
func (vm *ComponentVM) Memory() *memory.Manager { return vm.mm }
func (vm *ComponentVM) IO() *ioctl.Controller   { return vm.io }
