// engine.go - Execution Engine (EE): instruction dispatch, the operand
// stack, program counter control, and structured error propagation.
//
// The dispatcher is the single writer of PC and halted; handlers return a
// HandlerResult describing the desired PC action instead of mutating PC
// directly. This replaces the teacher's (and the source repo's) older
// direct-PC-mutating switch, which the spec explicitly calls legacy and
// redundant (§9 "dual-dispatch elimination").

package engine

import (
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

// State is the execution engine's lifecycle state machine:
// Idle -> Loaded -> Running -> {Halted, Faulted}. Reset() returns any state
// to Idle. Halted and Faulted are terminal until reset.
type State uint8

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoaded:
		return "Loaded"
	case StateRunning:
		return "Running"
	case StateHalted:
		return "Halted"
	case StateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Observation is passed to an Observer before and after each dispatched
// instruction. The observer MUST NOT mutate VM state; its absence must
// produce bit-identical behaviour (§9).
type Observation struct {
	PC     int
	Opcode uint8
	SP     int
	Err    error
}

// Observer is notified before and after each instruction the engine
// dispatches. It is purely diagnostic.
type Observer interface {
	BeforeStep(obs Observation)
	AfterStep(obs Observation)
}

// Engine owns the operand stack and program counter, and dispatches
// instructions against non-owning references to a Memory Manager and I/O
// Controller supplied at execute time.
type Engine struct {
	program []Instruction

	pc    uint16
	state State
	stack *stack

	lastError *VMError
	observer  Observer
	debug     bool
}

// New constructs an Engine with no program loaded. When debug is true, the
// operand stack validates its sentinel guards after every push/pop.
func New(debug bool) *Engine {
	return &Engine{state: StateIdle, stack: newStack(debug), debug: debug}
}

// SetObserver installs (or clears, with nil) a diagnostic observer.
func (e *Engine) SetObserver(obs Observer) { e.observer = obs }

// LoadProgram installs an immutable program image and moves the engine to
// Loaded, from any prior state.
func (e *Engine) LoadProgram(program []Instruction) {
	e.program = program
	e.pc = 0
	e.stack.reset()
	e.lastError = nil
	e.state = StateLoaded
}

// Reset returns the engine to Idle, zeroing the stack and PC, regardless of
// the state it was in.
func (e *Engine) Reset() {
	e.pc = 0
	e.stack.reset()
	e.lastError = nil
	e.state = StateIdle
}

// PC returns the current program counter.
func (e *Engine) PC() uint16 { return e.pc }

// SP returns the current stack depth.
func (e *Engine) SP() int { return e.stack.depth() }

// Halted reports whether the engine reached HALT.
func (e *Engine) Halted() bool { return e.state == StateHalted }

// Faulted reports whether the engine latched a fatal error.
func (e *Engine) Faulted() bool { return e.state == StateFaulted }

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// LastError returns the most recently latched error, or nil.
func (e *Engine) LastError() *VMError { return e.lastError }

// ProgramSize returns the number of instructions in the loaded program.
func (e *Engine) ProgramSize() int { return len(e.program) }

// Push/Pop/Peek expose the operand stack to handlers in handlers_*.go.
// They are unexported-package-internal by convention (called only from
// within this package's handler functions).
func (e *Engine) push(v int32) *VMError              { return e.stack.push(v) }
func (e *Engine) pop() (int32, *VMError)             { return e.stack.pop() }
func (e *Engine) peekLocal(i int) (int32, *VMError)  { return e.stack.peek(i) }
func (e *Engine) storeLocal(i int, v int32) *VMError { return e.stack.pokeFromTop(i, v) }

// ExecuteSingleInstruction fetches, decodes and dispatches exactly one
// instruction. It is the unit the full Execute loop is built from, and is
// also the entry point §8's per-opcode invariants are tested against.
func (e *Engine) ExecuteSingleInstruction(mm *memory.Manager, io *ioctl.Controller) error {
	if e.program == nil {
		e.lastError = newErr(ErrProgramNotLoaded, "no program loaded")
		e.state = StateFaulted
		return e.lastError
	}
	switch e.state {
	case StateHalted:
		return nil
	case StateFaulted:
		return e.lastError
	}
	if e.state != StateRunning {
		e.state = StateRunning
	}
	if int(e.pc) >= len(e.program) {
		e.lastError = newErr(ErrInvalidJump, "pc %d outside program of size %d", e.pc, len(e.program))
		e.state = StateFaulted
		return e.lastError
	}

	inst := e.program[e.pc]
	depthBefore := e.stack.depth()

	if e.observer != nil {
		e.observer.BeforeStep(Observation{PC: int(e.pc), Opcode: inst.Opcode, SP: depthBefore})
	}

	result := dispatch(inst, e, mm, io)

	var stepErr error
	switch result.Action {
	case pcIncrement:
		e.pc++
	case pcJumpAbsolute:
		if result.Target < 0 || result.Target >= len(e.program) {
			result.Err = newErr(ErrInvalidJump, "jump target %d outside program of size %d", result.Target, len(e.program))
			result.Action = pcError
		} else {
			e.pc = uint16(result.Target)
		}
	case pcCallFunction:
		if result.Target < 0 || result.Target >= len(e.program) {
			result.Err = newErr(ErrInvalidJump, "call target %d outside program of size %d", result.Target, len(e.program))
			result.Action = pcError
		} else if pushErr := e.push(int32(e.pc) + 1); pushErr != nil {
			result.Err = pushErr
			result.Action = pcError
		} else {
			e.pc = uint16(result.Target)
		}
	case pcReturnFunction:
		ret, popErr := e.pop()
		if popErr != nil {
			result.Err = popErr
			result.Action = pcError
		} else if ret < 0 || int(ret) >= len(e.program) {
			result.Err = newErr(ErrInvalidJump, "return target %d outside program of size %d", ret, len(e.program))
			result.Action = pcError
		} else {
			e.pc = uint16(ret)
		}
	case pcHalt:
		e.state = StateHalted
	case pcError:
		// result.Err already set by the handler.
	}

	if result.Action == pcError {
		e.lastError = result.Err
		e.state = StateFaulted
		stepErr = result.Err
	} else if result.Action == pcHalt {
		// terminal, no error
	}

	if e.observer != nil {
		e.observer.AfterStep(Observation{PC: int(e.pc), SP: e.stack.depth(), Err: stepErr})
	}

	return stepErr
}

// Execute runs the fetch-dispatch loop until HALT, a fatal error, or the
// program counter leaves [0, program_size). Execution stops at the first
// error; there is no partial rollback of already-visible side effects.
func (e *Engine) Execute(mm *memory.Manager, io *ioctl.Controller) error {
	if e.program == nil {
		e.lastError = newErr(ErrProgramNotLoaded, "no program loaded")
		e.state = StateFaulted
		return e.lastError
	}
	switch e.state {
	case StateHalted:
		return nil
	case StateFaulted:
		return e.lastError
	}
	e.state = StateRunning
	for e.state == StateRunning {
		if err := e.ExecuteSingleInstruction(mm, io); err != nil {
			return err
		}
		if e.state == StateHalted {
			return nil
		}
	}
	return nil
}
