// phase.go - The bootloader session's phase state machine (§4.5):
//
//	Init -> Idle -> Handshake -> PrepareFlash -> ReceiveData -> VerifyFlash -> Complete
//	           ^        |             |               |              |
//	           +-- Recover <-- ErrorComm / ErrorTimeout / ErrorCritical (any active phase)
//
// Only the forward transitions above are legal; an error transition is
// permitted from any active (non-Idle, non-terminal) phase. Complete and
// Emergency are terminal.

package bootloader

import "fmt"

// Phase is one state of the bootloader session state machine.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhaseIdle
	PhaseHandshake
	PhasePrepareFlash
	PhaseReceiveData
	PhaseVerifyFlash
	PhaseComplete
	PhaseRecover
	PhaseEmergency
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseIdle:
		return "Idle"
	case PhaseHandshake:
		return "Handshake"
	case PhasePrepareFlash:
		return "PrepareFlash"
	case PhaseReceiveData:
		return "ReceiveData"
	case PhaseVerifyFlash:
		return "VerifyFlash"
	case PhaseComplete:
		return "Complete"
	case PhaseRecover:
		return "Recover"
	case PhaseEmergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is legal from this phase.
func (p Phase) Terminal() bool { return p == PhaseComplete || p == PhaseEmergency }

// active reports whether p is one of the phases an error transition may
// fire from (everything between Handshake and VerifyFlash inclusive).
func (p Phase) active() bool {
	switch p {
	case PhaseHandshake, PhasePrepareFlash, PhaseReceiveData, PhaseVerifyFlash:
		return true
	default:
		return false
	}
}

// forward lists the single legal non-error successor for each phase that
// has one; phases not present here (Complete, Emergency, Recover) only
// leave via the explicit recover/advance helpers below.
var forward = map[Phase]Phase{
	PhaseInit:         PhaseIdle,
	PhaseIdle:         PhaseHandshake,
	PhaseHandshake:    PhasePrepareFlash,
	PhasePrepareFlash: PhaseReceiveData,
	PhaseReceiveData:  PhaseVerifyFlash,
	PhaseVerifyFlash:  PhaseComplete,
}

// PhaseError reports an illegal phase transition attempt.
type PhaseError struct{ Detail string }

func (e *PhaseError) Error() string { return e.Detail }

// advance moves to the next phase in the forward chain, rejecting any
// attempt from a phase with no forward successor (including terminal and
// Recover states, which only leave via explicit calls).
func (p Phase) advance() (Phase, *PhaseError) {
	next, ok := forward[p]
	if !ok {
		return p, &PhaseError{Detail: fmt.Sprintf("no forward transition from %s", p)}
	}
	return next, nil
}

// recover transitions an active phase to Recover; called from Idle, Init,
// Recover or a terminal phase it returns a PhaseError and leaves the phase
// unchanged.
func (p Phase) recover() (Phase, *PhaseError) {
	if !p.active() {
		return p, &PhaseError{Detail: fmt.Sprintf("cannot recover from %s", p)}
	}
	return PhaseRecover, nil
}
