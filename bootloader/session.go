// session.go - The bootloader protocol core (C6): owns one session's phase,
// staging buffer, statistics, and request/response handling. Grounded on
// the teacher's debug_monitor.go (a stateful command session sitting on top
// of a byte stream, with its own small dispatch-by-state logic), reworked
// from "stop the CPU and inspect" to "stage a guest image and flash it".

package bootloader

import (
	"github.com/cockpit-vm/cockpitvm/internal/crc"
	"github.com/cockpit-vm/cockpitvm/platform"
)

// Outcome classifies the result of handling one request (§4.5 "Failure
// classification"). Only CriticalError and EmergencyShutdown end the
// session without returning to Idle.
type Outcome uint8

const (
	Continue Outcome = iota
	Complete
	Timeout
	RecoverableError
	CriticalError
	EmergencyShutdown
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "Continue"
	case Complete:
		return "Complete"
	case Timeout:
		return "Timeout"
	case RecoverableError:
		return "RecoverableError"
	case CriticalError:
		return "CriticalError"
	case EmergencyShutdown:
		return "EmergencyShutdown"
	default:
		return "Unknown"
	}
}

// Stats are resource-tracking counters maintained when
// Config.EnableResourceTracking is set (§4.5 "Resource tracking").
type Stats struct {
	FramesReceived    int
	BytesProgrammed   uint32
	RecoverableErrors int
	CriticalErrors    int
}

// Config is the part of the startup configuration block (§6 table) that
// BPC consumes, supplied by whoever constructs the Session.
type Config struct {
	SessionTimeoutMs        uint32
	FrameTimeoutMs          uint32
	EnableDebugOutput       bool
	EnableResourceTracking  bool
	EnableEmergencyRecovery bool

	ServerVersion      uint16
	FlashPageSize      uint16
	TargetFlashAddress uint32
	Capabilities       uint32
}

// DefaultConfig matches the defaults in §6: 30s session timeout, 2-3s frame
// timeout (2500ms, the midpoint), resource tracking on, emergency recovery
// off (a board brings its own policy for that).
func DefaultConfig() Config {
	return Config{
		SessionTimeoutMs:       30000,
		FrameTimeoutMs:         2500,
		EnableResourceTracking: true,
		ServerVersion:          1,
		FlashPageSize:          2048,
	}
}

// Session drives one bootloader session's phase state machine against a
// platform port. It is not safe for concurrent use; one Session serves one
// bootloader run.
type Session struct {
	port platform.Port
	cfg  Config

	phase Phase
	stats Stats

	staging         *flashStaging
	totalDataLength uint32
	receivedOffset  uint32
	verifyRequested bool

	sessionStartMs uint32
	lastActivityMs uint32
}

// New constructs a Session in PhaseInit and immediately advances it to
// PhaseIdle, matching §4.5's diagram where Init is a transient boot state.
func New(port platform.Port, cfg Config) *Session {
	s := &Session{port: port, cfg: cfg, phase: PhaseInit}
	s.phase, _ = s.phase.advance() // Init -> Idle, always legal
	now := port.Millis()
	s.sessionStartMs = now
	s.lastActivityMs = now
	return s
}

// Phase returns the session's current state.
func (s *Session) Phase() Phase { return s.phase }

// Stats returns a copy of the session's resource-tracking counters.
func (s *Session) Stats() Stats { return s.stats }

// checkTimeouts evaluates the session and frame timeouts against a
// monotonic millisecond reading, using modulo-2^32 subtraction so a
// millis() wraparound between readings never produces a spurious timeout
// (§5 "Session timeout watchdog").
func (s *Session) checkTimeouts(nowMs uint32) bool {
	if s.phase.Terminal() {
		return false
	}
	if nowMs-s.sessionStartMs > s.cfg.SessionTimeoutMs {
		return true
	}
	if s.phase.active() && nowMs-s.lastActivityMs > s.cfg.FrameTimeoutMs {
		return true
	}
	return false
}

// recoverToIdle resets session state to Idle after a recoverable error,
// preserving BPC lifetime and counting the failure in statistics (§7). A
// fault in an active phase passes through Recover first, matching the
// diagram's "active phase -> Recover -> Idle" edge; a fault outside any
// active phase (e.g. an out-of-sequence request while already Idle) has no
// Recover edge to take and drops straight to Idle.
func (s *Session) recoverToIdle() {
	if s.phase.active() {
		s.phase, _ = s.phase.recover() // active -> Recover
	}
	s.phase = PhaseIdle
	s.staging = nil
	s.totalDataLength = 0
	s.receivedOffset = 0
	s.verifyRequested = false
	if s.cfg.EnableResourceTracking {
		s.stats.RecoverableErrors++
	}
}

func (s *Session) goCritical() Outcome {
	s.phase = PhaseEmergency
	if s.cfg.EnableResourceTracking {
		s.stats.CriticalErrors++
	}
	if s.cfg.EnableEmergencyRecovery {
		return EmergencyShutdown
	}
	return CriticalError
}

// HandleRequest advances the session by exactly one request, returning the
// response to send (nil if none, e.g. after a timeout) and the outcome
// classification. nowMs is the caller's current millis() reading.
func (s *Session) HandleRequest(req *Request, nowMs uint32) (*Response, Outcome) {
	if s.cfg.EnableResourceTracking {
		s.stats.FramesReceived++
	}

	if s.checkTimeouts(nowMs) {
		s.recoverToIdle()
		s.sessionStartMs = nowMs
		s.lastActivityMs = nowMs
		return nil, Timeout
	}
	s.lastActivityMs = nowMs

	switch s.phase {
	case PhaseIdle:
		return s.handleHandshake(req)
	case PhaseHandshake:
		return s.handleFlashProgram(req)
	case PhaseReceiveData:
		return s.handleDataPacket(req)
	default:
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "request received in unexpected phase"), RecoverableError
	}
}

func (s *Session) handleHandshake(req *Request) (*Response, Outcome) {
	if req.Type != ReqHandshake {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "expected Handshake request"), RecoverableError
	}
	s.phase, _ = s.phase.advance() // Idle -> Handshake
	return &Response{
		SequenceID: req.SequenceID,
		Type:       RespHandshake,
		Handshake: &HandshakeResponse{
			ServerVersion:      s.cfg.ServerVersion,
			FlashPageSize:      s.cfg.FlashPageSize,
			TargetFlashAddress: s.cfg.TargetFlashAddress,
			Capabilities:       s.cfg.Capabilities,
		},
	}, Continue
}

func (s *Session) handleFlashProgram(req *Request) (*Response, Outcome) {
	if req.Type != ReqFlashProgram {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "expected FlashProgram request"), RecoverableError
	}
	fp := req.FlashProgram
	if fp.TotalDataLength == 0 || fp.TotalDataLength > uint32(s.cfg.FlashPageSize) {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "total_data_length out of range"), RecoverableError
	}

	staging, err := newFlashStaging(s.port, s.cfg.TargetFlashAddress)
	if err != nil {
		return ackFailure(req.SequenceID, "flash erase failed"), s.goCritical()
	}

	s.staging = staging
	s.totalDataLength = fp.TotalDataLength
	s.receivedOffset = 0
	s.verifyRequested = fp.VerifyAfterProgram
	s.phase, _ = s.phase.advance() // Handshake -> PrepareFlash
	s.phase, _ = s.phase.advance() // PrepareFlash -> ReceiveData

	return &Response{
		SequenceID:     req.SequenceID,
		Type:           RespAcknowledgment,
		Acknowledgment: &AcknowledgmentResponse{Success: true, Message: "prepared"},
	}, Continue
}

func (s *Session) handleDataPacket(req *Request) (*Response, Outcome) {
	if req.Type != ReqDataPacket {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "expected DataPacket request"), RecoverableError
	}
	dp := req.DataPacket
	if dp.Offset != s.receivedOffset {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "out-of-order offset"), RecoverableError
	}
	if crc.IEEE(dp.Payload) != dp.CRC32 {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "CRC32 mismatch"), RecoverableError
	}
	if s.receivedOffset+uint32(len(dp.Payload)) > s.totalDataLength {
		s.recoverToIdle()
		return ackFailure(req.SequenceID, "data exceeds declared total_data_length"), RecoverableError
	}

	if err := s.staging.append(s.port, dp.Payload); err != nil {
		return ackFailure(req.SequenceID, "flash program failed"), s.goCritical()
	}
	s.receivedOffset += uint32(len(dp.Payload))
	if s.cfg.EnableResourceTracking {
		s.stats.BytesProgrammed = s.staging.written
	}

	if s.receivedOffset < s.totalDataLength {
		return &Response{
			SequenceID:     req.SequenceID,
			Type:           RespAcknowledgment,
			Acknowledgment: &AcknowledgmentResponse{Success: true, Message: "continue"},
		}, Continue
	}

	// Last packet: flush the trailing partial word regardless of whether
	// verify was requested, so bytes_programmed always reflects reality.
	if err := s.staging.flush(s.port); err != nil {
		return ackFailure(req.SequenceID, "flash flush failed"), s.goCritical()
	}
	if s.cfg.EnableResourceTracking {
		s.stats.BytesProgrammed = s.staging.written
	}

	if !s.verifyRequested {
		s.phase = PhaseComplete
		return &Response{
			SequenceID:     req.SequenceID,
			Type:           RespAcknowledgment,
			Acknowledgment: &AcknowledgmentResponse{Success: true, Message: "complete"},
		}, Complete
	}

	s.phase, _ = s.phase.advance() // ReceiveData -> VerifyFlash
	resp := &Response{
		SequenceID: req.SequenceID,
		Type:       RespFlashProgramResponse,
		FlashProgramResponse: &FlashProgramResponse{
			BytesProgrammed:  s.staging.written,
			ActualDataLength: s.staging.actual,
			VerificationHash: s.staging.verificationHash(),
		},
	}
	s.phase, _ = s.phase.advance() // VerifyFlash -> Complete
	return resp, Complete
}

func ackFailure(seq uint32, msg string) *Response {
	return &Response{
		SequenceID:     seq,
		Type:           RespAcknowledgment,
		Acknowledgment: &AcknowledgmentResponse{Success: false, Message: msg},
	}
}
