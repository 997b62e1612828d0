// telemetry.go - Structured logging facade and the engine.Observer
// diagnostic sink (§9's observer pattern: purely diagnostic, must not
// affect VM behaviour). Grounded on the teacher's audio_backend_oto.go
// (thin wrapper gating direct access to an external package behind the
// project's own narrow surface) and on zap's own SugaredLogger idiom.

package telemetry

import (
	"go.uber.org/zap"

	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

// Logger wraps a zap.SugaredLogger with the two constructors CockpitVM
// actually needs; nothing else in the tree reaches for zap directly.
type Logger struct {
	z *zap.SugaredLogger
}

// NewProduction builds a Logger with zap's JSON production config: info
// level, sampled, epoch timestamps.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// NewDevelopment builds a Logger with zap's human-readable console config:
// debug level, no sampling, stack traces on warn+.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// Sync flushes any buffered log entries; callers defer this after
// construction.
func (l *Logger) Sync() error { return l.z.Sync() }

func (l *Logger) Infow(msg string, keysAndValues ...any)  { l.z.Infow(msg, keysAndValues...) }
func (l *Logger) Warnw(msg string, keysAndValues ...any)  { l.z.Warnw(msg, keysAndValues...) }
func (l *Logger) Errorw(msg string, keysAndValues ...any) { l.z.Errorw(msg, keysAndValues...) }
func (l *Logger) Debugw(msg string, keysAndValues ...any) { l.z.Debugw(msg, keysAndValues...) }

// ObserverSink adapts a Logger to engine.Observer, logging one structured
// entry per dispatched instruction. It never mutates engine state — it
// only reads the Observation it's handed — so installing it must leave
// execution bit-identical to running with no observer at all.
type ObserverSink struct {
	log   *Logger
	level ObserverLevel
}

// ObserverLevel controls how much of the per-instruction stream gets
// logged; EveryStep is useful for bring-up and far too noisy for
// production.
type ObserverLevel uint8

const (
	ErrorsOnly ObserverLevel = iota
	EveryStep
)

// NewObserverSink builds an ObserverSink over an existing Logger.
func NewObserverSink(log *Logger, level ObserverLevel) *ObserverSink {
	return &ObserverSink{log: log, level: level}
}

func (s *ObserverSink) BeforeStep(obs engine.Observation) {
	if s.level == EveryStep {
		s.log.Debugw("step", "pc", obs.PC, "opcode", obs.Opcode, "sp", obs.SP)
	}
}

func (s *ObserverSink) AfterStep(obs engine.Observation) {
	if obs.Err != nil {
		s.log.Errorw("fault", "pc", obs.PC, "sp", obs.SP, "err", obs.Err)
		return
	}
	if s.level == EveryStep {
		s.log.Debugw("step-done", "pc", obs.PC, "sp", obs.SP)
	}
}

var _ engine.Observer = (*ObserverSink)(nil)
