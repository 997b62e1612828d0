package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cockpit-vm/cockpitvm/vm/engine"
)

func TestObserverSinkDoesNotPanicOnFaultOrStep(t *testing.T) {
	log, err := NewDevelopment()
	require.NoError(t, err)
	defer log.Sync()

	sink := NewObserverSink(log, EveryStep)

	require.NotPanics(t, func() {
		sink.BeforeStep(engine.Observation{PC: 0, Opcode: engine.OpPush, SP: 0})
		sink.AfterStep(engine.Observation{PC: 1, SP: 1})
		sink.AfterStep(engine.Observation{PC: 1, SP: 1, Err: &engine.VMError{Code: engine.ErrStackUnderflow}})
	})
}

func TestObserverSinkErrorsOnlySkipsStepLogging(t *testing.T) {
	log, err := NewDevelopment()
	require.NoError(t, err)
	defer log.Sync()

	sink := NewObserverSink(log, ErrorsOnly)
	require.NotPanics(t, func() {
		sink.BeforeStep(engine.Observation{PC: 0, Opcode: engine.OpHalt})
		sink.AfterStep(engine.Observation{PC: 0})
	})

	core, logs := observer.New(zap.DebugLevel)
	quiet := NewObserverSink(&Logger{z: zap.New(core).Sugar()}, ErrorsOnly)
	quiet.BeforeStep(engine.Observation{PC: 0, Opcode: engine.OpHalt})
	quiet.AfterStep(engine.Observation{PC: 0})
	require.Zero(t, logs.Len(), "ErrorsOnly must not log clean steps")
}
