// coordinator.go - Startup Coordinator (C7): the boot arbiter choosing
// exactly one of {manual bootloader, auto-execute guest, fallback to
// bootloader} at reset (§4.4), and running the chosen path to completion.
//
// Grounded on the teacher's main.go boot-sequence wiring (construct
// components, decide a mode, dispatch) and debug_monitor.go's pattern of a
// single-step loop driven by an external observer when a debugger is
// attached.

package startup

import (
	"github.com/cockpit-vm/cockpitvm/internal/telemetry"
	"github.com/cockpit-vm/cockpitvm/platform"
	"github.com/cockpit-vm/cockpitvm/vm"
	"github.com/cockpit-vm/cockpitvm/vm/engine"
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
)

// Config parameterizes one coordinator instance: where the guest image
// lives in flash, how big its reserved page is, and which GPIO pin (if
// asserted at reset) forces manual bootloader entry.
type Config struct {
	BootloaderPin     uint8
	FlashBaseAddr     uint32
	FlashPageSize     int
	InstructionBudget int  // 0 = unbounded; set for untrusted/unverified guests
	DebugStack        bool // validate operand stack sentinels on every push/pop

	// EnableDebugOutput installs a per-instruction telemetry.ObserverSink
	// over the guest run (§4.1/§6); Logger must be non-nil when set.
	EnableDebugOutput bool
	Logger            *telemetry.Logger
}

// Result is the coordinator's total, deterministic mapping from a boot
// attempt to a caller-facing outcome.
type Result struct {
	Outcome Outcome
	VM      *vm.Outcome // populated only when a guest actually ran
	Err     error
}

// Coordinator owns the platform port and decides, on each Boot call,
// which of {BPC, guest} becomes the temporary sole owner of the shared
// GPIO/UART/flash resources (§5 "Shared resources").
type Coordinator struct {
	port platform.Port
	cfg  Config
}

// New constructs a Coordinator bound to a platform port.
func New(port platform.Port, cfg Config) *Coordinator {
	return &Coordinator{port: port, cfg: cfg}
}

// Boot arbitrates and runs exactly one path to completion:
//
//  1. If the bootloader pin reads asserted, returns BootloaderMode without
//     touching flash or constructing a VM; the caller is expected to drive
//     a bootloader.Session next.
//  2. Otherwise, attempts to load and validate the guest image; a missing
//     or invalid image returns its specific Outcome (NoProgram,
//     InvalidHeader or CrcMismatch) with the *ImageError in Err, and the
//     caller falls back to a bootloader session.
//  3. On a valid image, constructs a fresh ComponentVM, runs it in
//     isolation, and tears it down on return — no state survives across
//     Boot calls (§4.4 "Isolation").
func (c *Coordinator) Boot(uartSink, semihostedSink ioctl.Sink) Result {
	asserted, err := c.port.GPIORead(c.cfg.BootloaderPin)
	if err != nil {
		return Result{Outcome: Error, Err: err}
	}
	if asserted {
		return Result{Outcome: BootloaderMode}
	}

	raw, err := c.port.FlashRead(c.cfg.FlashBaseAddr, c.cfg.FlashPageSize)
	if err != nil {
		return Result{Outcome: Error, Err: err}
	}

	instructions, imgErr := ParseImage(raw, c.cfg.FlashPageSize)
	if imgErr != nil {
		return Result{Outcome: imgErr.Kind, Err: imgErr}
	}

	return c.runIsolated(instructions, uartSink, semihostedSink)
}

// runIsolated creates a fresh ComponentVM, runs the guest to completion or
// fault, destroys the VM, and maps the run to an Outcome. The run itself is
// the same ComponentVM.Run whether or not a debugger is attached; a clean
// run with a debugger attached is reported as MonitoringMode instead of
// Success, without changing VM semantics.
func (c *Coordinator) runIsolated(instructions []engine.Instruction, uartSink, semihostedSink ioctl.Sink) Result {
	cvm := vm.New(c.port, uartSink, semihostedSink, c.cfg.DebugStack)
	cvm.Load(instructions)

	if c.cfg.EnableDebugOutput && c.cfg.Logger != nil {
		cvm.SetObserver(telemetry.NewObserverSink(c.cfg.Logger, telemetry.EveryStep))
	}

	outcome := cvm.Run(c.cfg.InstructionBudget)

	if !outcome.Ok() {
		return Result{Outcome: VmError, VM: &outcome, Err: outcome.Err}
	}
	if c.port.DebuggerAttached() {
		return Result{Outcome: MonitoringMode, VM: &outcome}
	}
	return Result{Outcome: Success, VM: &outcome}
}
