// handlers_hal.go - HAL opcodes (0x10-0x1A): guest-visible hardware
// operations mediated entirely through the I/O Controller. A platform
// failure reported by IOC is mapped to HardwareFault; EE never touches
// platform.Port directly.

package engine

import (
	"github.com/cockpit-vm/cockpitvm/platform"
	"github.com/cockpit-vm/cockpitvm/vm/ioctl"
	"github.com/cockpit-vm/cockpitvm/vm/memory"
)

// pinModeFromInt maps the guest's small integer mode selector onto
// platform.PinMode; out-of-range values fall back to input, the safest
// default, rather than faulting the whole VM over a cosmetic mode value.
func pinModeFromInt(v int32) platform.PinMode {
	switch v {
	case 1:
		return platform.PinModeOutput
	case 2:
		return platform.PinModePullUp
	case 3:
		return platform.PinModePullDown
	default:
		return platform.PinModeInput
	}
}

func registerHALHandlers(t map[uint8]handler) {
	t[OpDigitalWrite] = hDigitalWrite
	t[OpDigitalRead] = hDigitalRead
	t[OpAnalogWrite] = hAnalogWrite
	t[OpAnalogRead] = hAnalogRead
	t[OpDelayNanoseconds] = hDelayNanoseconds
	t[OpButtonPressed] = hButtonPressed
	t[OpButtonReleased] = hButtonReleased
	t[OpPinMode] = hPinMode
	t[OpPrintf] = hPrintf
	t[OpMillis] = hMillis
	t[OpMicros] = hMicros
}

// hDigitalWrite: guest pushes pin then value; value is consumed first.
func hDigitalWrite(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	value, err := e.pop()
	if err != nil {
		return fail(err)
	}
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if hwErr := io.DigitalWrite(uint8(pin), value != 0); hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	return ok()
}

func hDigitalRead(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	v, hwErr := io.DigitalRead(uint8(pin))
	if hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	if v {
		err = e.push(1)
	} else {
		err = e.push(0)
	}
	if err != nil {
		return fail(err)
	}
	return ok()
}

// hAnalogWrite: guest pushes pin then duty; duty is consumed first.
func hAnalogWrite(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	duty, err := e.pop()
	if err != nil {
		return fail(err)
	}
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if hwErr := io.AnalogWrite(uint8(pin), uint16(duty)); hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	return ok()
}

func hAnalogRead(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	v, hwErr := io.AnalogRead(uint8(pin))
	if hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	if pushErr := e.push(int32(v)); pushErr != nil {
		return fail(pushErr)
	}
	return ok()
}

func hDelayNanoseconds(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	ns, err := e.pop()
	if err != nil {
		return fail(err)
	}
	io.DelayNanoseconds(uint32(ns))
	return ok()
}

func hButtonPressed(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	pressed, hwErr := io.ButtonPressed(uint8(pin))
	if hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	if pressed {
		err = e.push(1)
	} else {
		err = e.push(0)
	}
	if err != nil {
		return fail(err)
	}
	return ok()
}

func hButtonReleased(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	released, hwErr := io.ButtonReleased(uint8(pin))
	if hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	if released {
		err = e.push(1)
	} else {
		err = e.push(0)
	}
	if err != nil {
		return fail(err)
	}
	return ok()
}

// hPinMode: guest pushes pin then mode; mode is consumed first.
func hPinMode(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	mode, err := e.pop()
	if err != nil {
		return fail(err)
	}
	pin, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if hwErr := io.PinMode(uint8(pin), pinModeFromInt(mode)); hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	return ok()
}

// hPrintf: immediate is the string_id; guest pushes arg_count on top of
// its arguments (pushed in argument order), so arg_count is consumed
// first and the arguments are popped back into order last-to-first.
func hPrintf(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	argCount, err := e.pop()
	if err != nil {
		return fail(err)
	}
	if argCount < 0 || int(argCount) > ioctl.MaxPrintfArgs {
		return fail(newErr(ErrHardwareFault, "printf arg_count %d exceeds max %d", argCount, ioctl.MaxPrintfArgs))
	}
	args := make([]int32, argCount)
	for i := int(argCount) - 1; i >= 0; i-- {
		v, popErr := e.pop()
		if popErr != nil {
			return fail(popErr)
		}
		args[i] = v
	}
	if _, hwErr := io.VMPrintf(uint8(inst.Immediate), args); hwErr != nil {
		return fail(newErr(ErrHardwareFault, "%v", hwErr))
	}
	return ok()
}

func hMillis(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	if err := e.push(int32(io.Millis())); err != nil {
		return fail(err)
	}
	return ok()
}

func hMicros(inst Instruction, e *Engine, mm *memory.Manager, io *ioctl.Controller) handlerResult {
	if err := e.push(int32(io.Micros())); err != nil {
		return fail(err)
	}
	return ok()
}
