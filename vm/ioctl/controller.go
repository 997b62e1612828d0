// controller.go - I/O Controller (IOC): guest-visible hardware operations
// plus the formatted-print facility with automatic output routing.
//
// Grounded on the teacher's file_io.go (status/error-code return, no
// panics) generalised from a single memory-mapped file device to the full
// HAL surface the spec requires, and on terminal_output.go for the idea of
// a dedicated output sink the caller does not choose directly.

package ioctl

import (
	"fmt"
	"strings"

	"github.com/cockpit-vm/cockpitvm/platform"
)

const (
	// MaxPins bounds the logical pin space IOC tracks state for.
	MaxPins = 16

	// MaxStrings bounds the printf format-string table (spec requires N>=16).
	MaxStrings = 32

	// MaxStringLength bounds any one format string.
	MaxStringLength = 128

	// MaxPrintfArgs bounds vm_printf's argument count.
	MaxPrintfArgs = 8
)

// Error reports an invalid pin, mode, argument count, or other guest-caused
// IOC misuse. IOC never aborts the VM; every failure surfaces this type.
type Error struct{ Detail string }

func (e *Error) Error() string { return e.Detail }

func errf(format string, args ...any) *Error { return &Error{Detail: fmt.Sprintf(format, args...)} }

type pinState struct {
	mode        platform.PinMode
	lastValue   bool
	initialized bool
}

// Sink receives routed printf output. Production code wires this to a
// platform.Port's UART or semihosted channel (see routePrintf below);
// tests can substitute a buffer.
type Sink interface {
	Write(text string)
}

// Controller owns pin state, the string table, and printf routing. It has
// no knowledge of the operand stack or program counter.
type Controller struct {
	port platform.Port

	pins    [MaxPins]pinState
	strings [MaxStrings]string
	nextStr int

	uartSink       Sink
	semihostedSink Sink

	// buttonLast records the previous GPIORead value per pin, so
	// ButtonPressed/ButtonReleased can report edges rather than levels.
	buttonLast [MaxPins]bool
}

// New constructs a Controller bound to a platform port. uartSink and
// semihostedSink receive routed printf text; either may be nil, in which
// case that route silently discards output (matching a board with no
// attached terminal).
func New(port platform.Port, uartSink, semihostedSink Sink) *Controller {
	return &Controller{port: port, uartSink: uartSink, semihostedSink: semihostedSink}
}

// Reset clears pin state and button edge history but preserves the
// string table, which is populated once before execution and is constant
// at run time per the spec's data model.
func (c *Controller) Reset() {
	for i := range c.pins {
		c.pins[i] = pinState{}
		c.buttonLast[i] = false
	}
}

// AddString registers format string `s` and returns its string_id. Fails
// if the table is full or s exceeds MaxStringLength.
func (c *Controller) AddString(s string) (uint8, error) {
	if c.nextStr >= MaxStrings {
		return 0, errf("string table full (max %d)", MaxStrings)
	}
	if len(s) > MaxStringLength {
		return 0, errf("string length %d exceeds max %d", len(s), MaxStringLength)
	}
	id := uint8(c.nextStr)
	c.strings[id] = s
	c.nextStr++
	return id, nil
}

// PinMode configures a logical pin's mode.
func (c *Controller) PinMode(pin uint8, mode platform.PinMode) error {
	if int(pin) >= MaxPins {
		return errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	if err := c.port.GPIOConfigure(pin, mode); err != nil {
		return errf("gpio_configure pin %d: %v", pin, err)
	}
	c.pins[pin].mode = mode
	c.pins[pin].initialized = true
	return nil
}

// DigitalWrite writes a boolean level to an output-capable pin.
func (c *Controller) DigitalWrite(pin uint8, high bool) error {
	if int(pin) >= MaxPins {
		return errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	if c.pins[pin].mode != platform.PinModeOutput {
		return errf("pin %d not in an output-capable mode", pin)
	}
	if err := c.port.GPIOWrite(pin, high); err != nil {
		return errf("gpio_write pin %d: %v", pin, err)
	}
	c.pins[pin].lastValue = high
	return nil
}

// DigitalRead reads the current level of a pin.
func (c *Controller) DigitalRead(pin uint8) (bool, error) {
	if int(pin) >= MaxPins {
		return false, errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	v, err := c.port.GPIORead(pin)
	if err != nil {
		return false, errf("gpio_read pin %d: %v", pin, err)
	}
	return v, nil
}

// AnalogRead reads a 16-bit ADC sample.
func (c *Controller) AnalogRead(pin uint8) (uint16, error) {
	if int(pin) >= MaxPins {
		return 0, errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	v, err := c.port.ADCRead(pin)
	if err != nil {
		return 0, errf("adc_read pin %d: %v", pin, err)
	}
	return v, nil
}

// AnalogWrite drives a 16-bit PWM duty cycle.
func (c *Controller) AnalogWrite(pin uint8, duty uint16) error {
	if int(pin) >= MaxPins {
		return errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	if err := c.port.PWMWrite(pin, duty); err != nil {
		return errf("pwm_write pin %d: %v", pin, err)
	}
	return nil
}

// DelayNanoseconds blocks the calling goroutine's logical VM step; the
// spec treats OP_DELAY as blocking the entire single-threaded VM by design.
func (c *Controller) DelayNanoseconds(ns uint32) {
	c.port.DelayNanoseconds(ns)
}

func (c *Controller) Millis() uint32 { return c.port.Millis() }
func (c *Controller) Micros() uint32 { return c.port.Micros() }

// ButtonPressed reports whether pin transitioned from released to pressed
// (true level) since the last edge query on that pin. It fails for a pin
// outside [0, MaxPins) or when the port's GPIORead fails.
func (c *Controller) ButtonPressed(pin uint8) (bool, error) {
	return c.buttonEdge(pin, true)
}

// ButtonReleased reports whether pin transitioned from pressed to released.
func (c *Controller) ButtonReleased(pin uint8) (bool, error) {
	return c.buttonEdge(pin, false)
}

func (c *Controller) buttonEdge(pin uint8, wantRising bool) (bool, error) {
	if int(pin) >= MaxPins {
		return false, errf("pin %d out of range [0,%d)", pin, MaxPins)
	}
	level, err := c.port.GPIORead(pin)
	if err != nil {
		return false, errf("gpio_read pin %d: %v", pin, err)
	}
	prev := c.buttonLast[pin]
	c.buttonLast[pin] = level
	if wantRising {
		return !prev && level, nil
	}
	return prev && !level, nil
}

// VMPrintf formats string_id against args (at most MaxPrintfArgs of them)
// and routes the result via routePrintf. Supports %d, %x, %c; any other
// specifier passes through literally.
func (c *Controller) VMPrintf(stringID uint8, args []int32) (string, error) {
	if int(stringID) >= c.nextStr {
		return "", errf("string id %d not registered", stringID)
	}
	if len(args) > MaxPrintfArgs {
		return "", errf("arg_count %d exceeds max %d", len(args), MaxPrintfArgs)
	}
	text := formatPrintf(c.strings[stringID], args)
	c.routePrintf(text)
	return text, nil
}

// formatPrintf scans format for %d/%x/%c and substitutes from args in
// order; an unrecognised specifier (including a bare trailing '%') is
// copied through literally rather than erroring, per §4.3.
func formatPrintf(format string, args []int32) string {
	var b strings.Builder
	argIdx := 0
	next := func() (int32, bool) {
		if argIdx >= len(args) {
			return 0, false
		}
		v := args[argIdx]
		argIdx++
		return v, true
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i == len(format)-1 {
			b.WriteByte(format[i])
			continue
		}
		verb := format[i+1]
		switch verb {
		case 'd':
			if v, ok := next(); ok {
				fmt.Fprintf(&b, "%d", v)
			} else {
				b.WriteString("%d")
			}
			i++
		case 'x':
			if v, ok := next(); ok {
				fmt.Fprintf(&b, "%x", uint32(v))
			} else {
				b.WriteString("%x")
			}
			i++
		case 'c':
			if v, ok := next(); ok {
				b.WriteByte(byte(v))
			} else {
				b.WriteString("%c")
			}
			i++
		default:
			b.WriteByte('%')
		}
	}
	return b.String()
}

// routePrintf selects a sink per call: the semihosted channel when a
// debugger is attached, the production UART sink otherwise. This routing
// is not configurable by the guest (§4.3) and is a pure function of
// DebuggerAttached() at the moment of the call.
func (c *Controller) routePrintf(text string) {
	var sink Sink
	if c.port.DebuggerAttached() {
		sink = c.semihostedSink
	} else {
		sink = c.uartSink
	}
	if sink != nil {
		sink.Write(text)
	}
}
