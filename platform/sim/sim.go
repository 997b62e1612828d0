// sim.go - An in-memory simulated Port, used by the vm/startup/bootloader/
// hostserial test suites and by `cockpitvm run` when no real board is
// attached. Flash is a plain byte slice; UART is a pair of byte queues; GPIO
// state is held directly rather than touched through any OS syscall.
//
// Grounded on the teacher's FileIODevice (file_io.go): a small, validated
// host-capability device with explicit status/error fields and no panics.

package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/cockpit-vm/cockpitvm/platform"
)

// Port is a deterministic, in-process implementation of platform.Port.
type Port struct {
	mu sync.Mutex

	pinMode  [32]platform.PinMode
	pinValue [32]bool

	adc [32]uint16
	pwm [32]uint16

	start time.Time
	now   func() time.Time // overridable for deterministic tests

	uartBaud  uint32
	uartIn    []byte // bytes waiting to be read by the device under test
	uartOut   []byte // bytes written by the device, readable by the test
	debugAttn bool

	flash []byte
}

// FlashSize is the simulated flash region size; large enough to hold
// several reserved guest pages plus headroom for bootloader tests.
const FlashSize = 256 * 1024

// New constructs a simulated Port with `now` as its monotonic clock source.
// If now is nil, time.Now is used.
func New(now func() time.Time) *Port {
	if now == nil {
		now = time.Now
	}
	p := &Port{now: now, flash: make([]byte, FlashSize)}
	p.start = now()
	for i := range p.flash {
		p.flash[i] = 0xFF // erased flash reads as 0xFF
	}
	return p
}

func (p *Port) GPIOConfigure(pin uint8, mode platform.PinMode) error {
	if int(pin) >= len(p.pinMode) {
		return errors.New("sim: pin out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinMode[pin] = mode
	return nil
}

func (p *Port) GPIOWrite(pin uint8, high bool) error {
	if int(pin) >= len(p.pinValue) {
		return errors.New("sim: pin out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinMode[pin] != platform.PinModeOutput {
		return errors.New("sim: pin not configured as output")
	}
	p.pinValue[pin] = high
	return nil
}

func (p *Port) GPIORead(pin uint8) (bool, error) {
	if int(pin) >= len(p.pinValue) {
		return false, errors.New("sim: pin out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pinValue[pin], nil
}

func (p *Port) ADCRead(pin uint8) (uint16, error) {
	if int(pin) >= len(p.adc) {
		return 0, errors.New("sim: pin out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adc[pin], nil
}

func (p *Port) PWMWrite(pin uint8, dutyU16 uint16) error {
	if int(pin) >= len(p.pwm) {
		return errors.New("sim: pin out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwm[pin] = dutyU16
	return nil
}

// SetADC lets tests drive a simulated analog reading.
func (p *Port) SetADC(pin uint8, value uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(pin) < len(p.adc) {
		p.adc[pin] = value
	}
}

// SetDebuggerAttached lets tests flip the debugger-present probe that
// drives IOC's printf routing.
func (p *Port) SetDebuggerAttached(attached bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debugAttn = attached
}

func (p *Port) Millis() uint32 {
	return uint32(p.now().Sub(p.start).Milliseconds())
}

func (p *Port) Micros() uint32 {
	return uint32(p.now().Sub(p.start).Microseconds())
}

func (p *Port) DelayNanoseconds(ns uint32) {
	// The simulated port does not block the test process: it returns
	// immediately without sleeping or recording the requested delay.
	_ = ns
}

func (p *Port) UARTInit(baud uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uartBaud = baud
	return nil
}

func (p *Port) UARTWrite(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uartOut = append(p.uartOut, data...)
	return len(data), nil
}

func (p *Port) UARTReadAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.uartIn) > 0
}

func (p *Port) UARTReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.uartIn) == 0 {
		return 0, errors.New("sim: no data available")
	}
	b := p.uartIn[0]
	p.uartIn = p.uartIn[1:]
	return b, nil
}

// FeedUART appends bytes a host would have sent, for the device side to
// read back via UARTReadByte.
func (p *Port) FeedUART(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uartIn = append(p.uartIn, data...)
}

// DrainUARTOut returns and clears everything written via UARTWrite, as a
// host-side test harness would read off the wire.
func (p *Port) DrainUARTOut() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.uartOut
	p.uartOut = nil
	return out
}

func (p *Port) FlashErasePage(addr uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	const pageSize = 2048
	if int(addr)+pageSize > len(p.flash) {
		return errors.New("sim: flash erase out of range")
	}
	for i := 0; i < pageSize; i++ {
		p.flash[int(addr)+i] = 0xFF
	}
	return nil
}

func (p *Port) FlashProgram64(addr uint32, word uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(addr)+8 > len(p.flash) {
		return errors.New("sim: flash program out of range")
	}
	if addr%8 != 0 {
		return errors.New("sim: flash program address not 8-byte aligned")
	}
	for i := 0; i < 8; i++ {
		p.flash[int(addr)+i] = byte(word >> (8 * i))
	}
	return nil
}

func (p *Port) FlashRead(addr uint32, length int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(addr)+length > len(p.flash) {
		return nil, errors.New("sim: flash read out of range")
	}
	out := make([]byte, length)
	copy(out, p.flash[addr:int(addr)+length])
	return out, nil
}

func (p *Port) DebuggerAttached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debugAttn
}

var _ platform.Port = (*Port)(nil)
