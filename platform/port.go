// port.go - The narrow abstract interface every guest-visible hardware
// operation (and the bootloader) is mediated through. The platform port is
// a process-wide singleton by necessity (one UART, one flash controller);
// it is passed into IOC, BPC and the startup coordinator at construction
// rather than reached for as ambient global state (spec §9).

package platform

// PinMode is the guest-visible configuration of a logical GPIO pin.
type PinMode uint8

const (
	PinModeInput PinMode = iota
	PinModeOutput
	PinModePullUp
	PinModePullDown
)

// Port is the abstract capability set consumed by IOC, BPC and the startup
// coordinator. A concrete implementation owns the real GPIO/UART/flash
// resources for the lifetime of the process; CockpitVM assumes exclusive
// use of them for the duration of a guest run or a bootloader session.
type Port interface {
	GPIOConfigure(pin uint8, mode PinMode) error
	GPIOWrite(pin uint8, high bool) error
	GPIORead(pin uint8) (bool, error)

	ADCRead(pin uint8) (uint16, error)
	PWMWrite(pin uint8, dutyU16 uint16) error

	Millis() uint32
	Micros() uint32
	DelayNanoseconds(ns uint32)

	UARTInit(baud uint32) error
	UARTWrite(data []byte) (int, error)
	UARTReadAvailable() bool
	UARTReadByte() (byte, error)

	FlashErasePage(addr uint32) error
	FlashProgram64(addr uint32, word uint64) error
	FlashRead(addr uint32, length int) ([]byte, error)

	// DebuggerAttached drives IOC's printf routing: true routes to the
	// semihosted sink, false to the production UART sink. The decision is
	// made per call and is not configurable by the guest.
	DebuggerAttached() bool
}
