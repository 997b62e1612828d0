// Package hostserial provides a real pty-backed serial link for exercising
// the bootloader protocol end to end without physical hardware: one side
// stands in for the host-side flashing tool, the other for the device UART.
//
// Grounded on the teacher's terminal_host.go, which puts a real fd into raw
// mode via golang.org/x/term and reads it byte-at-a-time with
// golang.org/x/sys/unix; here the fd pair comes from a pty instead of
// stdin, and both ends are under test control rather than interactive.
package hostserial

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Link is a loopback serial pair: bytes written to Host arrive readable on
// Device and vice versa, the same way a null-modem cable joins a host's
// flashing tool to a device's UART.
type Link struct {
	Host   *os.File
	Device *os.File

	hostState   *term.State
	deviceState *term.State
}

// OpenLoopback allocates a pty pair and puts both ends into raw mode, so
// neither side's stream is mangled by line discipline (echo, CR/LF
// translation) the way a real UART link would not be either.
func OpenLoopback() (*Link, error) {
	fdm, fds, _, err := unix.Openpty()
	if err != nil {
		return nil, fmt.Errorf("hostserial: openpty: %w", err)
	}
	host := os.NewFile(uintptr(fdm), "host")
	device := os.NewFile(uintptr(fds), "device")

	hostState, err := term.MakeRaw(int(host.Fd()))
	if err != nil {
		host.Close()
		device.Close()
		return nil, fmt.Errorf("hostserial: raw mode on host side: %w", err)
	}
	deviceState, err := term.MakeRaw(int(device.Fd()))
	if err != nil {
		_ = term.Restore(int(host.Fd()), hostState)
		host.Close()
		device.Close()
		return nil, fmt.Errorf("hostserial: raw mode on device side: %w", err)
	}

	return &Link{Host: host, Device: device, hostState: hostState, deviceState: deviceState}, nil
}

// Close restores both ends' terminal state and closes the underlying fds.
func (l *Link) Close() error {
	var firstErr error
	if err := term.Restore(int(l.Host.Fd()), l.hostState); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := term.Restore(int(l.Device.Fd()), l.deviceState); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.Host.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.Device.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
