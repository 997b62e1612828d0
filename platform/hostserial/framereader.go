package hostserial

import (
	"fmt"
	"io"

	"github.com/cockpit-vm/cockpitvm/bootloader"
)

// ReadFrame accumulates bytes from r one at a time, the same granularity a
// real UART delivers them at, and returns the first fully decoded frame
// payload. It is the test harness's counterpart to a device firmware's
// interrupt-driven UART receive loop.
func ReadFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n == 1 {
			buf = append(buf, one[0])
			payload, _, frameErr := bootloader.DecodeFrame(buf)
			if frameErr != nil {
				return nil, fmt.Errorf("hostserial: %w", frameErr)
			}
			if payload != nil {
				return payload, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}
