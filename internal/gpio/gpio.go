// Package gpio provides the LED output capability with hardware abstraction.
// The real implementation drives a Linux GPIO character device line; the
// sysfs implementation drives a kernel LED class device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Writer drives a single binary output.
type Writer interface {
	// Write sets the logical output level: true = LED on.
	// Active-low wiring is handled by the implementation.
	Write(on bool) error

	// Close releases the output, leaving it in a safe state.
	Close() error
}

// WriterFunc adapts a plain function to the Writer interface.
type WriterFunc func(on bool) error

// Write calls f(on).
func (f WriterFunc) Write(on bool) error {
	return f(on)
}

// Close is a no-op.
func (f WriterFunc) Close() error {
	return nil
}

// Output driver names accepted by Open.
const (
	DriverGPIO  = "gpio"
	DriverSysfs = "sysfs"
	DriverNone  = "none"
)

// Defaults for the Raspberry Pi.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17 // BCM numbering
	DefaultLED  = "ACT"
)

// Options selects and configures an output driver.
type Options struct {
	Driver    string
	Chip      string
	Line      int
	ActiveLow bool
	LED       string // sysfs LED name under /sys/class/leds
}

// Open returns the Writer selected by opts.Driver.
func Open(opts Options) (Writer, error) {
	switch opts.Driver {
	case DriverGPIO:
		w, err := NewRealWriter(opts.Chip, opts.Line, opts.ActiveLow)
		if err != nil {
			return nil, err
		}
		return w, nil
	case DriverSysfs:
		w, err := NewSysfsWriter(SysfsRoot, opts.LED)
		if err != nil {
			return nil, err
		}
		return w, nil
	case DriverNone, "":
		return NewLogWriter(nil), nil
	}
	return nil, fmt.Errorf("unknown output driver %q", opts.Driver)
}
