//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an LED from a Linux GPIO character device line.
type RealWriter struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealWriter requests the line as an output, initially off.
// With activeLow the line is driven low for logical on.
func NewRealWriter(chipName string, offset int, activeLow bool) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("blinky"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	return &RealWriter{
		chip: chip,
		line: line,
	}, nil
}

// Write sets the logical level of the line.
func (r *RealWriter) Write(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set line value: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is driven off and then returned to input with pull-down
// (matching Pi boot defaults) so the LED is not left lit after exit.
func (r *RealWriter) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive line off: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
