package gpio

import (
	"fmt"
	"os"
	"path/filepath"
)

// SysfsRoot is the kernel LED class directory.
const SysfsRoot = "/sys/class/leds"

// SysfsWriter drives a kernel LED class device through its brightness file.
type SysfsWriter struct {
	ledPath string
}

// NewSysfsWriter takes manual control of the named LED by setting its
// trigger to "none". root is normally SysfsRoot.
func NewSysfsWriter(root, name string) (*SysfsWriter, error) {
	if name == "" {
		return nil, fmt.Errorf("sysfs LED name is empty")
	}

	ledPath := filepath.Join(root, name)
	if _, err := os.Stat(ledPath); err != nil {
		return nil, fmt.Errorf("LED %q not found at %s: %w", name, ledPath, err)
	}

	if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte("none"), 0644); err != nil {
		return nil, fmt.Errorf("set LED trigger: %w", err)
	}

	return &SysfsWriter{ledPath: ledPath}, nil
}

// Write sets brightness to 1 or 0.
func (s *SysfsWriter) Write(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := os.WriteFile(filepath.Join(s.ledPath, "brightness"), []byte(v), 0644); err != nil {
		return fmt.Errorf("set LED brightness: %w", err)
	}
	return nil
}

// Close turns the LED off. The trigger is left at "none".
func (s *SysfsWriter) Close() error {
	return s.Write(false)
}
