// Package logic contains the pure blink pattern engine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Durations are plain millisecond integers and all arithmetic is integer-only,
// so a given sequence of calls produces the same results on every platform.
package logic

import (
	"errors"
	"fmt"
)

// State represents the logical level of the LED output.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Next returns the state a single advance moves to.
func (s State) Next() State {
	if s == StateOn {
		return StateOff
	}
	return StateOn
}

// Toggle flips s in place.
func (s *State) Toggle() {
	*s = s.Next()
}

// IsOn reports whether the output should be driven high.
func (s State) IsOn() bool {
	return s == StateOn
}

func (s State) String() string {
	return string(s)
}

// ErrInvalidDuration is matched by every error returned for a zero on or off duration.
var ErrInvalidDuration = errors.New("invalid duration")

// ConfigError reports which durations of a rejected configuration were zero.
type ConfigError struct {
	OnMs  uint32
	OffMs uint32
}

func (e *ConfigError) Error() string {
	switch {
	case e.OnMs == 0 && e.OffMs == 0:
		return "invalid duration: on and off durations must be greater than zero"
	case e.OnMs == 0:
		return fmt.Sprintf("invalid duration: on duration must be greater than zero (off=%dms)", e.OffMs)
	default:
		return fmt.Sprintf("invalid duration: off duration must be greater than zero (on=%dms)", e.OnMs)
	}
}

// Is makes errors.Is(err, ErrInvalidDuration) hold for any *ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidDuration
}

// Summary is a point-in-time view of a pattern for status reporting.
type Summary struct {
	Name             string
	State            State
	Cycles           uint32
	Count            uint32 // 0 = unbounded
	Done             bool
	OnMs             uint32
	OffMs            uint32
	PeriodMs         uint32
	DutyCyclePercent uint32
	FrequencyMilliHz uint32
}
