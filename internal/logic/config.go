package logic

import (
	"math"
	"strconv"
)

// Default pattern timings in milliseconds.
const (
	DefaultOnMs  = 500
	DefaultOffMs = 500
)

// Config is an immutable, validated blink configuration.
// The zero value is not valid; build one with NewConfig or a preset.
type Config struct {
	onMs  uint32
	offMs uint32
	name  string
	count uint32
}

// NewConfig returns a configuration holding the output high for onMs and low
// for offMs. Both must be non-zero; the error matches ErrInvalidDuration.
func NewConfig(onMs, offMs uint32) (Config, error) {
	c := Config{onMs: onMs, offMs: offMs}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DefaultConfig is a symmetric 500ms on / 500ms off pattern (1Hz).
func DefaultConfig() Config {
	return Config{onMs: DefaultOnMs, offMs: DefaultOffMs, name: "default"}
}

// FastConfig is a symmetric 100ms pattern (5Hz).
func FastConfig() Config {
	return Config{onMs: 100, offMs: 100, name: "fast"}
}

// SlowConfig is a symmetric 1000ms pattern (0.5Hz).
func SlowConfig() Config {
	return Config{onMs: 1000, offMs: 1000, name: "slow"}
}

// Preset returns the named built-in pattern.
func Preset(name string) (Config, bool) {
	switch name {
	case "default":
		return DefaultConfig(), true
	case "fast":
		return FastConfig(), true
	case "slow":
		return SlowConfig(), true
	}
	return Config{}, false
}

// PresetNames lists the names accepted by Preset.
func PresetNames() []string {
	return []string{"default", "fast", "slow"}
}

// Validate checks that both durations are non-zero.
func (c Config) Validate() error {
	if c.onMs == 0 || c.offMs == 0 {
		return &ConfigError{OnMs: c.onMs, OffMs: c.offMs}
	}
	return nil
}

// WithName returns a copy of c carrying the given pattern name.
func (c Config) WithName(name string) Config {
	c.name = name
	return c
}

// WithCount returns a copy of c that stops after n full cycles.
// Zero means the pattern runs until its owner stops it.
func (c Config) WithCount(n uint32) Config {
	c.count = n
	return c
}

func (c Config) OnMs() uint32  { return c.onMs }
func (c Config) OffMs() uint32 { return c.offMs }
func (c Config) Name() string  { return c.name }
func (c Config) Count() uint32 { return c.count }

// DurationFor returns how long the output is held in state s.
func (c Config) DurationFor(s State) uint32 {
	if s == StateOn {
		return c.onMs
	}
	return c.offMs
}

// PeriodMs is on+off, saturating at math.MaxUint32.
func (c Config) PeriodMs() uint32 {
	sum := uint64(c.onMs) + uint64(c.offMs)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}

// DutyCyclePercent is on*100/(on+off), truncated.
// The 64-bit intermediate cannot overflow for any pair of uint32 durations.
func (c Config) DutyCyclePercent() uint32 {
	period := c.period64()
	if period == 0 {
		return 0
	}
	return uint32(uint64(c.onMs) * 100 / period)
}

// FrequencyMilliHz is 1000*1000/period in millihertz, truncated.
func (c Config) FrequencyMilliHz() uint32 {
	period := c.period64()
	if period == 0 {
		return 0
	}
	return uint32(1000 * 1000 / period)
}

func (c Config) period64() uint64 {
	return uint64(c.onMs) + uint64(c.offMs)
}

// FormatMilliHz renders a millihertz value as "H.mmmHz" without floating point.
func FormatMilliHz(mhz uint32) string {
	frac := strconv.FormatUint(uint64(mhz%1000), 10)
	for len(frac) < 3 {
		frac = "0" + frac
	}
	return strconv.FormatUint(uint64(mhz/1000), 10) + "." + frac + "Hz"
}
