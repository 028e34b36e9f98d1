package logic

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	c, err := NewConfig(300, 700)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.OnMs() != 300 {
		t.Errorf("OnMs: got %d, want 300", c.OnMs())
	}
	if c.OffMs() != 700 {
		t.Errorf("OffMs: got %d, want 700", c.OffMs())
	}
	if c.Name() != "" {
		t.Errorf("Name: got %q, want empty", c.Name())
	}
	if c.Count() != 0 {
		t.Errorf("Count: got %d, want 0", c.Count())
	}
}

func TestNewConfigRejectsZeroDurations(t *testing.T) {
	tests := []struct {
		name  string
		on    uint32
		off   uint32
		wantS string
	}{
		{"zero on", 0, 100, "on duration"},
		{"zero off", 100, 0, "off duration"},
		{"both zero", 0, 0, "on and off"},
		{"zero on max off", 0, math.MaxUint32, "on duration"},
		{"max on zero off", math.MaxUint32, 0, "off duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConfig(tt.on, tt.off)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidDuration) {
				t.Errorf("expected ErrInvalidDuration, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if ce.OnMs != tt.on || ce.OffMs != tt.off {
				t.Errorf("ConfigError fields: got (%d, %d), want (%d, %d)", ce.OnMs, ce.OffMs, tt.on, tt.off)
			}
			if c != (Config{}) {
				t.Errorf("expected zero Config on error, got %+v", c)
			}
			if got := err.Error(); !strings.Contains(got, tt.wantS) {
				t.Errorf("error %q does not mention %q", got, tt.wantS)
			}
		})
	}
}

func TestNewConfigAcceptsAllNonZero(t *testing.T) {
	values := []uint32{1, 2, 100, 500, 65535, math.MaxUint32 - 1, math.MaxUint32}
	for _, on := range values {
		for _, off := range values {
			if _, err := NewConfig(on, off); err != nil {
				t.Errorf("NewConfig(%d, %d): unexpected error: %v", on, off, err)
			}
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.OnMs() != 500 || c.OffMs() != 500 {
		t.Errorf("expected 500/500, got %d/%d", c.OnMs(), c.OffMs())
	}
	if c.OnMs() != c.OffMs() {
		t.Error("default pattern should be symmetric")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if c.FrequencyMilliHz() != 1000 {
		t.Errorf("expected 1000mHz, got %d", c.FrequencyMilliHz())
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name    string
		on, off uint32
	}{
		{"default", 500, 500},
		{"fast", 100, 100},
		{"slow", 1000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Preset(tt.name)
			if !ok {
				t.Fatalf("preset %q not found", tt.name)
			}
			if c.OnMs() != tt.on || c.OffMs() != tt.off {
				t.Errorf("got %d/%d, want %d/%d", c.OnMs(), c.OffMs(), tt.on, tt.off)
			}
			if c.Name() != tt.name {
				t.Errorf("Name: got %q, want %q", c.Name(), tt.name)
			}
		})
	}

	if _, ok := Preset("strobe"); ok {
		t.Error("unknown preset should not be found")
	}
	if len(PresetNames()) != 3 {
		t.Errorf("expected 3 preset names, got %v", PresetNames())
	}
}

func TestValidateZeroValue(t *testing.T) {
	var c Config
	if err := c.Validate(); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero Config should be invalid, got %v", err)
	}
}

func TestWithNameAndCountCopy(t *testing.T) {
	base, _ := NewConfig(100, 200)
	named := base.WithName("heartbeat").WithCount(3)

	if base.Name() != "" || base.Count() != 0 {
		t.Error("WithName/WithCount must not modify the receiver")
	}
	if named.Name() != "heartbeat" {
		t.Errorf("Name: got %q", named.Name())
	}
	if named.Count() != 3 {
		t.Errorf("Count: got %d", named.Count())
	}
	if named.OnMs() != 100 || named.OffMs() != 200 {
		t.Error("durations should be preserved")
	}
}

func TestDurationFor(t *testing.T) {
	c, _ := NewConfig(200, 800)
	if got := c.DurationFor(StateOn); got != 200 {
		t.Errorf("On: got %d, want 200", got)
	}
	if got := c.DurationFor(StateOff); got != 800 {
		t.Errorf("Off: got %d, want 800", got)
	}
}

func TestDerivedMetrics(t *testing.T) {
	tests := []struct {
		on, off    uint32
		wantPeriod uint32
		wantDuty   uint32
		wantMilli  uint32
	}{
		{300, 700, 1000, 30, 1000},
		{500, 500, 1000, 50, 1000},
		{250, 250, 500, 50, 2000},
		{100, 900, 1000, 10, 1000},
		{1, 2, 3, 33, 333333},
		{2, 1, 3, 66, 333333},
		{1, 1, 2, 50, 500000},
		{999, 1, 1000, 99, 1000},
		{1000, 1000, 2000, 50, 500},
		{1, 999999, 1000000, 0, 1},
		{3000000, 3000000, 6000000, 50, 0},
	}

	for _, tt := range tests {
		c, err := NewConfig(tt.on, tt.off)
		if err != nil {
			t.Fatalf("NewConfig(%d, %d): %v", tt.on, tt.off, err)
		}
		if got := c.PeriodMs(); got != tt.wantPeriod {
			t.Errorf("(%d,%d) PeriodMs: got %d, want %d", tt.on, tt.off, got, tt.wantPeriod)
		}
		if got := c.DutyCyclePercent(); got != tt.wantDuty {
			t.Errorf("(%d,%d) DutyCyclePercent: got %d, want %d", tt.on, tt.off, got, tt.wantDuty)
		}
		if got := c.FrequencyMilliHz(); got != tt.wantMilli {
			t.Errorf("(%d,%d) FrequencyMilliHz: got %d, want %d", tt.on, tt.off, got, tt.wantMilli)
		}
	}
}

func TestPeriodSaturates(t *testing.T) {
	c, _ := NewConfig(math.MaxUint32, math.MaxUint32)
	if got := c.PeriodMs(); got != math.MaxUint32 {
		t.Errorf("PeriodMs: got %d, want MaxUint32", got)
	}

	c, _ = NewConfig(math.MaxUint32, 1)
	if got := c.PeriodMs(); got != math.MaxUint32 {
		t.Errorf("PeriodMs: got %d, want MaxUint32", got)
	}

	c, _ = NewConfig(math.MaxUint32-1, 1)
	if got := c.PeriodMs(); got != math.MaxUint32 {
		t.Errorf("PeriodMs: got %d, want MaxUint32", got)
	}
}

func TestDutyCycleLargeDurations(t *testing.T) {
	c, _ := NewConfig(math.MaxUint32, math.MaxUint32)
	if got := c.DutyCyclePercent(); got != 50 {
		t.Errorf("DutyCyclePercent: got %d, want 50", got)
	}
	if got := c.FrequencyMilliHz(); got != 0 {
		t.Errorf("FrequencyMilliHz: got %d, want 0", got)
	}

	c, _ = NewConfig(math.MaxUint32, 1)
	if got := c.DutyCyclePercent(); got != 99 {
		t.Errorf("DutyCyclePercent: got %d, want 99", got)
	}
}

func TestDutyCycleRange(t *testing.T) {
	values := []uint32{1, 7, 100, 333, 1000, 123456, math.MaxUint32}
	for _, on := range values {
		for _, off := range values {
			c, _ := NewConfig(on, off)
			if d := c.DutyCyclePercent(); d > 100 {
				t.Errorf("(%d,%d): duty %d out of range", on, off, d)
			}
		}
	}
}

func TestFormatMilliHz(t *testing.T) {
	tests := []struct {
		in   uint32
		want string
	}{
		{0, "0.000Hz"},
		{1, "0.001Hz"},
		{500, "0.500Hz"},
		{1000, "1.000Hz"},
		{2000, "2.000Hz"},
		{333333, "333.333Hz"},
		{1050, "1.050Hz"},
	}
	for _, tt := range tests {
		if got := FormatMilliHz(tt.in); got != tt.want {
			t.Errorf("FormatMilliHz(%d): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
