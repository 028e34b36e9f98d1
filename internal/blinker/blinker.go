// Package blinker drives a gpio.Writer from a logic.Pattern.
// It owns the only mutable Pattern and performs the timed waits the
// pattern engine leaves to its caller.
package blinker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/gpio"
	"github.com/sweeney/blinky/internal/logic"
)

// Blinker runs one pattern at a time against a single output.
type Blinker struct {
	out    gpio.Writer
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
	reload chan logic.Config

	// pattern is only touched by the goroutine running Run.
	pattern *logic.Pattern

	mu      sync.RWMutex
	current logic.Summary
}

// Option configures a Blinker.
type Option func(*Blinker)

// WithBus publishes transitions, reloads and output errors to bus.
func WithBus(bus *events.Bus) Option {
	return func(b *Blinker) { b.bus = bus }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Blinker) { b.logger = logger }
}

// WithClock sets the timestamp source for events. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Blinker) { b.now = now }
}

// WithWait replaces time.After for holding each state. Tests use it to run
// the loop without real delays.
func WithWait(after func(time.Duration) <-chan time.Time) Option {
	return func(b *Blinker) { b.after = after }
}

// New creates a Blinker for cfg. cfg should already be valid; Run returns
// an error otherwise.
func New(cfg logic.Config, out gpio.Writer, opts ...Option) *Blinker {
	b := &Blinker{
		out:     out,
		logger:  slog.Default(),
		now:     time.Now,
		after:   time.After,
		reload:  make(chan logic.Config, 1),
		pattern: logic.NewPattern(cfg),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.current = b.pattern.Summary()
	return b
}

// Current returns the latest pattern summary. Safe for concurrent use.
func (b *Blinker) Current() logic.Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Reload hands a new configuration to the running loop, which replaces its
// pattern with a fresh one. Only the most recent pending config is kept.
func (b *Blinker) Reload(cfg logic.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	for {
		select {
		case b.reload <- cfg:
			return nil
		default:
			// drop the stale pending config
			select {
			case <-b.reload:
			default:
			}
		}
	}
}

// Run drives the output until ctx is cancelled or the pattern reaches its
// cycle count. The output is left off when Run returns.
func (b *Blinker) Run(ctx context.Context) error {
	if err := b.pattern.Config().Validate(); err != nil {
		return fmt.Errorf("blinker: %w", err)
	}
	defer b.write(logic.StateOff)

	b.logStart()
	b.write(b.pattern.CurrentState())

	for {
		if b.pattern.Done() {
			b.logger.Info("Pattern complete", "pattern", b.pattern.Config().Name(), "cycles", b.pattern.CycleCount())
			return nil
		}

		hold := time.Duration(b.pattern.NextDuration()) * time.Millisecond

		select {
		case <-ctx.Done():
			b.logger.Debug("Blinker stopped", "cycles", b.pattern.CycleCount())
			return nil

		case cfg := <-b.reload:
			b.swap(cfg)
			continue

		case <-b.after(hold):
		}

		from := b.pattern.CurrentState()
		to := b.pattern.Advance()
		b.write(to)
		b.publishTransition(from, to)
	}
}

func (b *Blinker) swap(cfg logic.Config) {
	b.pattern = logic.NewPattern(cfg)
	summary := b.updateCurrent()
	b.logger.Info("Pattern reloaded",
		"pattern", cfg.Name(),
		"on_ms", cfg.OnMs(),
		"off_ms", cfg.OffMs(),
		"count", cfg.Count(),
		"frequency", logic.FormatMilliHz(cfg.FrequencyMilliHz()))
	events.Publish(b.bus, events.Reloaded{Timestamp: b.now(), Summary: summary})
	b.write(b.pattern.CurrentState())
}

func (b *Blinker) publishTransition(from, to logic.State) {
	summary := b.updateCurrent()
	if to == logic.StateOn {
		b.logger.Debug("LED on", "cycle", summary.Cycles+1)
	} else {
		b.logger.Debug("LED off", "cycles", summary.Cycles)
	}
	events.Publish(b.bus, events.Transition{
		Timestamp: b.now(),
		Pattern:   summary.Name,
		From:      from,
		To:        to,
		Cycle:     summary.Cycles,
		HoldMs:    b.pattern.NextDuration(),
	})
}

// write drives the output. Failures are logged and reported, never fatal.
func (b *Blinker) write(s logic.State) {
	if err := b.out.Write(s.IsOn()); err != nil {
		b.logger.Warn("LED write failed", "state", s, "error", err)
		events.Publish(b.bus, events.OutputError{Timestamp: b.now(), State: s, Err: err.Error()})
	}
}

func (b *Blinker) updateCurrent() logic.Summary {
	s := b.pattern.Summary()
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
	return s
}

func (b *Blinker) logStart() {
	c := b.pattern.Config()
	b.logger.Info("Blinker started",
		"pattern", c.Name(),
		"on_ms", c.OnMs(),
		"off_ms", c.OffMs(),
		"period_ms", c.PeriodMs(),
		"duty_cycle", c.DutyCyclePercent(),
		"frequency", logic.FormatMilliHz(c.FrequencyMilliHz()),
		"count", c.Count())
}
