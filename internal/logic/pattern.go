package logic

import "math"

// Pattern is the two-state blink state machine.
// It is a plain value holder: it never waits, performs no I/O and is not
// safe for concurrent use. Keep each Pattern confined to one goroutine.
type Pattern struct {
	config    Config
	state     State
	cycles    uint32
	elapsedMs uint32
}

// NewPattern creates a pattern in the Off state with no completed cycles.
// cfg should come from NewConfig or a preset; a zero Config never advances
// under Elapse.
func NewPattern(cfg Config) *Pattern {
	return &Pattern{
		config: cfg,
		state:  StateOff,
	}
}

// Config returns the configuration the pattern was built from.
func (p *Pattern) Config() Config {
	return p.config
}

// CurrentState returns the level the output should be at now.
func (p *Pattern) CurrentState() State {
	return p.state
}

// CycleCount returns the number of completed On->Off cycles.
func (p *Pattern) CycleCount() uint32 {
	return p.cycles
}

// ElapsedInState returns how long the current state has been held, as
// accumulated by Elapse. Advance and Reset clear it.
func (p *Pattern) ElapsedInState() uint32 {
	return p.elapsedMs
}

// NextDuration returns how long the caller should hold the current state
// before calling Advance.
func (p *Pattern) NextDuration() uint32 {
	return p.config.DurationFor(p.state)
}

// Advance flips the state and returns the new one. Every On->Off transition
// completes a cycle; the counter saturates at math.MaxUint32.
func (p *Pattern) Advance() State {
	p.toggle()
	p.elapsedMs = 0
	return p.state
}

// Reset returns the pattern to Off with a zero cycle count.
func (p *Pattern) Reset() {
	p.state = StateOff
	p.cycles = 0
	p.elapsedMs = 0
}

// Done reports whether the configured cycle count has been reached.
// Patterns without a count are never done.
func (p *Pattern) Done() bool {
	return p.config.count > 0 && p.cycles >= p.config.count
}

// Elapse accounts ms of wall time against the current state and advances
// once for every hold that has fully passed. Leftover time carries over to
// the next call. It returns the number of transitions made; the resulting
// state and count equal those of the same number of Advance calls.
func (p *Pattern) Elapse(ms uint32) uint64 {
	total := uint64(p.elapsedMs) + uint64(ms)
	period := p.config.period64()
	if period == 0 {
		p.elapsedMs = saturate32(total)
		return 0
	}

	var transitions uint64

	// A whole period always passes through both states, returns to the
	// starting one and contains exactly one On->Off edge.
	if total >= period {
		k := total / period
		total -= k * period
		p.cycles = saturate32(uint64(p.cycles) + k)
		transitions += 2 * k
	}

	for total >= uint64(p.NextDuration()) {
		total -= uint64(p.NextDuration())
		p.toggle()
		transitions++
	}

	p.elapsedMs = uint32(total)
	return transitions
}

// Summary reports the pattern state together with its derived metrics.
func (p *Pattern) Summary() Summary {
	c := p.config
	return Summary{
		Name:             c.name,
		State:            p.state,
		Cycles:           p.cycles,
		Count:            c.count,
		Done:             p.Done(),
		OnMs:             c.onMs,
		OffMs:            c.offMs,
		PeriodMs:         c.PeriodMs(),
		DutyCyclePercent: c.DutyCyclePercent(),
		FrequencyMilliHz: c.FrequencyMilliHz(),
	}
}

func (p *Pattern) toggle() {
	if p.state == StateOn && p.cycles < math.MaxUint32 {
		p.cycles++
	}
	p.state.Toggle()
}

func saturate32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
