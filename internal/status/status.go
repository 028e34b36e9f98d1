// Package status provides a thread-safe status tracker for the blinky daemon.
// It is read by HTTP handlers and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Driver      string
	Output      string // chip:line for gpio, LED name for sysfs
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	ConfigPath  string
}

// Counts are running totals since startup.
type Counts struct {
	Transitions  uint64
	OutputErrors uint64
	Reloads      uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Pattern         logic.Summary
	LastTransition  time.Time
	LastOutputError string
	Counts          Counts
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Network         *NetworkInfo
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetPattern replaces the pattern summary.
func (t *Tracker) SetPattern(s logic.Summary) {
	t.mu.Lock()
	t.snap.Pattern = s
	t.mu.Unlock()
}

// RecordTransition applies an LED transition to the stored summary.
func (t *Tracker) RecordTransition(e events.Transition) {
	t.mu.Lock()
	p := &t.snap.Pattern
	p.State = e.To
	p.Cycles = e.Cycle
	p.Done = p.Count > 0 && p.Cycles >= p.Count
	t.snap.LastTransition = e.Timestamp
	t.snap.Counts.Transitions++
	t.mu.Unlock()
}

// RecordReload stores the summary of a freshly loaded pattern.
func (t *Tracker) RecordReload(e events.Reloaded) {
	t.mu.Lock()
	t.snap.Pattern = e.Summary
	t.snap.Counts.Reloads++
	t.mu.Unlock()
}

// RecordOutputError counts a failed output write.
func (t *Tracker) RecordOutputError(e events.OutputError) {
	t.mu.Lock()
	t.snap.Counts.OutputErrors++
	t.snap.LastOutputError = e.Err
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// Subscribe keeps the tracker current from bus events.
func (t *Tracker) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		events.Subscribe(bus, t.RecordTransition),
		events.Subscribe(bus, t.RecordReload),
		events.Subscribe(bus, t.RecordOutputError),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
