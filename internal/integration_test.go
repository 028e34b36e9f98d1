package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/blinky/internal/blinker"
	"github.com/sweeney/blinky/internal/config"
	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/gpio"
	"github.com/sweeney/blinky/internal/logic"
	"github.com/sweeney/blinky/internal/mqtt"
	"github.com/sweeney/blinky/internal/status"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// instantWait never blocks, so a counted pattern runs to completion at once.
func instantWait(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// waitFor polls cond until it holds. Bus delivery is asynchronous.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

type rig struct {
	bus     *events.Bus
	out     *gpio.FakeWriter
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
}

func newRig(t *testing.T, cfg logic.Config) *rig {
	t.Helper()
	r := &rig{
		bus:     events.New(),
		out:     gpio.NewFakeWriter(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{Driver: gpio.DriverNone}),
	}
	r.tracker.SetPattern(logic.NewPattern(cfg).Summary())
	t.Cleanup(r.tracker.Subscribe(r.bus))
	t.Cleanup(mqtt.Subscribe(r.bus, r.pub, quietLogger()))
	return r
}

func mustConfig(t *testing.T, on, off uint32) logic.Config {
	t.Helper()
	cfg, err := logic.NewConfig(on, off)
	if err != nil {
		t.Fatalf("NewConfig(%d, %d): %v", on, off, err)
	}
	return cfg
}

// TestIntegrationFullFlow runs a counted pattern from the blinker through the
// bus to the output, the MQTT publisher and the status tracker.
func TestIntegrationFullFlow(t *testing.T) {
	cfg := mustConfig(t, 300, 100).WithName("status").WithCount(2)
	r := newRig(t, cfg)

	b := blinker.New(cfg, r.out,
		blinker.WithBus(r.bus),
		blinker.WithLogger(quietLogger()),
		blinker.WithWait(instantWait))
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// initial off, four transitions, off on exit
	want := []bool{false, true, false, true, false, false}
	if len(r.out.Levels) != len(want) {
		t.Fatalf("levels: got %v, want %v", r.out.Levels, want)
	}
	for i := range want {
		if r.out.Levels[i] != want[i] {
			t.Fatalf("levels: got %v, want %v", r.out.Levels, want)
		}
	}

	waitFor(t, "4 published transitions", func() bool {
		evs, _ := r.pub.Recorded()
		return len(evs) == 4
	})
	evs, _ := r.pub.Recorded()

	wantTo := []logic.State{logic.StateOn, logic.StateOff, logic.StateOn, logic.StateOff}
	wantCycle := []uint32{0, 1, 1, 2}
	wantHold := []uint32{300, 100, 300, 100}
	for i, e := range evs {
		if e.To != wantTo[i] {
			t.Errorf("event %d: To got %s, want %s", i, e.To, wantTo[i])
		}
		if e.Cycle != wantCycle[i] {
			t.Errorf("event %d: Cycle got %d, want %d", i, e.Cycle, wantCycle[i])
		}
		if e.HoldMs != wantHold[i] {
			t.Errorf("event %d: HoldMs got %d, want %d", i, e.HoldMs, wantHold[i])
		}
		if e.Pattern != "status" {
			t.Errorf("event %d: Pattern got %q", i, e.Pattern)
		}
	}

	waitFor(t, "tracker to see the last transition", func() bool {
		return r.tracker.Snapshot().Counts.Transitions == 4
	})
	snap := r.tracker.Snapshot()
	if snap.Pattern.Cycles != 2 || !snap.Pattern.Done {
		t.Errorf("tracker: cycles=%d done=%v, want 2/true", snap.Pattern.Cycles, snap.Pattern.Done)
	}
	if snap.Pattern.State != logic.StateOff {
		t.Errorf("tracker state: got %s, want OFF", snap.Pattern.State)
	}

	if final := b.Current(); final.Cycles != 2 || !final.Done {
		t.Errorf("Current: got %+v", final)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	cfg := mustConfig(t, 250, 750).WithCount(1)
	r := newRig(t, cfg)

	b := blinker.New(cfg, r.out, blinker.WithBus(r.bus), blinker.WithLogger(quietLogger()), blinker.WithWait(instantWait))
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitFor(t, "2 published transitions", func() bool {
		evs, _ := r.pub.Recorded()
		return len(evs) == 2
	})

	evs, _ := r.pub.Recorded()
	data, err := mqtt.FormatPayload(evs[0])
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var p mqtt.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.LED.Event != mqtt.EventLEDOn || p.LED.State != "ON" {
		t.Errorf("first payload: got %+v", p.LED)
	}
	if p.LED.HoldMs != 250 {
		t.Errorf("hold_ms: got %d, want 250", p.LED.HoldMs)
	}
	if _, err := time.Parse(time.RFC3339, p.LED.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", p.LED.Timestamp, err)
	}
}

func TestIntegrationPublishFailureDoesNotStopBlinking(t *testing.T) {
	cfg := mustConfig(t, 10, 10).WithCount(3)
	r := newRig(t, cfg)
	r.pub.PublishError = errors.New("broker unavailable")

	b := blinker.New(cfg, r.out, blinker.WithBus(r.bus), blinker.WithLogger(quietLogger()), blinker.WithWait(instantWait))
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 1 initial + 6 transitions + 1 final
	if len(r.out.Levels) != 8 {
		t.Errorf("expected 8 writes, got %d", len(r.out.Levels))
	}
	waitFor(t, "tracker to count transitions", func() bool {
		return r.tracker.Snapshot().Counts.Transitions == 6
	})
	evs, _ := r.pub.Recorded()
	if len(evs) != 0 {
		t.Errorf("failed publishes should not be recorded, got %d", len(evs))
	}
}

func TestIntegrationOutputErrorsCounted(t *testing.T) {
	cfg := mustConfig(t, 10, 10).WithCount(1)
	r := newRig(t, cfg)
	r.out.WriteError = errors.New("line busy")

	b := blinker.New(cfg, r.out, blinker.WithBus(r.bus), blinker.WithLogger(quietLogger()), blinker.WithWait(instantWait))
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// initial, two transitions and the final off all fail
	waitFor(t, "output errors in tracker", func() bool {
		return r.tracker.Snapshot().Counts.OutputErrors == 4
	})
	if got := r.tracker.Snapshot().LastOutputError; got != "line busy" {
		t.Errorf("LastOutputError: got %q", got)
	}
	waitFor(t, "transitions despite output errors", func() bool {
		evs, _ := r.pub.Recorded()
		return len(evs) == 2
	})
}

func TestIntegrationSystemEventPayload(t *testing.T) {
	r := newRig(t, logic.DefaultConfig())
	r.tracker.SetMQTTConnected(true)
	r.tracker.SetNetwork(&status.NetworkInfo{Status: "connected", IP: "192.168.1.42"})

	ev := mqtt.SystemEvent{
		Timestamp:  time.Now(),
		Event:      mqtt.EventShutdown,
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(r.tracker.Snapshot(), mqtt.EventShutdown, "SIGTERM"),
	}
	if err := r.pub.PublishSystem(ev); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	_, sys := r.pub.Recorded()
	if len(sys) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(sys))
	}
	var s status.StatusJSON
	if err := json.Unmarshal(r.pub.SystemPayloads[0], &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Status.Event != "SHUTDOWN" || s.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", s.Status.Event, s.Status.Reason)
	}
	if s.Status.LED != "OFF" {
		t.Errorf("led: got %q, want OFF", s.Status.LED)
	}
	if s.Status.Pattern.PeriodMs != 1000 || s.Status.Pattern.DutyCyclePercent != 50 {
		t.Errorf("pattern: got %+v", s.Status.Pattern)
	}
	if !s.Status.MQTT.Connected {
		t.Error("expected mqtt.connected=true")
	}
	if s.Status.Network == nil || s.Status.Network.IP != "192.168.1.42" {
		t.Errorf("network: got %+v", s.Status.Network)
	}
}

// TestIntegrationConfigReload edits the config file under a running blinker
// and checks the new pattern reaches the blinker and the tracker, while an
// invalid edit leaves it in place.
func TestIntegrationConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinky.toml")
	if err := os.WriteFile(path, []byte("[pattern]\npreset = \"fast\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	load := config.PatternLoader(config.Options{}, nil)
	cfg, err := load(path)
	if err != nil {
		t.Fatalf("initial load: %v", err)
	}
	r := newRig(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := blinker.New(cfg, r.out, blinker.WithBus(r.bus), blinker.WithLogger(quietLogger()),
		blinker.WithWait(func(time.Duration) <-chan time.Time { return time.After(time.Millisecond) }))

	loadErrs := make(chan error, 4)
	w := config.NewWatcher(path, load, quietLogger(),
		config.WithDebounce[logic.Config](20*time.Millisecond),
		config.WithErrorHandler[logic.Config](func(err error) { loadErrs <- err }))
	w.OnReload(func(c logic.Config) {
		if err := b.Reload(c); err != nil {
			t.Errorf("Reload: %v", err)
		}
	})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("watcher start: %v", err)
	}
	defer w.Stop()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	if err := os.WriteFile(path, []byte("[pattern]\non_ms = 40\noff_ms = 60\nname = \"edited\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reloaded pattern in tracker", func() bool {
		p := r.tracker.Snapshot().Pattern
		return p.Name == "edited" && p.OnMs == 40 && p.OffMs == 60
	})
	if got := r.tracker.Snapshot().Counts.Reloads; got != 1 {
		t.Errorf("reloads: got %d, want 1", got)
	}

	if err := os.WriteFile(path, []byte("[pattern]\non_ms = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-loadErrs:
		if !errors.Is(err, logic.ErrInvalidDuration) {
			t.Errorf("expected ErrInvalidDuration, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for invalid reload")
	}
	if got := b.Current().Name; got != "edited" {
		t.Errorf("invalid reload replaced the pattern: got %q", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last, ok := r.out.Last(); !ok || last {
		t.Error("output should be left off after Run returns")
	}
}
