// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/logic"
)

// Topic is the MQTT topic for LED transitions.
const Topic = "devices/blinky/led/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "devices/blinky/led/system"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReload      = "RELOAD"
	EventOffline     = "OFFLINE"
	EventReconnected = "RECONNECTED"
)

// Transition event names.
const (
	EventLEDOn  = "LED_ON"
	EventLEDOff = "LED_OFF"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an LED transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event events.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	LED LEDPayload `json:"led"`
}

// LEDPayload contains the transition details.
type LEDPayload struct {
	Timestamp string `json:"timestamp"`
	Pattern   string `json:"pattern"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Cycle     uint32 `json:"cycle"`
	HoldMs    uint32 `json:"hold_ms"`
}

// EventName returns LED_ON or LED_OFF for the state a transition enters.
func EventName(to logic.State) string {
	if to.IsOn() {
		return EventLEDOn
	}
	return EventLEDOff
}

// FormatPayload creates the JSON payload for an LED transition.
func FormatPayload(event events.Transition) ([]byte, error) {
	payload := Payload{
		LED: LEDPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Pattern:   event.Pattern,
			Event:     EventName(event.To),
			State:     string(event.To),
			Cycle:     event.Cycle,
			HoldMs:    event.HoldMs,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Subscribe forwards every transition on bus to pub. Publish failures are
// logged and otherwise ignored.
func Subscribe(bus *events.Bus, pub Publisher, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	return events.Subscribe(bus, func(e events.Transition) {
		if err := pub.Publish(e); err != nil {
			logger.Warn("MQTT publish failed", "event", EventName(e.To), "error", err)
		}
	})
}
