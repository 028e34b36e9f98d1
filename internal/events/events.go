// Package events carries blink transitions from the blinker to its
// observers (MQTT, metrics, status) over a kelindar/event dispatcher.
package events

import (
	"time"

	"github.com/kelindar/event"

	"github.com/sweeney/blinky/internal/logic"
)

// Event type constants for kelindar/event.
const (
	TypeTransition uint32 = iota + 1
	TypeReloaded
	TypeOutputError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Transition is published after every Advance.
type Transition struct {
	Timestamp time.Time
	Pattern   string
	From      logic.State
	To        logic.State
	Cycle     uint32 // cycle count after the transition
	HoldMs    uint32 // how long To will be held
}

// Type returns the event type identifier for Transition.
func (e Transition) Type() uint32 { return TypeTransition }

// Reloaded is published when the blinker swaps in a new pattern.
type Reloaded struct {
	Timestamp time.Time
	Summary   logic.Summary
}

// Type returns the event type identifier for Reloaded.
func (e Reloaded) Type() uint32 { return TypeReloaded }

// OutputError is published when driving the LED fails.
type OutputError struct {
	Timestamp time.Time
	State     logic.State
	Err       string
}

// Type returns the event type identifier for OutputError.
func (e OutputError) Type() uint32 { return TypeOutputError }

// Bus wraps a kelindar/event dispatcher.
// Each subscriber receives events in publish order on its own goroutine.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish sends ev to every subscriber of its type. A nil bus drops it.
func Publish[T Event](b *Bus, ev T) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, ev)
}

// Subscribe registers handler for events of type T and returns an
// unsubscribe function.
func Subscribe[T Event](b *Bus, handler func(T)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
