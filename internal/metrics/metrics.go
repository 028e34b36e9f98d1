// Package metrics provides Prometheus metrics for the blink pattern and its output.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/logic"
)

var (
	ledState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinky",
		Subsystem: "led",
		Name:      "state",
		Help:      "Current logical LED level (1 = on)",
	})

	cycleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinky",
		Subsystem: "led",
		Name:      "cycle_count",
		Help:      "Completed on/off cycles of the current pattern",
	})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blinky",
		Subsystem: "led",
		Name:      "transitions_total",
		Help:      "LED transitions by target state",
	}, []string{"state"})

	periodMs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinky",
		Subsystem: "pattern",
		Name:      "period_ms",
		Help:      "Pattern period in milliseconds",
	})

	dutyCycle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinky",
		Subsystem: "pattern",
		Name:      "duty_cycle_percent",
		Help:      "Pattern duty cycle in percent",
	})

	frequency = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinky",
		Subsystem: "pattern",
		Name:      "frequency_millihertz",
		Help:      "Pattern frequency in millihertz",
	})

	outputErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blinky",
		Name:      "output_errors_total",
		Help:      "Failed writes to the LED output",
	})

	reloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blinky",
		Name:      "config_reloads_total",
		Help:      "Patterns swapped in by config reload",
	})
)

// SetPattern publishes a pattern's derived metrics and current position.
func SetPattern(s logic.Summary) {
	periodMs.Set(float64(s.PeriodMs))
	dutyCycle.Set(float64(s.DutyCyclePercent))
	frequency.Set(float64(s.FrequencyMilliHz))
	cycleCount.Set(float64(s.Cycles))
	setState(s.State)
}

// ObserveTransition records one LED transition.
func ObserveTransition(e events.Transition) {
	transitions.WithLabelValues(string(e.To)).Inc()
	cycleCount.Set(float64(e.Cycle))
	setState(e.To)
}

// IncOutputError counts a failed output write.
func IncOutputError() {
	outputErrors.Inc()
}

// ObserveReload counts a pattern reload and publishes the new pattern.
func ObserveReload(e events.Reloaded) {
	reloads.Inc()
	SetPattern(e.Summary)
}

// Subscribe wires the metrics to bus events and returns an unsubscribe function.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		events.Subscribe(bus, ObserveTransition),
		events.Subscribe(bus, ObserveReload),
		events.Subscribe(bus, func(events.OutputError) { IncOutputError() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func setState(s logic.State) {
	if s.IsOn() {
		ledState.Set(1)
	} else {
		ledState.Set(0)
	}
}
