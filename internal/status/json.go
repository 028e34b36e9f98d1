package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/blinky/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	LED            string       `json:"led"`
	Pattern        PatternJSON  `json:"pattern"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	LastTransition string       `json:"last_transition,omitempty"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// PatternJSON describes the running pattern.
type PatternJSON struct {
	Name             string `json:"name"`
	OnMs             uint32 `json:"on_ms"`
	OffMs            uint32 `json:"off_ms"`
	PeriodMs         uint32 `json:"period_ms"`
	DutyCyclePercent uint32 `json:"duty_cycle_percent"`
	FrequencyMilliHz uint32 `json:"frequency_millihertz"`
	Frequency        string `json:"frequency"`
	Cycles           uint32 `json:"cycles"`
	Count            uint32 `json:"count"`
	Done             bool   `json:"done"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of running totals.
type CountsJSON struct {
	Transitions     uint64 `json:"transitions"`
	OutputErrors    uint64 `json:"output_errors"`
	Reloads         uint64 `json:"reloads"`
	LastOutputError string `json:"last_output_error,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Driver      string `json:"driver"`
	Output      string `json:"output,omitempty"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
	ConfigPath  string `json:"config_path,omitempty"`
}

// LEDState returns the LED level for display, UNKNOWN before the first summary.
func LEDState(s logic.State) string {
	if s == "" {
		return "UNKNOWN"
	}
	return string(s)
}

func buildInner(snap Snapshot) StatusInner {
	p := snap.Pattern
	inner := StatusInner{
		LED: LEDState(p.State),
		Pattern: PatternJSON{
			Name:             p.Name,
			OnMs:             p.OnMs,
			OffMs:            p.OffMs,
			PeriodMs:         p.PeriodMs,
			DutyCyclePercent: p.DutyCyclePercent,
			FrequencyMilliHz: p.FrequencyMilliHz,
			Frequency:        logic.FormatMilliHz(p.FrequencyMilliHz),
			Cycles:           p.Cycles,
			Count:            p.Count,
			Done:             p.Done,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Transitions:     snap.Counts.Transitions,
			OutputErrors:    snap.Counts.OutputErrors,
			Reloads:         snap.Counts.Reloads,
			LastOutputError: snap.LastOutputError,
		},
		Config: ConfigJSON{
			Driver:      snap.Config.Driver,
			Output:      snap.Config.Output,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
			ConfigPath:  snap.Config.ConfigPath,
		},
	}
	if !snap.LastTransition.IsZero() {
		inner.LastTransition = snap.LastTransition.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
