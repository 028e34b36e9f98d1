// Package config loads daemon options from CLI flags, BLINKY_* environment
// variables and a TOML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/blinky/internal/gpio"
	"github.com/sweeney/blinky/internal/logging"
	"github.com/sweeney/blinky/internal/logic"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "BLINKY_"

// Defaults.
const (
	DefaultHTTPAddr    = ":80"
	DefaultHeartbeatMs = 15 * 60 * 1000
	DefaultWSBroker    = "=broker"
	CustomPatternName  = "custom"
)

// Options is the full daemon configuration.
//
// The toml tag is a dotted path into the file, env is the variable name
// without EnvPrefix, and flag overrides the flag name derived from the
// field name ("OnMs" -> "on-ms").
type Options struct {
	Config string `flag:"config"`

	Preset string `toml:"pattern.preset" env:"PRESET"`
	OnMs   uint32 `toml:"pattern.on_ms" env:"ON_MS"`
	OffMs  uint32 `toml:"pattern.off_ms" env:"OFF_MS"`
	Name   string `toml:"pattern.name" env:"NAME"`
	Count  uint32 `toml:"pattern.count" env:"COUNT"`

	Driver    string `toml:"output.driver" env:"DRIVER"`
	Chip      string `toml:"output.chip" env:"CHIP"`
	Line      int    `toml:"output.line" env:"LINE"`
	ActiveLow bool   `toml:"output.active_low" env:"ACTIVE_LOW"`
	LED       string `toml:"output.led" env:"LED" flag:"led"`

	Broker   string `toml:"mqtt.broker" env:"BROKER"`
	ClientID string `toml:"mqtt.client_id" env:"CLIENT_ID" flag:"client-id"`
	WSBroker string `toml:"mqtt.ws_broker" env:"WS_BROKER" flag:"ws-broker"`

	HTTPAddr    string `toml:"http.addr" env:"HTTP" flag:"http"`
	HeartbeatMs int    `toml:"heartbeat.interval_ms" env:"HEARTBEAT_MS"`

	LogLevel   string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat  string `toml:"logging.format" env:"LOG_FORMAT"`
	LogJournal bool   `toml:"logging.journal" env:"LOG_JOURNAL"`

	PrintPattern bool `flag:"print-pattern"`

	// set records fields given explicitly by any source, keyed by field name.
	set map[string]bool
}

// BindFlags registers every option as a flag on cmd, bound to o.
func BindFlags(cmd *cobra.Command, o *Options) {
	f := cmd.Flags()
	f.StringVar(&o.Config, "config", "", "Path to TOML config file (watched for pattern changes)")

	f.StringVar(&o.Preset, "preset", "default", "Pattern preset: "+strings.Join(logic.PresetNames(), ", "))
	f.Uint32Var(&o.OnMs, "on-ms", logic.DefaultOnMs, "On duration in milliseconds (overrides preset)")
	f.Uint32Var(&o.OffMs, "off-ms", logic.DefaultOffMs, "Off duration in milliseconds (overrides preset)")
	f.StringVar(&o.Name, "name", "", "Pattern name reported in events")
	f.Uint32Var(&o.Count, "count", 0, "Stop after this many cycles (0 = forever)")

	f.StringVar(&o.Driver, "driver", gpio.DriverGPIO, "Output driver: gpio, sysfs or none")
	f.StringVar(&o.Chip, "chip", gpio.DefaultChip, "GPIO chip for the gpio driver")
	f.IntVar(&o.Line, "line", gpio.DefaultLine, "GPIO line offset for the gpio driver")
	f.BoolVar(&o.ActiveLow, "active-low", false, "Drive the GPIO line active-low")
	f.StringVar(&o.LED, "led", gpio.DefaultLED, "LED name under /sys/class/leds for the sysfs driver")

	f.StringVar(&o.Broker, "broker", "", "MQTT broker address (empty to disable)")
	f.StringVar(&o.ClientID, "client-id", "blinky", "MQTT client ID")
	f.StringVar(&o.WSBroker, "ws-broker", DefaultWSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	f.StringVar(&o.HTTPAddr, "http", DefaultHTTPAddr, "HTTP status address (empty to disable)")
	f.IntVar(&o.HeartbeatMs, "heartbeat-ms", DefaultHeartbeatMs, "Heartbeat interval in milliseconds (0 to disable)")

	f.StringVar(&o.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&o.LogFormat, "log-format", logging.FormatText, "Log format: text or json")
	f.BoolVar(&o.LogJournal, "log-journal", false, "Also send logs to the systemd journal")

	f.BoolVar(&o.PrintPattern, "print-pattern", false, "Print the resolved pattern and exit")
}

// LoadConfig applies the TOML file and environment on top of o, whose
// current values are the flag values. Flags the user changed on the command
// line are never overwritten. cmd may be nil.
func LoadConfig(o *Options, cmd *cobra.Command) error {
	v := reflect.ValueOf(o).Elem()
	t := v.Type()

	o.set = make(map[string]bool)
	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			changedFlags[f.Name] = true
		})
	}
	for i := 0; i < t.NumField(); i++ {
		if changedFlags[flagName(t.Field(i))] {
			o.set[t.Field(i).Name] = true
		}
	}

	if o.Config != "" {
		data, err := os.ReadFile(o.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// a missing file means defaults
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			var file map[string]any
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse config %s: %w", o.Config, err)
			}
			for i := 0; i < t.NumField(); i++ {
				ft := t.Field(i)
				path := ft.Tag.Get("toml")
				if path == "" || changedFlags[flagName(ft)] {
					continue
				}
				value := getNestedValue(file, path)
				if value == nil {
					continue
				}
				if err := setFieldValue(v.Field(i), value); err != nil {
					return fmt.Errorf("config %s: %w", path, err)
				}
				o.set[ft.Name] = true
			}
		}
	}

	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		key := ft.Tag.Get("env")
		if key == "" || changedFlags[flagName(ft)] {
			continue
		}
		raw, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || raw == "" {
			continue
		}
		if err := setFieldValueFromString(v.Field(i), raw); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
		}
		o.set[ft.Name] = true
	}

	return nil
}

// IsSet reports whether field was given by a flag, the environment or the file.
func (o *Options) IsSet(field string) bool {
	return o.set[field]
}

// Pattern resolves the blink configuration: the preset first, then any
// explicitly given durations, then name and count. Invalid durations are
// returned as errors wrapping logic.ErrInvalidDuration.
func (o *Options) Pattern() (logic.Config, error) {
	presetName := o.Preset
	if presetName == "" {
		presetName = "default"
	}
	base, ok := logic.Preset(presetName)
	if !ok {
		return logic.Config{}, fmt.Errorf("unknown preset %q (want one of %s)", presetName, strings.Join(logic.PresetNames(), ", "))
	}

	on, off := base.OnMs(), base.OffMs()
	name := base.Name()
	if o.IsSet("OnMs") {
		on = o.OnMs
		name = CustomPatternName
	}
	if o.IsSet("OffMs") {
		off = o.OffMs
		name = CustomPatternName
	}
	if o.Name != "" {
		name = o.Name
	}

	cfg, err := logic.NewConfig(on, off)
	if err != nil {
		return logic.Config{}, fmt.Errorf("pattern: %w", err)
	}
	return cfg.WithName(name).WithCount(o.Count), nil
}

// PatternLoader returns a loader for Watcher that re-resolves the pattern
// from base, the flag values before any file or environment was applied.
// Unlike LoadConfig it treats a missing file as an error, so a file caught
// mid-replace does not reset the pattern to defaults.
func PatternLoader(base Options, cmd *cobra.Command) func(path string) (logic.Config, error) {
	return func(path string) (logic.Config, error) {
		if _, err := os.Stat(path); err != nil {
			return logic.Config{}, fmt.Errorf("reload: %w", err)
		}
		o := base
		o.Config = path
		if err := LoadConfig(&o, cmd); err != nil {
			return logic.Config{}, fmt.Errorf("reload: %w", err)
		}
		cfg, err := o.Pattern()
		if err != nil {
			return logic.Config{}, fmt.Errorf("reload: %w", err)
		}
		return cfg, nil
	}
}

// Output returns the gpio options.
func (o *Options) Output() gpio.Options {
	return gpio.Options{
		Driver:    o.Driver,
		Chip:      o.Chip,
		Line:      o.Line,
		ActiveLow: o.ActiveLow,
		LED:       o.LED,
	}
}

// Logging returns the logging configuration.
func (o *Options) Logging() logging.Config {
	return logging.Config{Level: o.LogLevel, Format: o.LogFormat, Journal: o.LogJournal}
}

// Validate checks everything except the pattern, which Pattern validates.
func (o *Options) Validate() error {
	switch o.Driver {
	case gpio.DriverGPIO, gpio.DriverSysfs, gpio.DriverNone:
	default:
		return fmt.Errorf("unknown output driver %q", o.Driver)
	}
	if o.Driver == gpio.DriverGPIO && o.Line < 0 {
		return fmt.Errorf("invalid GPIO line %d", o.Line)
	}
	if o.Driver == gpio.DriverSysfs && o.LED == "" {
		return fmt.Errorf("sysfs driver needs an LED name")
	}
	if o.HeartbeatMs < 0 {
		return fmt.Errorf("invalid heartbeat interval %dms", o.HeartbeatMs)
	}
	if err := o.Logging().Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func flagName(f reflect.StructField) string {
	if name := f.Tag.Get("flag"); name != "" {
		return name
	}
	return fieldNameToFlag(f.Name)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "HeartbeatMs" -> "heartbeat-ms", "Preset" -> "preset".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Uint32:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		if i < 0 || i > int64(^uint32(0)) {
			return fmt.Errorf("%d out of range", i)
		}
		field.SetUint(uint64(i))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// setFieldValueFromString sets a field from an environment value.
func setFieldValueFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint32:
		u, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		field.SetUint(u)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
