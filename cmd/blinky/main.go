// Command blinky drives an LED through a blink pattern and publishes its state to MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/blinky/internal/blinker"
	"github.com/sweeney/blinky/internal/config"
	"github.com/sweeney/blinky/internal/events"
	"github.com/sweeney/blinky/internal/gpio"
	"github.com/sweeney/blinky/internal/logging"
	"github.com/sweeney/blinky/internal/logic"
	"github.com/sweeney/blinky/internal/metrics"
	"github.com/sweeney/blinky/internal/mqtt"
	"github.com/sweeney/blinky/internal/status"
	"github.com/sweeney/blinky/internal/systemd"
	"github.com/sweeney/blinky/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &config.Options{}
	cmd := &cobra.Command{
		Use:          "blinky",
		Short:        "Drive an LED through an on/off blink pattern",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// flag values before the file and environment are applied,
			// so reloads start from the same place
			base := *opts
			if err := config.LoadConfig(opts, cmd); err != nil {
				return err
			}
			return run(opts, config.PatternLoader(base, cmd), cmd.OutOrStdout())
		},
	}
	config.BindFlags(cmd, opts)
	return cmd
}

func run(opts *config.Options, loadPattern func(string) (logic.Config, error), stdout io.Writer) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg, err := opts.Pattern()
	if err != nil {
		return err
	}

	logger, err := logging.New(opts.Logging(), os.Stderr)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)

	// Print pattern mode
	if opts.PrintPattern {
		printPattern(stdout, cfg)
		return nil
	}

	out, err := gpio.Open(opts.Output())
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	defer out.Close()

	bus := events.New()
	defer metrics.Subscribe(bus)()
	metrics.SetPattern(logic.NewPattern(cfg).Summary())

	ws := resolveWSBroker(opts.WSBroker, opts.Broker)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Driver:      opts.Driver,
		Output:      outputName(opts.Output()),
		HeartbeatMs: int64(opts.HeartbeatMs),
		Broker:      opts.Broker,
		HTTPAddr:    opts.HTTPAddr,
		WSBroker:    ws,
		ConfigPath:  opts.Config,
	})
	tracker.SetPattern(logic.NewPattern(cfg).Summary())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	defer tracker.Subscribe(bus)()

	// Initialize MQTT. Interfaces stay nil when no broker is configured.
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if opts.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   opts.Broker,
			ClientID: opts.ClientID,
			Logger:   logging.Module(logger, "mqtt"),
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		defer mqtt.Subscribe(bus, p, logging.Module(logger, "mqtt"))()
	} else {
		logger.Info("No MQTT broker configured, publishing disabled")
	}

	loop := &loopDeps{
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		logger:     logging.Module(logger, "main"),
		now:        time.Now,
	}

	// Publish startup event with full status snapshot
	loop.publishSystem(mqtt.EventStartup, "", true)

	// Start HTTP status server
	if opts.HTTPAddr != "" {
		srv := web.New(opts.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("HTTP status server listening", "addr", opts.HTTPAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := blinker.New(cfg, out,
		blinker.WithBus(bus),
		blinker.WithLogger(logging.Module(logger, "blinker")))

	reloaded := make(chan events.Reloaded, 4)
	defer events.Subscribe(bus, func(e events.Reloaded) {
		select {
		case reloaded <- e:
		default:
		}
	})()

	if opts.Config != "" {
		w := config.NewWatcher(opts.Config, loadPattern, logging.Module(logger, "config"))
		w.OnReload(func(c logic.Config) {
			if err := b.Reload(c); err != nil {
				logger.Warn("Rejected reloaded pattern", "error", err)
			}
		})
		if err := w.Start(ctx); err != nil {
			logger.Warn("Config hot reload disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	var wg sync.WaitGroup
	done := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		done <- b.Run(ctx)
	}()

	notifier := systemd.New(logging.Module(logger, "systemd"))
	go notifier.Watchdog(ctx)
	notifier.Ready()

	logger.Info("Started",
		"pattern", cfg.Name(),
		"driver", opts.Driver,
		"broker", opts.Broker,
		"heartbeat_ms", opts.HeartbeatMs)

	var heartbeat <-chan time.Time
	if opts.HeartbeatMs > 0 {
		ticker := time.NewTicker(time.Duration(opts.HeartbeatMs) * time.Millisecond)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	loop.heartbeat = heartbeat
	loop.reloaded = reloaded
	loop.done = done
	loop.sig = sigCh

	err = runLoop(loop)

	notifier.Stopping()
	// the blinker drives the output off on exit, before out.Close runs
	cancel()
	wg.Wait()
	return err
}

// loopDeps is everything runLoop reacts to or reports through.
// publisher and mqttStatus may be nil.
type loopDeps struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	logger     *slog.Logger
	now        func() time.Time

	heartbeat <-chan time.Time
	reloaded  <-chan events.Reloaded
	done      <-chan error
	sig       <-chan os.Signal
}

func runLoop(l *loopDeps) error {
	for {
		select {
		case s := <-l.sig:
			name := signalName(s)
			l.logger.Info("Shutting down", "signal", name)
			l.publishSystem(mqtt.EventShutdown, name, true)
			return nil

		case err := <-l.done:
			reason := "COMPLETE"
			if err != nil {
				reason = "ERROR"
				l.logger.Error("Blinker failed", "error", err)
			}
			l.publishSystem(mqtt.EventShutdown, reason, true)
			return err

		case <-l.heartbeat:
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil && l.tracker != nil {
				l.tracker.SetNetwork(net)
			}
			l.publishSystem(mqtt.EventHeartbeat, "", false)

		case e := <-l.reloaded:
			l.logger.Info("Pattern reloaded",
				"pattern", e.Summary.Name,
				"on_ms", e.Summary.OnMs,
				"off_ms", e.Summary.OffMs)
			if l.tracker != nil {
				// the tracker's own subscription may not have run yet
				l.tracker.SetPattern(e.Summary)
			}
			l.publishSystem(mqtt.EventReload, e.Summary.Name, false)
		}
	}
}

// publishSystem sends a system event carrying a status snapshot.
// Failures are logged and never stop the daemon.
func (l *loopDeps) publishSystem(event, reason string, retained bool) {
	if l.publisher == nil {
		return
	}
	se := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		se.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event, reason)
	}
	if err := l.publisher.PublishSystem(se); err != nil {
		l.logger.Warn("Failed to publish system event", "event", event, "error", err)
		return
	}
	l.logger.Debug("Published system event", "event", event, "reason", reason)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// outputName describes the output for the status page.
func outputName(o gpio.Options) string {
	switch o.Driver {
	case gpio.DriverGPIO:
		return o.Chip + ":" + strconv.Itoa(o.Line)
	case gpio.DriverSysfs:
		return o.LED
	}
	return ""
}

func printPattern(w io.Writer, cfg logic.Config) {
	count := "forever"
	if cfg.Count() > 0 {
		count = strconv.FormatUint(uint64(cfg.Count()), 10)
	}
	fmt.Fprintf(w, "Pattern: %s, on: %dms, off: %dms, period: %dms, duty: %d%%, frequency: %s, cycles: %s\n",
		cfg.Name(), cfg.OnMs(), cfg.OffMs(), cfg.PeriodMs(), cfg.DutyCyclePercent(),
		logic.FormatMilliHz(cfg.FrequencyMilliHz()), count)
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != config.DefaultWSBroker {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil {
		slog.Warn("Cannot derive websocket broker", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
