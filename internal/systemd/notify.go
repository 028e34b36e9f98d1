// Package systemd reports service state to systemd over the notify socket.
// Every call is a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger   *slog.Logger
	notify   func(state string) (bool, error)
	interval func() (time.Duration, error)
}

// New returns a Notifier backed by go-systemd.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		interval: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

// Ready tells systemd startup is complete.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) {
	n.send("STATUS=" + text)
}

// Watchdog pings the watchdog at half the configured interval until ctx is
// done. It returns immediately when the unit has no watchdog.
func (n *Notifier) Watchdog(ctx context.Context) {
	d, err := n.interval()
	if err != nil {
		n.logger.Warn("Watchdog interval unreadable", "error", err)
		return
	}
	if d <= 0 {
		return
	}
	tick := d / 2
	n.logger.Info("Watchdog enabled", "interval", d, "ping", tick)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("systemd notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("systemd notified", "state", state)
	}
}
