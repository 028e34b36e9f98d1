package gpio

import "log/slog"

// LogWriter is the "none" driver: it only logs level changes.
// Useful on hosts without an LED.
type LogWriter struct {
	logger *slog.Logger
}

// NewLogWriter returns a LogWriter. A nil logger uses slog.Default().
func NewLogWriter(logger *slog.Logger) *LogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogWriter{logger: logger}
}

// Write logs the level at debug.
func (l *LogWriter) Write(on bool) error {
	l.logger.Debug("LED output", "on", on)
	return nil
}

// Close is a no-op.
func (l *LogWriter) Close() error {
	return nil
}
