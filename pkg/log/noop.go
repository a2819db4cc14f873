package log

// NoopLogger discards everything. It backs tests and any wiring that runs
// before a real logger is configured.
type NoopLogger struct{}

// NewNoopLogger returns a logger that discards all messages.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(msg string, fields ...Field) {}
func (NoopLogger) Info(msg string, fields ...Field)  {}
func (NoopLogger) Warn(msg string, fields ...Field)  {}
func (NoopLogger) Error(msg string, fields ...Field) {}
