package logging

// DiscardLogger is a no-op logger that discards all log messages.
// Use this in tests or when logging is not desired.
type DiscardLogger struct{}

// Discard is the singleton discard logger.
var Discard = &DiscardLogger{}

var _ Logger = Discard

// Error discards msg.
func (l *DiscardLogger) Error(msg string) {}

// Errorf implements Logger.
func (l *DiscardLogger) Errorf(format string, args ...any) {}

// Warn discards msg.
func (l *DiscardLogger) Warn(msg string) {}

// Warnf implements Logger.
func (l *DiscardLogger) Warnf(format string, args ...any) {}

// Info discards msg.
func (l *DiscardLogger) Info(msg string) {}

// Infof implements Logger.
func (l *DiscardLogger) Infof(format string, args ...any) {}

// Debug discards msg.
func (l *DiscardLogger) Debug(msg string) {}

// Debugf implements Logger.
func (l *DiscardLogger) Debugf(format string, args ...any) {}

// Fatalf implements Logger.
func (l *DiscardLogger) Fatalf(format string, args ...any) {}
