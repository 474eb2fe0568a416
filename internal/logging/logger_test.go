package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     Level
		wantError bool
		wantWarn  bool
		wantInfo  bool
		wantDebug bool
	}{
		{LevelError, true, false, false, false},
		{LevelWarn, true, true, false, false},
		{LevelInfo, true, true, true, false},
		{LevelDebug, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Error("error message")
			logger.Warn("warn message")
			logger.Info("info message")
			logger.Debug("debug message")

			output := buf.String()

			if got := strings.Contains(output, "ERROR "); got != tt.wantError {
				t.Errorf("Error logged: got %v, want %v", got, tt.wantError)
			}
			if got := strings.Contains(output, "WARN "); got != tt.wantWarn {
				t.Errorf("Warn logged: got %v, want %v", got, tt.wantWarn)
			}
			if got := strings.Contains(output, "INFO "); got != tt.wantInfo {
				t.Errorf("Info logged: got %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(output, "DEBUG "); got != tt.wantDebug {
				t.Errorf("Debug logged: got %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestDefaultLogger_Formatted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)

	logger.Errorf("error %d", 1)
	logger.Warnf("warn %d", 2)
	logger.Infof("info %d", 3)
	logger.Debugf("debug %d", 4)

	output := buf.String()

	if !strings.Contains(output, "error 1") {
		t.Error("formatted error message not found")
	}
	if !strings.Contains(output, "warn 2") {
		t.Error("formatted warn message not found")
	}
	if !strings.Contains(output, "info 3") {
		t.Error("formatted info message not found")
	}
	if !strings.Contains(output, "debug 4") {
		t.Error("formatted debug message not found")
	}
}

func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelError)

	// Should not log info at error level
	logger.Info("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Error("info logged at error level")
	}

	// Change to info level
	logger.SetLevel(LevelInfo)
	if logger.Level() != LevelInfo {
		t.Errorf("Level() = %v, want %v", logger.Level(), LevelInfo)
	}

	// Now should log info
	logger.Info("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("info not logged at info level")
	}
}

func TestDiscardLogger(t *testing.T) {
	// Just verify it doesn't panic
	Discard.Error("error")
	Discard.Errorf("error %d", 1)
	Discard.Warn("warn")
	Discard.Warnf("warn %d", 1)
	Discard.Info("info")
	Discard.Infof("info %d", 1)
	Discard.Debug("debug")
	Discard.Debugf("debug %d", 1)
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelInfo, "INFO"},
		{LevelDebug, "DEBUG"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestNamespaceConstants(t *testing.T) {
	// Verify namespace constants are defined with brackets
	namespaces := []string{NSDB, NSTxn, NSTable, NSSavepoint, NSCompact, NSEncoding, NSOptions}
	for _, ns := range namespaces {
		if !strings.HasPrefix(ns, "[") || !strings.Contains(ns, "]") {
			t.Errorf("namespace %q should be in [name] format", ns)
		}
	}
}

func TestLogFormat_Standard(t *testing.T) {
	// Verify the log format follows standard: "TIMESTAMP LEVEL [component] message"
	// Example: 2026/03/02 10:14:55 INFO [txn] write transaction committed
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelInfo)

	// Log a message with namespace prefix
	logger.Infof("%s%s", NSTxn, "write transaction committed")

	output := buf.String()

	// Verify no global prefix (should start with timestamp)
	// Timestamp format: YYYY/MM/DD HH:MM:SS
	if strings.HasPrefix(output, "cellarkv") {
		t.Errorf("output should NOT start with 'cellarkv', got: %s", output)
	}

	// Verify level is present (without colon)
	if !strings.Contains(output, "INFO ") {
		t.Error("output should contain 'INFO '")
	}

	// Verify component namespace is present
	if !strings.Contains(output, "[txn]") {
		t.Error("output should contain '[txn]'")
	}

	// Verify message content
	if !strings.Contains(output, "write transaction committed") {
		t.Error("output should contain 'write transaction committed'")
	}

	t.Logf("Log format verified: %s", output)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"error", LevelError, false},
		{"WARN", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" info ", LevelInfo, false},
		{"Debug", LevelDebug, false},
		{"loud", LevelWarn, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnknownLevel) {
			t.Errorf("ParseLevel(%q) error = %v, want ErrUnknownLevel", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFatalHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelError)

	var got string
	logger.SetFatalHandler(func(msg string) { got = msg })
	logger.Fatalf("%sflush of pending commits failed: %s", NSDB, "disk full")

	if !strings.Contains(buf.String(), "FATAL [db] flush of pending commits failed") {
		t.Errorf("fatal message not logged: %q", buf.String())
	}
	if got != "[db] flush of pending commits failed: disk full" {
		t.Errorf("handler got %q", got)
	}
}

func TestOrDefault(t *testing.T) {
	var typedNil *DefaultLogger
	if !IsNil(typedNil) {
		t.Error("typed nil should be reported as nil")
	}
	if OrDefault(typedNil) == nil {
		t.Error("OrDefault should never return nil")
	}
	if OrDefault(Discard) != Logger(Discard) {
		t.Error("OrDefault should keep a valid logger")
	}
}
