package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func captureLogger(level LogLevel, format LogFormat) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(level, format)
	logger.SetOutput(&buf)
	return logger, &buf
}

func TestLogger_LeveledMethods(t *testing.T) {
	logger, buf := captureLogger(LevelDebug, FormatText)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Infof("formatted %d", 42)
	logger.Warnf("formatted %s", "warn")
	logger.Errorf("formatted %s", "error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 log lines, got %d: %q", len(lines), buf.String())
	}
	for level, want := range map[string]string{
		"debug": "debug message",
		"info":  "info message",
		"warn":  "warn message",
		"error": "error message",
	} {
		found := false
		for _, line := range lines {
			if strings.Contains(line, level+": "+want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no %s line containing %q in output %q", level, want, buf.String())
		}
	}
	if !strings.Contains(buf.String(), "formatted 42") {
		t.Errorf("Infof output missing formatted message: %q", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := captureLogger(LevelWarn, FormatText)

	logger.Debug("suppressed")
	logger.Info("suppressed")
	logger.Warn("emitted")

	if strings.Contains(buf.String(), "suppressed") {
		t.Errorf("below-threshold message emitted: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "emitted") {
		t.Errorf("at-threshold message missing: %q", buf.String())
	}
}

func TestLogger_JSONFields(t *testing.T) {
	logger, buf := captureLogger(LevelInfo, FormatJSON)

	logger.WithField("user_id", "u1").WithError(nil).Info("hello")

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if entry.Level != "info" || entry.Message != "hello" {
		t.Errorf("entry = %+v, want level=info message=hello", entry)
	}
	if entry.Fields["user_id"] != "u1" {
		t.Errorf("Fields[user_id] = %v, want u1", entry.Fields["user_id"])
	}
	if _, ok := entry.Fields["error"]; ok {
		t.Error("WithError(nil) attached an error field")
	}
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	parent, buf := captureLogger(LevelInfo, FormatJSON)

	_ = parent.WithField("child", "only")
	parent.Info("parent line")

	if strings.Contains(buf.String(), "child") {
		t.Errorf("parent logger inherited child field: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	logger, _ := captureLogger(LevelInfo, FormatText)

	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return the attached logger")
	}
	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext() without attachment returned nil, want global logger")
	}
}
