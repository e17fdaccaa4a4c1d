package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return New(Config{Level: level, Format: "json", Output: buf})
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("invalid log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "warn")

	log.Debug("debug line")
	log.Info("info line")
	log.Warn("warn line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("lines below warn should be dropped: %s", out)
	}
	if !strings.Contains(out, "warn line") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestParseLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "not-a-level")

	log.Info("still here")
	if !strings.Contains(buf.String(), "still here") {
		t.Error("unknown level should fall back to info")
	}
}

func TestServiceNameStamped(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf, ServiceName: "reelforge-api"})

	log.Info("hello")
	if got := lastLine(t, &buf)["service"]; got != "reelforge-api" {
		t.Errorf("service = %v", got)
	}
}

func TestWithComponentAndRecordID(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info").WithComponent("worker").WithRecordID("rec_42")

	log.Info("processing")

	m := lastLine(t, &buf)
	if m["component"] != "worker" {
		t.Errorf("component = %v", m["component"])
	}
	if m["record_id"] != "rec_42" {
		t.Errorf("record_id = %v", m["record_id"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info")

	log.WithError(errors.New("disk full")).Error("upload failed")
	if lastLine(t, &buf)["error"] != "disk full" {
		t.Error("error field missing")
	}

	// nil error must not add a field
	buf.Reset()
	log.WithError(nil).Info("fine")
	if _, ok := lastLine(t, &buf)["error"]; ok {
		t.Error("nil error should add nothing")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRecordID(ctx, "rec_7")

	log.FromContext(ctx).Info("enriched")

	m := lastLine(t, &buf)
	if m["request_id"] != "req-1" || m["record_id"] != "rec_7" {
		t.Errorf("ids missing: %v", m)
	}
}

func TestFromContextEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, "info")

	log.FromContext(context.Background()).Info("bare")

	m := lastLine(t, &buf)
	if _, ok := m["request_id"]; ok {
		t.Error("empty context should add no request_id")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "text", Output: &buf})

	log.Info("plain", "key", "value")
	out := buf.String()
	if !strings.Contains(out, "msg=plain") || !strings.Contains(out, "key=value") {
		t.Errorf("unexpected text output: %s", out)
	}
}
