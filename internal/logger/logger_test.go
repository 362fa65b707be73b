package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(&Config{Level: "debug", Format: "json", Output: buf, ServiceName: "facefinder-test"})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	return line
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetCandidate(ctx, "https://a.com/p", "https://a.com/i.jpg")

	CtxInfo(ctx, "hello %s", "world")

	line := decodeLine(t, &buf)
	want := map[string]string{
		"message":      "hello world",
		"service":      "facefinder-test",
		FieldRequestID: "req-1",
		FieldSiteURL:   "https://a.com/p",
		FieldImageURL:  "https://a.com/i.jpg",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("field %s = %v, want %q", k, line[k], v)
		}
	}
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q", got)
	}
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())

	With(Fields{FieldCount: 3}).WithDuration(1500*time.Millisecond).WithOutcome("indexed").Info(ctx, "done")

	line := decodeLine(t, &buf)
	if line[FieldCount] != float64(3) {
		t.Errorf("count = %v", line[FieldCount])
	}
	if line[FieldDurationMs] != float64(1500) {
		t.Errorf("duration_ms = %v", line[FieldDurationMs])
	}
	if line[FieldOutcome] != "indexed" {
		t.Errorf("outcome = %v", line[FieldOutcome])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Fatal("expected default logger for bare context")
	}
	if FromContext(nil) != GetDefault() { //nolint:staticcheck
		t.Fatal("expected default logger for nil context")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Format: "text", Output: &buf, ServiceName: "x"})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	l.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("warn not logged: %q", buf.String())
	}
}
