package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestRequestIDReadableFromContext(t *testing.T) {
	log := New(Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ctx := log.WithRequestID(context.Background(), "req-456")
	if got := RequestIDFromContext(ctx); got != "req-456" {
		t.Fatalf("expected req-456, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestLoggerConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: FormatConsole, Output: buf})
	log.Info(context.Background(), "payout.batch.complete")
	if bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
		t.Fatalf("expected console output, got %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("payout.batch.complete")) {
		t.Fatalf("expected message in console output, got %s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}
}

func TestLoggerDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "info", Output: buf})
	ctx := log.WithEntryID(context.Background(), "entry-1")

	log.Debug(ctx, "duplicate ingestion")
	if buf.Len() != 0 {
		t.Fatalf("expected debug entry to be dropped at info level; entry=%s", buf.String())
	}

	log = New(Options{ServiceName: "test", Level: "debug", Output: buf})
	log.Debug(log.WithEntryID(context.Background(), "entry-1"), "duplicate ingestion")
	if !bytes.Contains(buf.Bytes(), []byte("\"entry_id\":\"entry-1\"")) {
		t.Fatalf("expected entry_id on debug entry; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", lvl)
	}
}

func TestLoggerErrorListsCombinedErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Error(context.Background(), "payout.batch.failed", multierr.Combine(errors.New("first"), errors.New("second")))

	if !bytes.Contains(buf.Bytes(), []byte(`"errors":["first","second"]`)) {
		t.Fatalf("expected combined errors listed; entry=%s", buf.String())
	}
}

func TestWithFieldsDoesNotLeakBetweenContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithField(context.Background(), "seller_id", "s-1")
	_ = log.WithFields(parent, map[string]any{"entry_id": "e-1"})
	log.Info(parent, "parent only")

	if !bytes.Contains(buf.Bytes(), []byte(`"seller_id":"s-1"`)) || bytes.Contains(buf.Bytes(), []byte("entry_id")) {
		t.Fatalf("unexpected fields; entry=%s", buf.String())
	}
}

func TestZeroOptionsLogAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Debug(context.Background(), "noisy")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be dropped without a level; entry=%s", buf.String())
	}
	log.Info(context.Background(), "kept")
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"info"`)) {
		t.Fatalf("expected info entry; entry=%s", buf.String())
	}
}

func TestLoggerDefaultsToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Debug(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be dropped without a level; entry=%s", buf.String())
	}
	log.Info(context.Background(), "kept")
	if !bytes.Contains(buf.Bytes(), []byte("\"level\":\"info\"")) {
		t.Fatalf("expected info entry; entry=%s", buf.String())
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("expected unknown level to fall back to info")
	}
}
