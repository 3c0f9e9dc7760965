package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	kit "vaultbot/internal/transport"
)

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Info("dropped", String("k", "v"))
	if Nop().IsZero() {
		t.Fatal("Nop() should not report IsZero")
	}
}

func TestWriterFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("component", "scan"))
	l.Trace("hidden")
	l.Info("reminder fired", String("task", "Team sync"), Int("line", 2), Duration("took", 1500*time.Millisecond), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"level":     "info",
		"message":   "reminder fired",
		"component": "scan",
		"task":      "Team sync",
		"line":      float64(2),
		"took":      "1.5s",
		"err":       "boom",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s = %v, want %v", k, m[k], v)
		}
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logx_test.go:") {
		t.Fatalf("caller = %q", c)
	}
}

func TestEnabled(t *testing.T) {
	t.Parallel()
	l := NewWriter(&bytes.Buffer{}, "warn")
	if l.Enabled(LevelInfo) || !l.Enabled(LevelError) {
		t.Fatal("level filter mismatch")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]Level{
		"trace": LevelTrace, "DEBUG": LevelDebug, " info ": LevelInfo,
		"warning": LevelWarn, "error": LevelError, "bogus": LevelWarn, "": LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLevel(in, LevelWarn); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatChatLine(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"x","message":"source skipped","file":"a.md","err":"missing"}`
	got := formatChatLine([]byte(line))
	want := "[WARN] source skipped\n- err=missing\n- file=a.md"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := formatChatLine([]byte("  not json  ")); got != "not json" {
		t.Fatalf("raw line = %q", got)
	}
	long := formatChatLine([]byte(strings.Repeat("x", tgMaxMessage+50)))
	if len(long) != tgMaxMessage || !strings.HasSuffix(long, "...") {
		t.Fatalf("clip len = %d", len(long))
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	to   []kit.ChatTarget
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestServiceTelegramSink(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc, log := New(Config{
		Level:    "debug",
		Console:  false,
		File:     FileConfig{Enabled: true, Path: t.TempDir() + "/bot.log"},
		Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 100},
	}, sender)
	defer svc.Close()
	svc.SetTelegramTarget(-100123, 7)

	log.Info("below min level")
	log.Warn("delivery failed", String("task", "x"))

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1: %q", len(sender.sent), sender.sent)
	}
	if !strings.HasPrefix(sender.sent[0], "[WARN] delivery failed") {
		t.Fatalf("message = %q", sender.sent[0])
	}
	if sender.to[0] != (kit.ChatTarget{ChatID: -100123, ThreadID: 7}) {
		t.Fatalf("target = %+v", sender.to[0])
	}
}
