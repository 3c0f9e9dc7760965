package lifecycle

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	logx "vaultbot/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func TestReadyWithoutWatchdog(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	s := NewSystemd(logx.Nop())
	s.notify = rec.notify
	s.watchdog = func() (time.Duration, error) { return 0, nil }

	if !s.Ready(context.Background()) {
		t.Fatal("Ready should report delivery")
	}
	s.Status("%d files", 2)
	s.Stopping(StopSIGTERM)

	got := rec.snapshot()
	want := []string{"READY=1", "STATUS=2 files", "STOPPING=1\nSTATUS=stopping: sigterm"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("states = %q, want %q", got, want)
	}
}

func TestWatchdogPings(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	s := NewSystemd(logx.Nop())
	s.notify = rec.notify
	s.watchdog = func() (time.Duration, error) { return 20 * time.Millisecond, nil }

	s.Ready(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for {
		n := 0
		for _, st := range rec.snapshot() {
			if st == "WATCHDOG=1" {
				n++
			}
		}
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watchdog pings = %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stopping(StopAppStop)

	// No pings after Stopping returned.
	before := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	if after := len(rec.snapshot()); after != before {
		t.Fatalf("pings continued after Stopping: %d -> %d", before, after)
	}
}

func TestNotifyErrorIsSwallowed(t *testing.T) {
	t.Parallel()
	s := NewSystemd(logx.Nop())
	s.notify = func(string) (bool, error) { return false, errors.New("socket gone") }
	s.watchdog = func() (time.Duration, error) { return 0, errors.New("bad WATCHDOG_USEC") }
	if s.Ready(context.Background()) {
		t.Fatal("Ready must report false on error")
	}
	s.Stopping(StopFatalError)
}

// Exercises the real daemon.SdNotify over a unix datagram socket.
func TestSdNotifySocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "sdn")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram unavailable: %v", err)
	}
	defer conn.Close()
	t.Setenv("NOTIFY_SOCKET", sock)
	t.Setenv("WATCHDOG_USEC", "")

	s := NewSystemd(logx.Nop())
	if !s.Ready(context.Background()) {
		t.Fatal("Ready not delivered")
	}
	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUnix(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "READY=1" {
		t.Fatalf("got %q", got)
	}
}

func TestStopReasonString(t *testing.T) {
	t.Parallel()
	if StopReason("").String() != "unknown" || StopSIGINT.String() != "sigint" {
		t.Fatal("unexpected StopReason strings")
	}
}
