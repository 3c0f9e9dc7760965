package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vaultbot/internal/eventbus"
	logx "vaultbot/pkg/logx"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func stopNow(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRunOnStartAndSkipIfRunning(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), nil)
	started := make(chan struct{}, 4)
	var finished atomic.Bool
	if _, err := s.AddIntervalOpt("reminders.scan", time.Hour, 0, TaskOptions{RunOnStart: true}, func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		finished.Store(true)
		return ctx.Err()
	}); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run on start")
	}

	// A second trigger while the first run is active is skipped.
	s.mu.Lock()
	s.fire(s.defs[0])
	s.mu.Unlock()

	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || !snap.Schedules[0].Running || snap.Schedules[0].Skips != 1 {
		t.Fatalf("snapshot = %+v", snap.Schedules)
	}
	if snap.Timezone != "UTC" || !snap.Running {
		t.Fatalf("snapshot = %+v", snap)
	}

	stopNow(t, s)
	if !finished.Load() {
		t.Fatal("Stop should cancel and wait for the running job")
	}
	if len(started) != 0 {
		t.Fatal("skipped trigger must not start the job")
	}
}

func TestJobTimeoutIsReported(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(Config{Enabled: true, JobTimeout: 20 * time.Millisecond}, logx.Nop(), bus)
	if _, err := s.AddIntervalOpt("slow", time.Hour, 0, TaskOptions{RunOnStart: true}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer stopNow(t, s)

	select {
	case e := <-events:
		ev, _ := e.Data.(RunEvent)
		if e.Type != "scheduler.failed" || ev.Name != "slow" || ev.Error == "" {
			t.Fatalf("event = %+v", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no failure event")
	}
	waitFor(t, "failure count", func() bool { return s.Snapshot().Schedules[0].Failures == 1 })
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	_, _ = s.AddIntervalOpt("boom", time.Hour, 0, TaskOptions{RunOnStart: true}, func(context.Context) error { panic("bad") })
	s.Start(context.Background())
	defer stopNow(t, s)
	waitFor(t, "panic recorded", func() bool {
		sc := s.Snapshot().Schedules[0]
		return sc.Failures == 1 && !sc.Running
	})
}

func TestReplaceKeepsRunState(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	release := make(chan struct{})
	var active, peak, runs atomic.Int32
	job := func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}
	opt := TaskOptions{RunOnStart: true}
	if _, err := s.AddScheduleOpt("reminders.scan", "1h", 0, opt, job); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer stopNow(t, s)
	waitFor(t, "first run", func() bool { return runs.Load() == 1 })

	// Re-registering with a new cadence while the first run is active must
	// not start a second run.
	if _, err := s.AddScheduleOpt("reminders.scan", "30s", 0, opt, job); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}
	sc := snap.Schedules[0]
	if sc.Spec != "@every 30s" || !sc.Running || sc.Skips != 1 {
		t.Fatalf("schedule = %+v", sc)
	}
	if runs.Load() != 1 || peak.Load() != 1 {
		t.Fatalf("runs=%d peak=%d, want 1/1", runs.Load(), peak.Load())
	}

	close(release)
	waitFor(t, "run finished", func() bool { return !s.Snapshot().Schedules[0].Running })

	// Once idle, a replacement runs again.
	if _, err := s.AddScheduleOpt("reminders.scan", "45s", 0, opt, job); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second run", func() bool { return runs.Load() == 2 })
	if peak.Load() != 1 {
		t.Fatalf("peak = %d", peak.Load())
	}
}

func TestRegistrationErrors(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	job := func(context.Context) error { return nil }
	if _, err := s.AddCronOpt(" ", "* * * * *", 0, TaskOptions{}, job); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.AddCronOpt("x", "not cron", 0, TaskOptions{}, job); err == nil {
		t.Fatal("expected cron parse error")
	}
	if _, err := s.AddIntervalOpt("x", 0, 0, TaskOptions{}, job); err == nil {
		t.Fatal("expected interval error")
	}
	if _, err := s.AddScheduleOpt("x", "soon", 0, TaskOptions{}, job); err == nil {
		t.Fatal("expected schedule error")
	}
	if _, err := s.AddScheduleOpt("x", "cron:61 * * * *", 0, TaskOptions{}, job); err == nil {
		t.Fatal("expected cron range error")
	}

	if _, err := s.AddScheduleOpt("digest", "30 8 * * *", 0, TaskOptions{}, job); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddScheduleOpt("digest", "60s", 0, TaskOptions{}, job); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "@every 1m0s" {
		t.Fatalf("re-registering a name should replace it: %+v", snap.Schedules)
	}
	if !s.Remove("digest") || s.Remove("digest") {
		t.Fatal("Remove should succeed once")
	}
}
