package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"vaultbot/internal/config"
	"vaultbot/internal/reminder"
	logx "vaultbot/pkg/logx"
)

// RunOnce performs a single scan of the configured files and writes each due
// reminder to w. No chat connection is made. now may be nil for the wall clock
// in the configured timezone.
func RunOnce(ctx context.Context, cfg *config.Config, w io.Writer, log logx.Logger, now func() time.Time) (int, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	rs, err := mapReminderConfig(cfg)
	if err != nil {
		return 0, err
	}
	if now == nil {
		loc, err := config.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return 0, err
		}
		clock := &zoneClock{}
		clock.set(loc)
		now = clock.Now
	}

	var printErr error
	n := 0
	sink := reminder.SinkFunc(func(_ context.Context, ev reminder.Event) error {
		if _, err := fmt.Fprintln(w, renderReminder(rs.Header, ev)); err != nil {
			printErr = err
			return err
		}
		n++
		return nil
	})

	ledger := reminder.NewLedger(rs.Runner.Retention, log)
	scanner := reminder.NewScanner(reminder.DirSource{Root: cfg.Reminders.VaultPath}, ledger, reminder.Window{Width: rs.Runner.DueWindow}, log)
	runner := reminder.NewRunner(rs.Runner, scanner, sink, reminder.WithClock(now), reminder.WithLogger(log))
	if err := runner.RunOnce(ctx); err != nil {
		return n, err
	}
	return n, printErr
}
