package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vaultbot/internal/task/scheduler"
)

var ErrInvalid = errors.New("invalid config")

// Validate checks values that decoding alone cannot: durations and
// schedules, the timezone, the storage driver and the chat targets.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	var errs []error
	check := func(path, raw string) {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	check("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if g := strings.TrimSpace(cfg.Telegram.GroupLog); g != "" {
		if _, err := strconv.ParseInt(g, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("telegram.group_log: %q is not a chat id", g))
		}
	}

	r := cfg.Reminders
	if p := strings.TrimSpace(r.PollInterval); p != "" {
		if err := scheduler.ValidateSchedule(p); err != nil {
			errs = append(errs, fmt.Errorf("reminders.poll_interval: %w", err))
		}
	}
	check("reminders.due_window", r.DueWindow)
	check("reminders.retention", r.Retention)
	if r.UpcomingLimit < 0 {
		errs = append(errs, errors.New("reminders.upcoming_limit: must be >= 0"))
	}
	for i, f := range r.Files {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, fmt.Errorf("reminders.files[%d]: empty name", i))
		}
	}

	check("scheduler.job_timeout", cfg.Scheduler.JobTimeout)
	if _, err := LoadLocation(cfg.Scheduler.Timezone); err != nil {
		errs = append(errs, err)
	}

	if n := cfg.Notifier; n != nil {
		check("notifier.retry_base", n.RetryBase)
		check("notifier.retry_max_delay", n.RetryMaxDelay)
		check("notifier.dedup_window", n.DedupWindow)
		if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 {
			errs = append(errs, errors.New("notifier: counts must be >= 0"))
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		check("storage.busy_timeout", s.BusyTimeout)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// GroupLogChatID parses telegram.group_log; 0 when unset.
func (c *Config) GroupLogChatID() int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(c.Telegram.GroupLog), 10, 64)
	return id
}

// ReminderChatID is reminders.chat_id, falling back to the first owner.
func (c *Config) ReminderChatID() int64 {
	if c.Reminders.ChatID != 0 {
		return c.Reminders.ChatID
	}
	if len(c.Telegram.OwnerUserIDs) > 0 {
		return c.Telegram.OwnerUserIDs[0]
	}
	return 0
}
