package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"vaultbot/internal/config"
	"vaultbot/internal/notifier"
	"vaultbot/internal/reminder"
	"vaultbot/internal/storage"
	"vaultbot/internal/task/scheduler"
	kit "vaultbot/internal/transport"
	logx "vaultbot/pkg/logx"
)

const (
	defaultPollSchedule  = "60s"
	defaultHeader        = "🔔 Напоминание!"
	defaultUpcomingLimit = 10
	scanJobName          = "reminders.scan"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// reminderSettings is the app-side view of the reminders section.
type reminderSettings struct {
	Runner        reminder.Config
	PollSchedule  string
	Target        kit.ChatTarget
	Header        string
	UpcomingLimit int
}

// mapReminderConfig resolves durations and defaults. Files stay relative;
// DirSource joins them with the vault root.
func mapReminderConfig(cfg *config.Config) (reminderSettings, error) {
	r := cfg.Reminders
	poll := strings.TrimSpace(r.PollInterval)
	if poll == "" {
		poll = defaultPollSchedule
	}
	if err := scheduler.ValidateSchedule(poll); err != nil {
		return reminderSettings{}, fmt.Errorf("reminders.poll_interval: %w", err)
	}
	window, err := config.ParseDurationOrDefault("reminders.due_window", r.DueWindow, reminder.DefaultDueWindow)
	if err != nil {
		return reminderSettings{}, err
	}
	retention, err := config.ParseDurationOrDefault("reminders.retention", r.Retention, reminder.DefaultRetention)
	if err != nil {
		return reminderSettings{}, err
	}
	files := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, filepath.Clean(f))
		}
	}
	header := strings.TrimSpace(r.Header)
	if header == "" {
		header = defaultHeader
	}
	limit := r.UpcomingLimit
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	return reminderSettings{
		Runner:        reminder.Config{Files: files, DueWindow: window, Retention: retention},
		PollSchedule:  poll,
		Target:        kit.ChatTarget{ChatID: cfg.ReminderChatID(), ThreadID: r.ThreadID},
		Header:        header,
		UpcomingLimit: limit,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationField("scheduler.job_timeout", cfg.Scheduler.JobTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:    cfg.Scheduler.Enabled,
		Timezone:   cfg.Scheduler.Timezone,
		JobTimeout: timeout,
	}, nil
}

// mapNotifierConfig treats a missing section as enabled with defaults.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	if n == nil {
		return notifier.Config{Enabled: true, RetryMax: 3}, nil
	}
	base, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	dedup, err := config.ParseDurationField("notifier.dedup_window", n.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:         n.Enabled,
		Workers:         n.Workers,
		QueueSize:       n.QueueSize,
		RatePerSec:      n.RatePerSec,
		RetryMax:        n.RetryMax,
		RetryBase:       base,
		RetryMaxDelay:   maxDelay,
		DedupWindow:     dedup,
		DedupMaxEntries: n.DedupMaxEntries,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	s := cfg.Storage
	if s == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(s.Driver)),
		Path:        strings.TrimSpace(s.Path),
		BusyTimeout: busy,
	}, nil
}
