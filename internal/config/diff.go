package config

import (
	"slices"
	"strings"

	logx "vaultbot/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ and returns log
// fields describing the new values. Secrets (the bot token) never appear.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var changed []string
	var fields []logx.Field

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.PollTimeout != nt.PollTimeout || ot.GroupLog != nt.GroupLog ||
		!slices.Equal(ot.OwnerUserIDs, nt.OwnerUserIDs) {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(nt.GroupLog) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}

	or, nr := oldCfg.Reminders, newCfg.Reminders
	if or.VaultPath != nr.VaultPath || !slices.Equal(or.Files, nr.Files) || or.ChatID != nr.ChatID ||
		or.ThreadID != nr.ThreadID || or.PollInterval != nr.PollInterval || or.DueWindow != nr.DueWindow ||
		or.Retention != nr.Retention || or.Header != nr.Header || or.UpcomingLimit != nr.UpcomingLimit {
		changed = append(changed, "reminders")
		fields = append(fields,
			logx.Int("reminders.files", len(nr.Files)),
			logx.String("reminders.poll_interval", nr.PollInterval),
			logx.String("reminders.due_window", nr.DueWindow),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		fields = append(fields,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}

	if !equalPtr(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
		if n := newCfg.Notifier; n != nil {
			fields = append(fields, logx.Bool("notifier.enabled", n.Enabled), logx.Int("notifier.workers", n.Workers))
		}
	}

	if !equalPtr(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if s := newCfg.Storage; s != nil {
			fields = append(fields, logx.String("storage.driver", s.Driver))
		}
	}
	return changed, fields
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
