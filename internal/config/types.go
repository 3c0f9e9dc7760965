package config

// Config is the on-disk configuration (JSON or YAML). Unknown keys are rejected.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Reminders RemindersConfig `json:"reminders"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// Optional sections. A nil notifier means enabled with defaults;
	// a nil storage means no delivery journal.
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is the chat id receiving log lines, e.g. "-1001234567890".
	GroupLog string `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// RemindersConfig selects the note files to scan and where due reminders go.
//
// Defaults: poll_interval "60s", due_window "60s", retention "24h",
// header "🔔 Напоминание!", upcoming_limit 10. When chat_id is 0 the first
// owner id is used (a private chat with the owner). poll_interval takes any
// scheduler schedule: a duration ("60s"), an HH:MM interval ("00:01") or a
// cron expression ("* * * * *" scans on minute boundaries).
type RemindersConfig struct {
	VaultPath     string   `json:"vault_path"`
	Files         []string `json:"files"`
	ChatID        int64    `json:"chat_id"`
	ThreadID      int      `json:"thread_id,omitempty"`
	PollInterval  string   `json:"poll_interval,omitempty"`
	DueWindow     string   `json:"due_window,omitempty"`
	Retention     string   `json:"retention,omitempty"`
	Header        string   `json:"header,omitempty"`
	UpcomingLimit int      `json:"upcoming_limit,omitempty"`
}

// SchedulerConfig controls the trigger service.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Timezone is an IANA name ("Europe/Moscow"). Empty means the host zone.
	Timezone string `json:"timezone,omitempty"`
	// JobTimeout bounds one job run. "0s" or empty disables it.
	JobTimeout string `json:"job_timeout,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
// All durations are Go duration strings.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
}

// StorageConfig selects the delivery journal backend.
//
//	"storage": { "driver": "sqlite", "path": "./data/vaultbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // none | file | sqlite
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
