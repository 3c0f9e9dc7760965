package reminder

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultDueWindow matches the default scan cadence, so each occurrence is
	// seen by exactly one scan when ticks are on time.
	DefaultDueWindow = 60 * time.Second

	// DefaultRetention bounds how long fired keys stay in the ledger.
	DefaultRetention = 24 * time.Hour
)

// Window decides whether a resolved occurrence is due at a given instant.
type Window struct {
	Width time.Duration
}

func (w Window) width() time.Duration {
	if w.Width <= 0 {
		return DefaultDueWindow
	}
	return w.Width
}

// Due reports whether 0 <= at-now <= Width.
func (w Window) Due(at, now time.Time) bool {
	diff := at.Sub(now)
	return diff >= 0 && diff <= w.width()
}

// Key names one trigger occurrence: the owning source, the instant in epoch
// seconds, and the exact task text.
type Key struct {
	Source  string
	DueUnix int64
	Task    string
}

func NewKey(source string, r Reminder) Key {
	return Key{Source: source, DueUnix: r.DueAt.Unix(), Task: r.Task}
}

func (k Key) DueAt() time.Time { return time.Unix(k.DueUnix, 0) }

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.Source, k.DueUnix, k.Task)
}

func (k Key) validate() error {
	if strings.TrimSpace(k.Source) == "" {
		return fmt.Errorf("%w: empty source in %q", ErrLedgerDecode, k.String())
	}
	if k.DueUnix <= 0 {
		return fmt.Errorf("%w: instant %d in %q", ErrLedgerDecode, k.DueUnix, k.String())
	}
	return nil
}
