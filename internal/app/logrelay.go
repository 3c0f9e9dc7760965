package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vaultbot/internal/notifier"
	kit "vaultbot/internal/transport"
)

const logChannel = "log"

// queuer is the async half of notifier.Service.
type queuer interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// logRelay is the sender behind the Telegram log sink. Lines are queued on
// the notifier, which paces them, retries them and folds repeats inside its
// dedup window. Until a notifier is attached, or while it is disabled or
// stopped, lines go straight to the adapter.
type logRelay struct {
	adapter kit.Adapter

	mu    sync.RWMutex
	notif queuer
}

func (r *logRelay) attach(q queuer) {
	r.mu.Lock()
	r.notif = q
	r.mu.Unlock()
}

func (r *logRelay) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	r.mu.RLock()
	q := r.notif
	r.mu.RUnlock()
	if q != nil {
		err := q.Notify(ctx, kit.Notification{
			Channel:  logChannel,
			Priority: logPriority(text),
			Target:   to,
			Text:     text,
			Options:  opt,
		})
		if !errors.Is(err, notifier.ErrDisabled) && !errors.Is(err, notifier.ErrStopped) {
			return kit.MessageRef{ChatID: to.ChatID}, err
		}
	}
	if r.adapter == nil {
		return kit.MessageRef{}, notifier.ErrNoAdapter
	}
	return r.adapter.SendText(ctx, to, text, opt)
}

// logPriority maps the "[LEVEL]" tag of a rendered log line to a notifier
// priority.
func logPriority(text string) int {
	level, _, ok := strings.Cut(strings.TrimPrefix(text, "["), "]")
	if !ok || !strings.HasPrefix(text, "[") {
		return 0
	}
	switch level {
	case "ERROR", "FATAL", "PANIC":
		return 9
	case "WARN":
		return 7
	case "INFO":
		return 5
	default:
		return 0
	}
}
