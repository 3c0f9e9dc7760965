package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vaultbot/internal/notifier"
	"vaultbot/internal/reminder"
	"vaultbot/internal/storage"
	kit "vaultbot/internal/transport"
)

var errNoTarget = errors.New("reminders: no chat to deliver to (set reminders.chat_id or telegram.owner_user_ids)")

// deliverer is the subset of notifier.Service the chat sink needs.
type deliverer interface {
	Enabled() bool
	Deliver(ctx context.Context, n kit.Notification) error
}

// chatSink renders a due event and sends it to the reminders chat, through
// the notifier when it is enabled and straight through the adapter otherwise.
type chatSink struct {
	notif   deliverer
	adapter kit.Adapter

	mu     sync.RWMutex
	target kit.ChatTarget
	header string
}

func newChatSink(notif deliverer, adapter kit.Adapter, target kit.ChatTarget, header string) *chatSink {
	return &chatSink{notif: notif, adapter: adapter, target: target, header: header}
}

func (s *chatSink) set(target kit.ChatTarget, header string) {
	s.mu.Lock()
	s.target, s.header = target, header
	s.mu.Unlock()
}

func (s *chatSink) current() (kit.ChatTarget, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target, s.header
}

func renderReminder(header string, ev reminder.Event) string {
	if header == "" {
		return ev.String()
	}
	return header + "\n\n" + ev.String()
}

func (s *chatSink) Deliver(ctx context.Context, ev reminder.Event) error {
	target, header := s.current()
	if target.ChatID == 0 {
		return errNoTarget
	}
	n := kit.Notification{
		Channel: "reminder",
		Target:  target,
		Text:    renderReminder(header, ev),
	}
	if s.notif != nil && s.notif.Enabled() {
		return s.notif.Deliver(ctx, n)
	}
	if s.adapter == nil {
		return notifier.ErrNoAdapter
	}
	_, err := s.adapter.SendText(ctx, n.Target, n.Text, nil)
	return err
}

// storeJournal writes delivered events to the storage journal.
type storeJournal struct {
	store  storage.Store
	target func() kit.ChatTarget
}

func (j storeJournal) Record(ctx context.Context, ev reminder.Event, deliveredAt time.Time) error {
	to := j.target()
	if err := j.store.AppendDelivery(ctx, storage.Delivery{
		At:       deliveredAt,
		Source:   ev.Source,
		Line:     ev.Line,
		Task:     ev.Task,
		DueAt:    ev.DueAt,
		ChatID:   to.ChatID,
		ThreadID: to.ThreadID,
	}); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// zoneClock returns now in a location that can be swapped on reload.
type zoneClock struct {
	mu  sync.RWMutex
	loc *time.Location
}

func (c *zoneClock) set(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
}

func (c *zoneClock) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

func (c *zoneClock) Now() time.Time { return time.Now().In(c.Location()) }

// vaultSource is a reminder.DirSource whose root can change on reload.
type vaultSource struct {
	mu   sync.RWMutex
	root string
}

func (v *vaultSource) setRoot(root string) {
	v.mu.Lock()
	v.root = root
	v.mu.Unlock()
}

func (v *vaultSource) ReadLines(ctx context.Context, name string) ([]string, error) {
	v.mu.RLock()
	src := reminder.DirSource{Root: v.root}
	v.mu.RUnlock()
	return src.ReadLines(ctx, name)
}
