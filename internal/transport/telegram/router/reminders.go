package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"vaultbot/internal/notifier"
	"vaultbot/internal/reminder"
	"vaultbot/internal/storage"
	"vaultbot/internal/task/scheduler"
)

const dateTimeLayout = "02.01.2006 15:04"

// ReminderPort is the read side of the reminder runner.
type ReminderPort interface {
	Upcoming(ctx context.Context, limit int) []reminder.Event
	Status() reminder.Status
}

type SchedulerPort interface {
	Snapshot() scheduler.Snapshot
}

type HistoryPort interface {
	RecentDeliveries(ctx context.Context, limit int) ([]storage.Delivery, error)
}

// NotifierPort exposes the recent sends of the notifier.
type NotifierPort interface {
	History() []notifier.HistoryItem
}

// Services backs the reminder commands. Every port except Reminders may be nil.
type Services struct {
	Reminders     ReminderPort
	Scheduler     SchedulerPort
	History       HistoryPort
	Notifier      NotifierPort
	ScanJob       string // scheduler job name shown by /status
	UpcomingLimit func() int
	// Location is the wall clock journal times are shown in; nil keeps
	// the stored zone.
	Location func() *time.Location
}

const greeting = "🔔 Бот напоминаний из Obsidian готов к работе!\n" +
	"Добавьте в заметку строку вида «Созвон |- вт 10:00», и я напомню. Команды: /help."

// ReminderCommands returns the /start, /upcoming, /status and /history commands.
func ReminderCommands(s Services) []Command {
	return []Command{
		{
			Name:        "start",
			Description: "greeting",
			Handle: func(ctx context.Context, req *Request) error {
				return req.Reply(ctx, greeting)
			},
		},
		{
			Name:        "upcoming",
			Aliases:     []string{"next"},
			Description: "next reminders",
			Usage:       "/upcoming [n]",
			Access:      AccessOwnerOnly,
			Timeout:     15 * time.Second,
			Handle:      s.upcoming,
		},
		{
			Name:        "status",
			Description: "scanner status",
			Access:      AccessOwnerOnly,
			Handle:      s.status,
		},
		{
			Name:        "history",
			Description: "recently delivered reminders",
			Usage:       "/history [n]",
			Access:      AccessOwnerOnly,
			Timeout:     15 * time.Second,
			Handle:      s.history,
		},
	}
}

func (s Services) limit(args []string) int {
	n := 10
	if s.UpcomingLimit != nil {
		if v := s.UpcomingLimit(); v > 0 {
			n = v
		}
	}
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = min(v, 50)
		}
	}
	return n
}

func (s Services) upcoming(ctx context.Context, req *Request) error {
	if s.Reminders == nil {
		return req.Reply(ctx, "reminders are not configured")
	}
	events := s.Reminders.Upcoming(ctx, s.limit(req.Args))
	if len(events) == 0 {
		return req.Reply(ctx, "no upcoming reminders")
	}
	var b strings.Builder
	b.WriteString("Upcoming:\n")
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ev.String())
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

func (s Services) status(ctx context.Context, req *Request) error {
	if s.Reminders == nil {
		return req.Reply(ctx, "reminders are not configured")
	}
	text := formatStatus(s.Reminders.Status(), s.nextScan())
	if s.Notifier != nil {
		text += "\n" + formatSends(s.Notifier.History(), s.loc())
	}
	return req.Reply(ctx, text)
}

func (s Services) loc() *time.Location {
	if s.Location == nil {
		return nil
	}
	return s.Location()
}

func inZone(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// formatSends summarizes notifier history per channel.
func formatSends(items []notifier.HistoryItem, loc *time.Location) string {
	if len(items) == 0 {
		return "Recent sends: none"
	}
	counts := map[string]int{}
	var order []string
	for _, it := range items {
		ch := it.Channel
		if ch == "" {
			ch = "other"
		}
		if counts[ch] == 0 {
			order = append(order, ch)
		}
		counts[ch]++
	}
	sort.Strings(order)
	parts := make([]string, 0, len(order))
	for _, ch := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[ch], ch))
	}
	last := items[len(items)-1].At
	return fmt.Sprintf("Recent sends: %s (last %s)", strings.Join(parts, ", "), inZone(last, loc).Format(dateTimeLayout))
}

func (s Services) nextScan() time.Time {
	if s.Scheduler == nil || s.ScanJob == "" {
		return time.Time{}
	}
	for _, j := range s.Scheduler.Snapshot().Schedules {
		if j.Name == s.ScanJob {
			return j.Next
		}
	}
	return time.Time{}
}

func formatStatus(st reminder.Status, next time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d\n", len(st.Files))
	for _, f := range st.Files {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "Due window: %s, retention: %s\n", st.DueWindow, st.Retention)
	fmt.Fprintf(&b, "Fired (tracked): %d\n", st.LedgerSize)
	if st.LastScan.IsZero() {
		b.WriteString("Last scan: never\n")
	} else {
		fmt.Fprintf(&b, "Last scan: %s (%d due, took %s)\n", st.LastScan.Format(dateTimeLayout), st.LastEvents, st.LastTook.Round(time.Millisecond))
	}
	if !next.IsZero() {
		fmt.Fprintf(&b, "Next scan: %s\n", next.Format(dateTimeLayout))
	}
	fmt.Fprintf(&b, "Delivered: %d, failed: %d", st.Delivered, st.Failed)
	return b.String()
}

func (s Services) history(ctx context.Context, req *Request) error {
	if s.History == nil {
		return req.Reply(ctx, "delivery journal is disabled")
	}
	items, err := s.History.RecentDeliveries(ctx, s.limit(req.Args))
	if errors.Is(err, storage.ErrDisabled) {
		return req.Reply(ctx, "delivery journal is disabled")
	}
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(items) == 0 {
		return req.Reply(ctx, "nothing delivered yet")
	}
	var b strings.Builder
	b.WriteString("Delivered:\n")
	loc := s.loc()
	for _, d := range items {
		fmt.Fprintf(&b, "%s  %s (%s)\n", inZone(d.At, loc).Format(dateTimeLayout), d.Task, inZone(d.DueAt, loc).Format(dateTimeLayout))
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}
