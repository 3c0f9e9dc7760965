package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	logx "vaultbot/pkg/logx"
)

// Scanner runs scan passes over a list of source files.
type Scanner struct {
	src    Source
	ledger *Ledger
	log    logx.Logger

	mu     sync.Mutex
	window Window
}

func NewScanner(src Source, ledger *Ledger, window Window, log logx.Logger) *Scanner {
	if log.IsZero() {
		log = logx.Nop()
	}
	if ledger == nil {
		ledger = NewLedger(DefaultRetention, log)
	}
	return &Scanner{src: src, ledger: ledger, window: window, log: log}
}

func (s *Scanner) Ledger() *Ledger { return s.ledger }

func (s *Scanner) Window() Window {
	s.mu.Lock()
	w := s.window
	s.mu.Unlock()
	return w
}

func (s *Scanner) SetWindow(w Window) {
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
}

// Scan reads every file in order and returns the occurrences that are due at
// now and were not fired before, in file-then-line order. Unreadable files and
// malformed directives are logged and skipped. The ledger is pruned once after
// the last file. If ctx is cancelled the pass stops early, pruning is skipped,
// and the events recorded so far are returned.
func (s *Scanner) Scan(ctx context.Context, files []string, now time.Time) []Event {
	window := s.Window()
	var events []Event

	for _, name := range files {
		if ctx.Err() != nil {
			s.log.Debug("scan cancelled", logx.String("file", name), logx.Int("events", len(events)))
			return events
		}
		lines, err := s.src.ReadLines(ctx, name)
		if err != nil {
			s.log.Warn("source skipped", logx.String("file", name), logx.Err(err))
			continue
		}

		for i, line := range lines {
			if ctx.Err() != nil {
				s.log.Debug("scan cancelled", logx.String("file", name), logx.Int("line", i+1))
				return events
			}
			r, ok := s.resolveLine(name, i+1, line, now)
			if !ok || !window.Due(r.DueAt, now) {
				continue
			}
			key := NewKey(name, r)
			if !s.ledger.RecordIfNew(key) {
				s.log.Trace("already fired", logx.String("key", key.String()))
				continue
			}
			events = append(events, Event{Source: name, Line: i + 1, Task: r.Task, DueAt: r.DueAt})
		}
	}

	if dropped := s.ledger.Prune(now); dropped > 0 {
		s.log.Debug("ledger pruned", logx.Int("dropped", dropped), logx.Int("kept", s.ledger.Len()))
	}
	return events
}

// Upcoming resolves every directive in files without consulting or touching
// the ledger and returns the future occurrences sorted by instant. limit <= 0
// returns all of them.
func (s *Scanner) Upcoming(ctx context.Context, files []string, now time.Time, limit int) []Event {
	var out []Event
	for _, name := range files {
		if ctx.Err() != nil {
			break
		}
		lines, err := s.src.ReadLines(ctx, name)
		if err != nil {
			s.log.Debug("source skipped", logx.String("file", name), logx.Err(err))
			continue
		}
		for i, line := range lines {
			r, ok := s.resolveLine(name, i+1, line, now)
			if !ok || r.DueAt.Before(now) {
				continue
			}
			out = append(out, Event{Source: name, Line: i + 1, Task: r.Task, DueAt: r.DueAt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Scanner) resolveLine(name string, lineNo int, line string, now time.Time) (Reminder, bool) {
	m, ok := MatchLine(line)
	if !ok {
		return Reminder{}, false
	}
	r, err := Resolve(m, now)
	if err != nil {
		s.log.Warn("directive skipped",
			logx.String("file", name),
			logx.Int("line", lineNo),
			logx.String("kind", m.Kind.String()),
			logx.Err(err),
		)
		return Reminder{}, false
	}
	return r, true
}
