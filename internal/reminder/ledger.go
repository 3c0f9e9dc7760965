package reminder

import (
	"sync"
	"time"

	logx "vaultbot/pkg/logx"
)

// Ledger remembers occurrences that already fired so repeated scans do not
// notify twice. Entries older than the retention horizon are dropped by Prune.
//
// Scans are expected to be serialized by the caller; the mutex only keeps
// concurrent status reads (Len, Contains) safe.
type Ledger struct {
	mu        sync.Mutex
	retention time.Duration
	seen      map[Key]struct{}
	log       logx.Logger
}

func NewLedger(retention time.Duration, log logx.Logger) *Ledger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Ledger{retention: retention, seen: map[Key]struct{}{}, log: log}
}

// RecordIfNew inserts k and reports true, or reports false if k is already present.
func (l *Ledger) RecordIfNew(k Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[k]; ok {
		return false
	}
	l.seen[k] = struct{}{}
	return true
}

func (l *Ledger) Contains(k Key) bool {
	l.mu.Lock()
	_, ok := l.seen[k]
	l.mu.Unlock()
	return ok
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	n := len(l.seen)
	l.mu.Unlock()
	return n
}

func (l *Ledger) Retention() time.Duration {
	l.mu.Lock()
	d := l.retention
	l.mu.Unlock()
	return d
}

func (l *Ledger) SetRetention(d time.Duration) {
	if d <= 0 {
		d = DefaultRetention
	}
	l.mu.Lock()
	l.retention = d
	l.mu.Unlock()
}

// Prune drops keys whose instant is not after now-retention. A key that fails
// validation is dropped on its own with a warning; the pass always completes.
func (l *Ledger) Prune(now time.Time) (dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := now.Add(-l.retention)
	for k := range l.seen {
		if err := k.validate(); err != nil {
			l.log.Warn("ledger key dropped", logx.Err(err))
			delete(l.seen, k)
			dropped++
			continue
		}
		if !k.DueAt().After(threshold) {
			delete(l.seen, k)
			dropped++
		}
	}
	return dropped
}
