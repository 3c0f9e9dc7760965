package notifier

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	kit "vaultbot/internal/transport"
)

// dedupCache suppresses identical messages for a window. Memory only.
type dedupCache struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func newDedupCache() *dedupCache { return &dedupCache{until: map[string]time.Time{}} }

// allow reports whether key may be sent at now and, if so, opens a new
// window for it. A zero window or empty key always allows.
func (d *dedupCache) allow(key string, now time.Time, window time.Duration, maxEntries int) bool {
	if window <= 0 || key == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.until[key]; ok && now.Before(u) {
		return false
	}
	d.until[key] = now.Add(window)

	for k, u := range d.until {
		if !now.Before(u) {
			delete(d.until, k)
		}
	}
	for maxEntries > 0 && len(d.until) > maxEntries {
		var oldest string
		var oldestAt time.Time
		for k, u := range d.until {
			if oldest == "" || u.Before(oldestAt) {
				oldest, oldestAt = k, u
			}
		}
		delete(d.until, oldest)
	}
	return true
}

func (d *dedupCache) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.until)
}

func dedupKey(n kit.Notification) string {
	if n.Channel == "" {
		return ""
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d:%d:%d|%s", n.Channel, n.Target.ChatID, n.Target.ThreadID, n.Priority, n.Text)
	return fmt.Sprintf("%x", h.Sum64())
}
