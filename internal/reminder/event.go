package reminder

import "time"

const displayLayout = "02.01.2006 15:04"

// Event is one due occurrence found by a scan.
type Event struct {
	Source string
	Line   int
	Task   string
	DueAt  time.Time
}

// String renders the event for a notification sink: "<task> (<dd.mm.yyyy HH:MM>)".
func (e Event) String() string {
	return e.Task + " (" + e.DueAt.Format(displayLayout) + ")"
}

func (e Event) Key() Key {
	return NewKey(e.Source, Reminder{Task: e.Task, DueAt: e.DueAt})
}
