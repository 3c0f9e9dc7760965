package reminder

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	logx "vaultbot/pkg/logx"
)

type memSource map[string][]string

func (m memSource) ReadLines(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: not found", ErrFileAccess, name)
	}
	return lines, nil
}

func newTestScanner(src Source) *Scanner {
	return NewScanner(src, NewLedger(DefaultRetention, logx.Nop()), Window{Width: DefaultDueWindow}, logx.Nop())
}

func TestScanTeamSync(t *testing.T) {
	t.Parallel()
	src := memSource{"plans.md": {"# Week", "Team sync |- tue 10:00"}}
	s := newTestScanner(src)

	// Monday morning: resolves to Tuesday, nowhere near due.
	if got := s.Scan(context.Background(), []string{"plans.md"}, at(2025, time.August, 18, 9, 0, 0)); len(got) != 0 {
		t.Fatalf("Monday scan returned %v", got)
	}

	tuesday := at(2025, time.August, 19, 10, 0, 0)
	got := s.Scan(context.Background(), []string{"plans.md"}, tuesday)
	if len(got) != 1 {
		t.Fatalf("Tuesday scan returned %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.String() != "Team sync (19.08.2025 10:00)" {
		t.Fatalf("String() = %q", ev.String())
	}
	if !ev.DueAt.Equal(tuesday) || ev.Source != "plans.md" || ev.Line != 2 {
		t.Fatalf("event = %+v", ev)
	}
	if !s.Ledger().Contains(ev.Key()) {
		t.Fatal("fired key missing from ledger")
	}

	if got := s.Scan(context.Background(), []string{"plans.md"}, tuesday.Add(time.Minute)); len(got) != 0 {
		t.Fatalf("rescan one minute later returned %v", got)
	}
}

func TestScanSuppressesRepeatWithinWindow(t *testing.T) {
	t.Parallel()
	src := memSource{"a.md": {"Buy milk |- 21.08.2025 18:00"}}
	s := newTestScanner(src)
	files := []string{"a.md"}

	if got := s.Scan(context.Background(), files, at(2025, time.August, 21, 17, 59, 30)); len(got) != 1 {
		t.Fatalf("first scan returned %d events, want 1", len(got))
	}
	// Still inside the window, but already fired.
	if got := s.Scan(context.Background(), files, at(2025, time.August, 21, 18, 0, 0)); len(got) != 0 {
		t.Fatalf("second scan returned %v", got)
	}
	if s.Ledger().Len() != 1 {
		t.Fatalf("ledger size = %d, want 1", s.Ledger().Len())
	}
}

func TestScanSkipsMissingAndMalformed(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	src := memSource{
		"a.md": {
			"first |- 09:00",
			"bad date |- 31.02 09:00",
			"bad time |- 09:61",
			"not a directive",
			"second |- 9:01",
		},
		"b.md": {"third |- mon 09:00", "later |- 10:00"},
	}
	s := newTestScanner(src)

	got := s.Scan(context.Background(), []string{"missing.md", "a.md", "b.md"}, now)
	var tasks []string
	for _, ev := range got {
		tasks = append(tasks, ev.Source+":"+ev.Task)
	}
	want := "a.md:first,a.md:second,b.md:third"
	if strings.Join(tasks, ",") != want {
		t.Fatalf("events = %v, want %s", tasks, want)
	}
	if got[1].Line != 5 {
		t.Fatalf("line = %d, want 5", got[1].Line)
	}
}

func TestScanSameTaskInTwoFiles(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	src := memSource{"a.md": {"x |- 09:00"}, "b.md": {"x |- 09:00"}}
	s := newTestScanner(src)
	if got := s.Scan(context.Background(), []string{"a.md", "b.md"}, now); len(got) != 2 {
		t.Fatalf("got %d events, want one per file", len(got))
	}
}

func TestScanPrunesOnce(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	s := newTestScanner(memSource{"a.md": nil})
	old := Key{Source: "a.md", DueUnix: now.Add(-48 * time.Hour).Unix(), Task: "old"}
	s.Ledger().RecordIfNew(old)

	s.Scan(context.Background(), []string{"a.md"}, now)
	if s.Ledger().Contains(old) {
		t.Fatal("expired key survived the scan")
	}
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	s := newTestScanner(memSource{"a.md": {"x |- 09:00"}})
	old := Key{Source: "a.md", DueUnix: now.Add(-48 * time.Hour).Unix(), Task: "old"}
	s.Ledger().RecordIfNew(old)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := s.Scan(ctx, []string{"a.md"}, now); len(got) != 0 {
		t.Fatalf("cancelled scan returned %v", got)
	}
	if !s.Ledger().Contains(old) {
		t.Fatal("cancelled scan must not prune")
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	src := memSource{
		"a.md": {"c |- 21.08.2025 18:00", "past |- 17.08.2025 10:00", "a |- 10:00"},
		"b.md": {"b |- tue 08:00"},
	}
	s := newTestScanner(src)

	got := s.Upcoming(context.Background(), []string{"a.md", "b.md"}, now, 0)
	var tasks []string
	for _, ev := range got {
		tasks = append(tasks, ev.Task)
	}
	if strings.Join(tasks, ",") != "a,b,c" {
		t.Fatalf("order = %v", tasks)
	}
	if s.Ledger().Len() != 0 {
		t.Fatal("Upcoming must not touch the ledger")
	}
	if got := s.Upcoming(context.Background(), []string{"a.md", "b.md"}, now, 2); len(got) != 2 {
		t.Fatalf("limit ignored: %d", len(got))
	}
}
