package reminder

import (
	"errors"
	"testing"
	"time"
)

var testLoc = time.FixedZone("UTC+3", 3*60*60)

func at(y int, mo time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, mo, d, h, mi, s, 0, testLoc)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	monday := at(2025, time.August, 18, 9, 0, 0)

	tests := []struct {
		name string
		line string
		now  time.Time
		want time.Time
	}{
		{name: "weekday later this week", line: "Team sync |- tue 10:00", now: monday, want: at(2025, time.August, 19, 10, 0, 0)},
		{name: "weekday today still ahead", line: "x |- mon 09:30", now: monday, want: at(2025, time.August, 18, 9, 30, 0)},
		{name: "weekday today exactly now", line: "x |- mon 09:00", now: monday, want: at(2025, time.August, 18, 9, 0, 0)},
		{name: "weekday today seconds past", line: "x |- mon 09:00", now: monday.Add(30 * time.Second), want: at(2025, time.August, 25, 9, 0, 0)},
		{name: "weekday today passed", line: "x |- mon 08:00", now: monday, want: at(2025, time.August, 25, 8, 0, 0)},
		{name: "weekday sunday", line: "x |- sun 12:00", now: monday, want: at(2025, time.August, 24, 12, 0, 0)},
		{name: "weekday cyrillic", line: "x |- ВТ 07:15", now: monday, want: at(2025, time.August, 19, 7, 15, 0)},
		{name: "time later today", line: "x |- 10:00", now: monday, want: at(2025, time.August, 18, 10, 0, 0)},
		{name: "time passed rolls to tomorrow", line: "x |- 08:00", now: monday, want: at(2025, time.August, 19, 8, 0, 0)},
		{name: "time crosses month", line: "x |- 0:15", now: at(2025, time.August, 31, 23, 30, 0), want: at(2025, time.September, 1, 0, 15, 0)},
		{name: "date explicit year", line: "x |- 21.08.2025 18:00", now: monday, want: at(2025, time.August, 21, 18, 0, 0)},
		{name: "date explicit past year kept", line: "x |- 17.08.2025 10:00", now: monday, want: at(2025, time.August, 17, 10, 0, 0)},
		{name: "date without year ahead", line: "x |- 1.9 8:00", now: monday, want: at(2025, time.September, 1, 8, 0, 0)},
		{name: "date without year passed", line: "x |- 17.08 10:00", now: monday, want: at(2026, time.August, 17, 10, 0, 0)},
		{name: "date crosses year", line: "x |- 01.01 00:30", now: at(2025, time.December, 31, 23, 0, 0), want: at(2026, time.January, 1, 0, 30, 0)},
		{name: "leap day", line: "x |- 29.02.2028 12:00", now: monday, want: at(2028, time.February, 29, 12, 0, 0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := MatchLine(tt.line)
			if !ok {
				t.Fatalf("MatchLine(%q) failed", tt.line)
			}
			r, err := Resolve(m, tt.now)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !r.DueAt.Equal(tt.want) {
				t.Fatalf("DueAt = %s, want %s", r.DueAt, tt.want)
			}
			if r.DueAt.Location() != tt.now.Location() {
				t.Fatalf("location = %s, want %s", r.DueAt.Location(), tt.now.Location())
			}
			if r.DueAt.Second() != 0 {
				t.Fatalf("seconds = %d, want 0", r.DueAt.Second())
			}
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	t.Parallel()
	now := at(2025, time.August, 18, 9, 0, 0)
	lines := []string{
		"x |- 24:00",
		"x |- 12:60",
		"x |- 31.02 10:00",
		"x |- 29.02.2025 10:00",
		"x |- 0.05 10:00",
		"x |- 12.13.2025 10:00",
		"x |- tue 25:00",
		"x |- 21.08.2025 9:75",
	}
	for _, line := range lines {
		m, ok := MatchLine(line)
		if !ok {
			t.Fatalf("MatchLine(%q) failed", line)
		}
		if _, err := Resolve(m, now); !errors.Is(err, ErrParse) {
			t.Fatalf("Resolve(%q) err = %v, want ErrParse", line, err)
		}
	}
}

func TestResolveLeapDayRollsIntoInvalidYear(t *testing.T) {
	t.Parallel()
	// 29.02 without a year, seen after the leap day: next year has no such date.
	now := at(2028, time.March, 1, 9, 0, 0)
	m, _ := MatchLine("x |- 29.02 10:00")
	if _, err := Resolve(m, now); !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestResolveUnknownWeekday(t *testing.T) {
	t.Parallel()
	_, err := Resolve(Match{Kind: KindWeekday, Task: "x", Weekday: "xyz", Clock: "10:00"}, time.Now())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
	if _, err := Resolve(Match{Task: "x"}, time.Now()); !errors.Is(err, ErrParse) {
		t.Fatalf("zero kind err = %v, want ErrParse", err)
	}
}
