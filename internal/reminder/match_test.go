package reminder

import "testing"

func TestMatchLineGrammars(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want Match
	}{
		{name: "date with year", line: "Buy milk |- 21.08.2025 18:00", want: Match{Kind: KindDate, Task: "Buy milk", Date: "21.08.2025", Clock: "18:00"}},
		{name: "date without year", line: "Buy milk |- 1.8 7:05", want: Match{Kind: KindDate, Task: "Buy milk", Date: "1.8", Clock: "7:05"}},
		{name: "weekday", line: "Standup |- tue 09:30", want: Match{Kind: KindWeekday, Task: "Standup", Weekday: "tue", Clock: "09:30"}},
		{name: "weekday upper case", line: "Standup |- TUE 9:30", want: Match{Kind: KindWeekday, Task: "Standup", Weekday: "TUE", Clock: "9:30"}},
		{name: "weekday two letters", line: "Gym |- fr 19:00", want: Match{Kind: KindWeekday, Task: "Gym", Weekday: "fr", Clock: "19:00"}},
		{name: "weekday cyrillic", line: "Планёрка |- Пн 10:00", want: Match{Kind: KindWeekday, Task: "Планёрка", Weekday: "Пн", Clock: "10:00"}},
		{name: "time only", line: "Water plants |- 20:00", want: Match{Kind: KindTime, Task: "Water plants", Clock: "20:00"}},
		{name: "surrounding space", line: "   - [ ] Water plants   |-   20:00   ", want: Match{Kind: KindTime, Task: "- [ ] Water plants", Clock: "20:00"}},
		{name: "no space around separator", line: "Call mom|-21:15", want: Match{Kind: KindTime, Task: "Call mom", Clock: "21:15"}},
		{name: "separator inside task", line: "a |- b |- 10:00", want: Match{Kind: KindTime, Task: "a |- b", Clock: "10:00"}},
		{name: "out of range time still matches", line: "Later |- 25:99", want: Match{Kind: KindTime, Task: "Later", Clock: "25:99"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := MatchLine(tt.line)
			if !ok {
				t.Fatalf("MatchLine(%q) reported no match", tt.line)
			}
			if got != tt.want {
				t.Fatalf("MatchLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestMatchLineRejects(t *testing.T) {
	t.Parallel()
	lines := []string{
		"",
		"plain note without directive",
		"|- 20:00",
		"     |- 20:00",
		"task |- tomorrow",
		"task |- xyz 10:00",
		"task |- 20:00 extra",
		"task |- 21.08.25 18:00",
		"task - 20:00",
	}
	for _, line := range lines {
		if m, ok := MatchLine(line); ok {
			t.Fatalf("MatchLine(%q) = %+v, want no match", line, m)
		}
	}
}

func TestLookupWeekday(t *testing.T) {
	t.Parallel()
	tests := map[string]int{"mon": 0, "Tue": 1, "WED": 2, "th": 3, "пт": 4, "СБ": 5, "sun": 6}
	for tok, want := range tests {
		got, ok := LookupWeekday(tok)
		if !ok || got != want {
			t.Fatalf("LookupWeekday(%q) = %d,%v want %d", tok, got, ok, want)
		}
	}
	if _, ok := LookupWeekday("xyz"); ok {
		t.Fatal("expected unknown token to fail")
	}
}
