package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"

	kit "vaultbot/internal/transport"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("Team sync (19.08.2025 10:00)", textLimit, "")
	if len(got) != 1 || got[0] != "Team sync (19.08.2025 10:00)" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("я", 30)
	text := strings.Repeat(line+"\n", 10)
	got := splitText(text, 100, "")
	for i, part := range got {
		if n := utf8.RuneCountInString(part); n > 100 {
			t.Fatalf("part %d has %d runes", i, n)
		}
		if strings.HasPrefix(part, "\n") || strings.HasSuffix(part, "\n") {
			t.Fatalf("part %d has edge newline: %q", i, part)
		}
		for _, l := range strings.Split(part, "\n") {
			if l != line {
				t.Fatalf("line cut in part %d: %q", i, l)
			}
		}
	}
	if strings.Join(got, "\n") != strings.TrimRight(text, "\n") {
		t.Fatal("content lost while splitting")
	}
}

func TestSplitTextHardCut(t *testing.T) {
	t.Parallel()
	got := splitText(strings.Repeat("x", 250), 100, "")
	if len(got) != 3 || len(got[0]) != 100 || len(got[2]) != 50 {
		t.Fatalf("lengths: %d parts", len(got))
	}
}

func TestSplitTextHTMLTag(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 98) + "<b>bold</b>"
	got := splitText(text, 100, "HTML")
	if !strings.HasPrefix(got[1], "<b>") {
		t.Fatalf("tag split: %q", got)
	}
}

func TestMenuCommands(t *testing.T) {
	t.Parallel()
	list := menuCommands([]kit.BotCommand{
		{Command: "/upcoming", Description: "Next reminders"},
		{Command: "status"},
		{Command: "  "},
	})
	if len(list) != 2 || list[0].Text != "upcoming" || list[1].Description != "status" {
		t.Fatalf("list = %+v", list)
	}
	if menuHash(list) == menuHash(list[:1]) {
		t.Fatal("hash should change with the list")
	}
}
