package reminder

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Separator splits the task text from the time expression.
const Separator = "|-"

// Kind identifies which grammar a directive matched.
type Kind int

const (
	KindDate Kind = iota + 1
	KindWeekday
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindWeekday:
		return "weekday"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Match is the raw result of classifying one line. Only the fields relevant
// to Kind are set; numeric validation happens in Resolve.
type Match struct {
	Kind    Kind
	Task    string
	Date    string // "D.M" or "D.M.YYYY"
	Weekday string // token as written, e.g. "Tue"
	Clock   string // "H:MM" or "HH:MM"
}

// weekdays maps lower-cased tokens to a Monday-based index (0=Mon..6=Sun).
var weekdays = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
	"mo": 0, "tu": 1, "we": 2, "th": 3, "fr": 4, "sa": 5, "su": 6,
	"пн": 0, "вт": 1, "ср": 2, "чт": 3, "пт": 4, "сб": 5, "вс": 6,
}

// grammars are tried in order; the first hit wins.
var (
	reDate    = regexp.MustCompile(`^(.+?)\s*\|-\s*(\d{1,2}\.\d{1,2}(?:\.\d{4})?)\s+(\d{1,2}:\d{2})\s*$`)
	reWeekday = regexp.MustCompile(`^(.+?)\s*\|-\s*(?i:(` + weekdayAlternation() + `))\s+(\d{1,2}:\d{2})\s*$`)
	reTime    = regexp.MustCompile(`^(.+?)\s*\|-\s*(\d{1,2}:\d{2})\s*$`)
)

func weekdayAlternation() string {
	tokens := make([]string, 0, len(weekdays))
	for k := range weekdays {
		tokens = append(tokens, regexp.QuoteMeta(k))
	}
	// Longest first so "mon" is preferred over "mo".
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return strings.Join(tokens, "|")
}

// LookupWeekday maps a weekday token (case-insensitive) to its Monday-based index.
func LookupWeekday(token string) (int, bool) {
	idx, ok := weekdays[strings.ToLower(strings.TrimSpace(token))]
	return idx, ok
}

// mondayIndex converts time.Weekday (Sunday=0) to 0=Mon..6=Sun.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// MatchLine classifies a line against the three directive grammars.
// Lines without the separator, lines matching no grammar and lines with an
// empty task all report ok=false.
func MatchLine(line string) (Match, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, Separator) {
		return Match{}, false
	}

	if g := reDate.FindStringSubmatch(line); g != nil {
		return newMatch(Match{Kind: KindDate, Task: g[1], Date: g[2], Clock: g[3]})
	}
	if g := reWeekday.FindStringSubmatch(line); g != nil {
		return newMatch(Match{Kind: KindWeekday, Task: g[1], Weekday: g[2], Clock: g[3]})
	}
	if g := reTime.FindStringSubmatch(line); g != nil {
		return newMatch(Match{Kind: KindTime, Task: g[1], Clock: g[2]})
	}
	return Match{}, false
}

func newMatch(m Match) (Match, bool) {
	m.Task = strings.TrimSpace(m.Task)
	if m.Task == "" {
		return Match{}, false
	}
	return m, true
}
