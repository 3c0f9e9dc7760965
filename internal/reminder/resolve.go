package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reminder is a directive resolved to a concrete next occurrence.
type Reminder struct {
	Task  string
	DueAt time.Time
}

// Resolve turns a matched directive into its next occurrence relative to now.
// Instants are built in now's location with zero seconds. Invalid numeric or
// weekday components yield an error wrapping ErrParse.
func Resolve(m Match, now time.Time) (Reminder, error) {
	switch m.Kind {
	case KindDate:
		return resolveDate(m.Task, m.Date, m.Clock, now)
	case KindWeekday:
		return resolveWeekday(m.Task, m.Weekday, m.Clock, now)
	case KindTime:
		return resolveTime(m.Task, m.Clock, now)
	default:
		return Reminder{}, fmt.Errorf("%w: unknown directive kind %d", ErrParse, int(m.Kind))
	}
}

// resolveDate handles "D.M[.YYYY] HH:MM". Only a date written without a year
// rolls over to next year when it is already past; an explicit year is kept.
func resolveDate(task, date, clock string, now time.Time) (Reminder, error) {
	parts := strings.Split(date, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return Reminder{}, fmt.Errorf("%w: date %q", ErrParse, date)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return Reminder{}, fmt.Errorf("%w: day in %q", ErrParse, date)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Reminder{}, fmt.Errorf("%w: month in %q", ErrParse, date)
	}
	year := now.Year()
	explicitYear := len(parts) == 3
	if explicitYear {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return Reminder{}, fmt.Errorf("%w: year in %q", ErrParse, date)
		}
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return Reminder{}, err
	}

	at, err := civilTime(year, month, day, hour, minute, now.Location())
	if err != nil {
		return Reminder{}, err
	}
	if !explicitYear && at.Before(now) {
		if at, err = civilTime(year+1, month, day, hour, minute, now.Location()); err != nil {
			return Reminder{}, err
		}
	}
	return Reminder{Task: task, DueAt: at}, nil
}

// resolveWeekday handles "<wd> HH:MM". A target on today's weekday whose time
// has already passed moves to the same weekday next week.
func resolveWeekday(task, token, clock string, now time.Time) (Reminder, error) {
	target, ok := LookupWeekday(token)
	if !ok {
		return Reminder{}, fmt.Errorf("%w: weekday %q", ErrParse, token)
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return Reminder{}, err
	}

	daysAhead := (target - mondayIndex(now.Weekday()) + 7) % 7
	if daysAhead == 0 && now.After(atClock(now, 0, hour, minute)) {
		daysAhead = 7
	}
	return Reminder{Task: task, DueAt: atClock(now, daysAhead, hour, minute)}, nil
}

// resolveTime handles "HH:MM": today if still ahead, otherwise tomorrow.
func resolveTime(task, clock string, now time.Time) (Reminder, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return Reminder{}, err
	}
	at := atClock(now, 0, hour, minute)
	if at.Before(now) {
		at = atClock(now, 1, hour, minute)
	}
	return Reminder{Task: task, DueAt: at}, nil
}

// atClock returns the wall-clock hour:minute on the day `days` after now's date.
func atClock(now time.Time, days, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, hour, minute, 0, 0, now.Location())
}

// civilTime builds a date without letting time.Date normalize invalid days
// (31.02 would otherwise silently become 03.03).
func civilTime(year, month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrParse, month)
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: day %d out of range", ErrParse, day)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %02d.%02d.%d is not a calendar date", ErrParse, day, month, year)
	}
	return t, nil
}

// parseClock validates a 24-hour H:MM / HH:MM token.
func parseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 || len(h) < 1 || len(h) > 2 {
		return 0, 0, fmt.Errorf("%w: time %q, expected HH:MM", ErrParse, s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrParse, s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrParse, s)
	}
	return hour, minute, nil
}
