// Package reminder scans plain-text note files for reminder directives and
// decides which of them are due.
//
// A directive is a single line of the form
//
//	<task> |- <when>
//
// where <when> is one of
//
//	D.M[.YYYY] HH:MM   explicit date, year optional
//	<weekday> HH:MM    weekly, e.g. "tue 09:30"
//	HH:MM              daily
//
// One scan pass (Scanner.Scan) reads every configured file, resolves each
// directive to its next occurrence, and emits an Event for every occurrence
// that falls inside the due window and has not fired before. Fired
// occurrences are remembered in a Ledger for a bounded retention period.
// The ledger lives in memory only; a restart forgets it.
package reminder
