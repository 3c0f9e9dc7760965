package reminder

import "errors"

var (
	// ErrParse marks a directive that matched a grammar but carries invalid
	// date, time or weekday components.
	ErrParse = errors.New("reminder: invalid directive")

	// ErrFileAccess marks a source file that is missing or unreadable.
	ErrFileAccess = errors.New("reminder: source file unavailable")

	// ErrLedgerDecode marks a ledger key whose fields cannot be interpreted.
	ErrLedgerDecode = errors.New("reminder: corrupt ledger key")
)
