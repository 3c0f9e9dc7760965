// Package storage keeps a journal of delivered reminders.
//
// The journal is write-mostly and read only by operator commands. It is not
// consulted for deduplication: after a restart every reminder inside the due
// window may fire again.
package storage
