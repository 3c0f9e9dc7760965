// Package notifier delivers chat messages through a transport.Adapter with
// a shared rate limit, exponential retry and an optional dedup window.
//
// Notify queues a message for the worker pool and returns at once.
// Deliver sends on the caller's goroutine and reports the final outcome;
// the reminder pipeline uses it so a failed send is visible to the caller.
//
// Both paths publish notifier.* events and append to a short history.
package notifier
