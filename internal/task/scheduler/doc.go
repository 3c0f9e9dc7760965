// Package scheduler triggers named jobs on cron expressions or fixed
// intervals in a configurable wall-clock timezone.
//
// Jobs run on the cron goroutine pool with a context that Stop cancels.
// By default a job whose previous run is still in flight is skipped, so a
// job never overlaps itself, even across re-registration under the same name.
package scheduler
