package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"vaultbot/internal/eventbus"
	logx "vaultbot/pkg/logx"
)

type Config struct {
	Enabled bool
	// Timezone is an IANA name; empty means time.Local.
	Timezone string
	// JobTimeout applies to jobs registered without their own timeout.
	JobTimeout time.Duration
}

// Job is the unit of scheduled work.
type Job func(ctx context.Context) error

type OverlapPolicy int

const (
	OverlapSkipIfRunning OverlapPolicy = iota
	OverlapAllow
)

type TaskOptions struct {
	Overlap OverlapPolicy
	// RunOnStart fires the job once as soon as the scheduler starts
	// (or immediately, if it is already running).
	RunOnStart bool
}

// runState is shared by every trigger of one definition.
type runState struct {
	running atomic.Bool
	runs    atomic.Uint64
	skips   atomic.Uint64
	fails   atomic.Uint64

	mu      sync.Mutex
	lastRun time.Time
	lastDur time.Duration
	lastErr string
}

type scheduleDef struct {
	name    string
	spec    string // cron expression or "@every <d>"
	every   time.Duration
	timeout time.Duration
	job     Job
	opt     TaskOptions
	state   *runState
	entryID cron.EntryID
}

type Service struct {
	log logx.Logger
	bus eventbus.Bus

	mu     sync.Mutex
	cfg    Config
	loc    *time.Location
	parser cron.Parser
	c      *cron.Cron
	defs   []*scheduleDef

	// ctx is the parent of every job context; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ScheduleInfo struct {
	Name     string
	Spec     string
	Timeout  time.Duration
	Next     time.Time
	Prev     time.Time
	Running  bool
	Runs     uint64
	Skips    uint64
	Failures uint64
	LastRun  time.Time
	LastDur  time.Duration
	LastErr  string
}

type Snapshot struct {
	Enabled   bool
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}
