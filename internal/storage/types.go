package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled      = errors.New("storage disabled")
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Config selects the backend.
//
// Driver values:
//   - "file": JSON Lines file
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means 5s
}

// Delivery is one reminder handed to the chat successfully.
type Delivery struct {
	At       time.Time `json:"at"`
	Source   string    `json:"source"`
	Line     int       `json:"line"`
	Task     string    `json:"task"`
	DueAt    time.Time `json:"due_at"`
	ChatID   int64     `json:"chat_id,omitempty"`
	ThreadID int       `json:"thread_id,omitempty"`
}

// Store is the persistence API used by the app.
type Store interface {
	AppendDelivery(ctx context.Context, d Delivery) error
	// RecentDeliveries returns up to limit entries, newest first.
	RecentDeliveries(ctx context.Context, limit int) ([]Delivery, error)
	Close() error
}
