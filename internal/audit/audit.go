// Package audit keeps a summary of every completed analysis: who uploaded
// what, which column was classified and how the labels were distributed.
// Row content is never stored.
//
// The log is optional. Without a database the service runs with NopStore
// and the analysis history endpoints report the log as disabled.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by NopStore reads.
var ErrDisabled = errors.New("audit log disabled")

// DefaultRecentLimit is used when a caller asks for a non-positive limit.
const DefaultRecentLimit = 50

// MaxRecentLimit caps a single Recent call.
const MaxRecentLimit = 500

// Record is the stored summary of one analysis.
type Record struct {
	ID         string    `json:"id" db:"id"`
	FileName   string    `json:"fileName" db:"file_name"`
	TextColumn string    `json:"textColumn" db:"text_column"`
	Delimiter  string    `json:"delimiter" db:"delimiter"`
	Rows       int       `json:"rows" db:"rows"`
	Dropped    int       `json:"dropped" db:"dropped"`
	Positive   int       `json:"positive" db:"positive"`
	Negative   int       `json:"negative" db:"negative"`
	Neutral    int       `json:"neutral" db:"neutral"`
	DurationMS int64     `json:"durationMs" db:"duration_ms"`
	IPAddress  string    `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  string    `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Store persists analysis records.
type Store interface {
	Record(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NopStore discards writes and reports ErrDisabled on reads.
type NopStore struct{}

func (NopStore) Record(context.Context, Record) error { return nil }

func (NopStore) Recent(context.Context, int) ([]Record, error) { return nil, ErrDisabled }

func (NopStore) PurgeOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

// Enabled reports whether s actually stores records.
func Enabled(s Store) bool {
	if s == nil {
		return false
	}
	_, nop := s.(NopStore)
	return !nop
}

// clampLimit applies the Recent limit defaults.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
