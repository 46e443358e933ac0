// Package history keeps past published leaderboards.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/okian/fleetpower/internal/domain/ranking"
)

// ErrInvalidLimit is returned by Recent for limit < 1.
var ErrInvalidLimit = errors.New("invalid history limit")

// Record is one published board.
type Record struct {
	RunID       string          `bson:"run_id" json:"run_id"`
	Version     uint64          `bson:"version" json:"version"`
	GeneratedAt time.Time       `bson:"generated_at" json:"generated_at"`
	Total       int             `bson:"total" json:"total"`
	Entries     []ranking.Entry `bson:"entries" json:"entries"`
}

// Sink stores and reads back board records.
type Sink interface {
	Write(ctx context.Context, r Record) error
	// Recent returns at most limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close(ctx context.Context) error
}

// Noop discards records. Used when history is disabled.
type Noop struct{}

func (Noop) Write(context.Context, Record) error { return nil }

func (Noop) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	return []Record{}, nil
}

func (Noop) Close(context.Context) error { return nil }
