// Package repository holds the leaderboard state and its published ranked view.
package repository

import (
	"context"
	"time"

	"github.com/okian/fleetpower/internal/domain/ranking"
)

// Store provides read/write access to the leaderboard.
//
// Writes land in an insertion-ordered working set. Reads are served from the
// latest published Board, so a write becomes visible after the next Publish.
type Store interface {
	// Upsert inserts or replaces the entry for e.Address. An existing account
	// keeps its original position for tie ordering. Returns true when the
	// stored row changed.
	Upsert(ctx context.Context, e ranking.Entry) (bool, error)

	// Remove drops an account. Returns true when it was present.
	Remove(ctx context.Context, address string) (bool, error)

	// Rank returns the published entry for address or ErrNotFound.
	Rank(ctx context.Context, address string) (ranking.Entry, error)

	// TopN returns up to n published entries; n < 1 is ErrInvalidLimit.
	TopN(ctx context.Context, n int) ([]ranking.Entry, error)

	// Leaderboard ranks current together with the published entries and
	// returns the top n plus the current user's ranked row.
	Leaderboard(ctx context.Context, n int, current *ranking.Entry) (View, error)

	// Count returns the number of accounts in the working set.
	Count(ctx context.Context) int

	// Board returns the latest published board.
	Board(ctx context.Context) *Board

	// Publish ranks the working set and swaps it in as the published board.
	Publish(ctx context.Context) *Board
}

// Board is an immutable ranked leaderboard.
type Board struct {
	Entries     []ranking.Entry
	Version     uint64
	GeneratedAt time.Time

	index map[string]int // lower-case address -> position in Entries
}

// Lookup returns the ranked entry for an address.
func (b *Board) Lookup(address string) (ranking.Entry, bool) {
	if b == nil {
		return ranking.Entry{}, false
	}
	i, ok := b.index[normalize(address)]
	if !ok {
		return ranking.Entry{}, false
	}
	return b.Entries[i], true
}

// TierCounts returns how many accounts sit in each tier.
func (b *Board) TierCounts() map[string]int {
	out := make(map[string]int)
	if b == nil {
		return out
	}
	for _, e := range b.Entries {
		out[e.Tier]++
	}
	return out
}

// View is a leaderboard page with the requesting account's row.
type View struct {
	Entries     []ranking.Entry `json:"entries"`
	Current     *ranking.Entry  `json:"current,omitempty"`
	Total       int             `json:"total"`
	GeneratedAt time.Time       `json:"generated_at"`
}
