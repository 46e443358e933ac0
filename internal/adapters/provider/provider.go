// Package provider supplies owned-asset snapshots and the set of accounts
// eligible for the leaderboard.
package provider

import (
	"context"

	"github.com/okian/fleetpower/internal/domain/fleet"
)

// Provider is a swappable snapshot backend.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Holders returns the accounts to rank, in discovery order.
	Holders(ctx context.Context) ([]string, error)
	// Snapshot reads the current assets of one account.
	Snapshot(ctx context.Context, address string) (fleet.Snapshot, error)
}
