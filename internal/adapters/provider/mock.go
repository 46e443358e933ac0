package provider

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/pkg/metrics"
)

// demoFleet describes a generated account.
type demoFleet struct {
	address string
	ships   int
	levels  []int // cycled over the ships
	stakeN  int   // every stakeN-th ship is staked; 0 stakes none
	gems    fleet.GemHolding
}

var demoFleets = []demoFleet{
	{"0x1a2B00000000000000000000000000000000c3d4", 35, []int{5, 5, 5, 5, 4}, 1, fleet.GemHolding{Sapphire: 40, Sunstone: 30, Lithium: 25}},
	{"0x5e6F000000000000000000000000000000007a8b", 28, []int{4, 4, 4, 5, 4}, 2, fleet.GemHolding{Sapphire: 25, Sunstone: 20, Lithium: 15}},
	{"0x9c0D000000000000000000000000000000001e2f", 22, []int{4, 4, 4, 3, 5}, 2, fleet.GemHolding{Sapphire: 20, Sunstone: 12, Lithium: 8}},
	{"0x3a4B000000000000000000000000000000005c6d", 18, []int{3, 4, 3, 4}, 3, fleet.GemHolding{Sapphire: 12, Sunstone: 8, Lithium: 5}},
	{"0x7e8F000000000000000000000000000000009a0b", 15, []int{4, 4, 4, 3, 4}, 3, fleet.GemHolding{Sapphire: 10, Sunstone: 5, Lithium: 3}},
	{"0xa12B000000000000000000000000000000003c4d", 12, []int{3, 3, 4, 3, 3}, 4, fleet.GemHolding{Sapphire: 6, Sunstone: 4}},
	{"0x5f6A000000000000000000000000000000007b8c", 10, []int{3, 3, 3, 2, 3}, 5, fleet.GemHolding{Sapphire: 4, Sunstone: 2}},
	{"0x9d0E000000000000000000000000000000001f2a", 8, []int{2, 3, 2, 3}, 0, fleet.GemHolding{Sapphire: 2}},
}

// Mock serves deterministic fleets for a fixed list of demo accounts.
type Mock struct {
	snapshots map[string]fleet.Snapshot
	order     []string
	now       func() time.Time
}

// MockOption configures Mock.
type MockOption func(*Mock)

// WithMockClock overrides the FetchedAt time source.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *Mock) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMock builds the demo accounts.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{snapshots: make(map[string]fleet.Snapshot), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	var next uint64 = 1
	for _, d := range demoFleets {
		ships := make([]fleet.ShipAsset, 0, d.ships)
		for i := 0; i < d.ships; i++ {
			imageID := int((next - 1) % 15)
			staked := d.stakeN > 0 && i%d.stakeN == 0
			ships = append(ships, fleet.NewShip(next, imageID, d.levels[i%len(d.levels)], staked))
			next++
		}
		addr, _ := fleet.NormalizeAddress(d.address)
		m.order = append(m.order, addr)
		m.snapshots[normalize(addr)] = fleet.Snapshot{
			Address:       addr,
			Ships:         ships,
			Gems:          d.gems,
			PendingReward: new(big.Int),
		}
	}
	return m
}

func (m *Mock) Name() string { return config.ProviderMock }

func (m *Mock) Holders(_ context.Context) ([]string, error) {
	return append([]string(nil), m.order...), nil
}

// Snapshot returns the demo fleet for address, or an empty fleet for any
// other valid account.
func (m *Mock) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return fleet.Snapshot{}, err
	}
	addr, err := fleet.NormalizeAddress(address)
	if err != nil {
		return fleet.Snapshot{}, fmt.Errorf("mock snapshot %q: %w", address, err)
	}
	snap, ok := m.snapshots[normalize(addr)]
	if !ok {
		snap = fleet.Snapshot{Address: addr, PendingReward: new(big.Int)}
	}
	snap.Ships = append([]fleet.ShipAsset(nil), snap.Ships...)
	snap.FetchedAt = m.now()
	metrics.RecordSnapshotFetched(m.Name())
	return snap, nil
}
