package provider

import (
	"context"

	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/pkg/metrics"
)

// Live ranks every holder found by scanning the ship collection.
type Live struct {
	reader    *Reader
	scanLimit int
	batchSize int
}

// NewLive creates the on-chain scanning provider.
func NewLive(r *Reader, scanLimit, batchSize int) *Live {
	return &Live{reader: r, scanLimit: scanLimit, batchSize: batchSize}
}

func (l *Live) Name() string { return config.ProviderLive }

func (l *Live) Holders(ctx context.Context) ([]string, error) {
	holders, err := l.reader.Holders(ctx, l.scanLimit, l.batchSize)
	if err != nil {
		metrics.RecordProviderError(l.Name(), "holders")
		return nil, err
	}
	return holders, nil
}

func (l *Live) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	return readSnapshot(ctx, l.Name(), l.reader, address)
}

// Single ranks one configured account read from chain.
type Single struct {
	reader  *Reader
	address string
}

// NewSingle creates the test provider for address.
func NewSingle(r *Reader, address string) *Single {
	if addr, err := fleet.NormalizeAddress(address); err == nil {
		address = addr
	}
	return &Single{reader: r, address: address}
}

func (s *Single) Name() string { return config.ProviderTest }

func (s *Single) Holders(_ context.Context) ([]string, error) {
	return []string{s.address}, nil
}

func (s *Single) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	return readSnapshot(ctx, s.Name(), s.reader, address)
}

func readSnapshot(ctx context.Context, name string, r *Reader, address string) (fleet.Snapshot, error) {
	snap, err := r.Snapshot(ctx, address)
	if err != nil {
		metrics.RecordProviderError(name, "snapshot")
		return fleet.Snapshot{}, err
	}
	metrics.RecordSnapshotFetched(name)
	return snap, nil
}
