package provider

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Reader builds snapshots from contract reads. It is shared by the test and
// live providers.
type Reader struct {
	ship *chain.ShipNFT
	game *chain.GameController
	gem  *chain.GemNFT

	imageSource string
	concurrency int
	limiter     *rate.Limiter
	log         logger.Logger
	now         func() time.Time
}

// ReaderOption configures Reader.
type ReaderOption func(*Reader)

// WithImageSource selects chain or legacy image ids.
func WithImageSource(source string) ReaderOption {
	return func(r *Reader) {
		if source != "" {
			r.imageSource = source
		}
	}
}

// WithGems enables gem balance reads. A nil binding disables them.
func WithGems(gem *chain.GemNFT) ReaderOption {
	return func(r *Reader) { r.gem = gem }
}

// WithRate paces contract calls to perSec; 0 disables pacing.
func WithRate(perSec float64) ReaderOption {
	return func(r *Reader) {
		if perSec > 0 {
			burst := int(perSec)
			if burst < 1 {
				burst = 1
			}
			r.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		} else {
			r.limiter = nil
		}
	}
}

// WithConcurrency bounds parallel per-token reads.
func WithConcurrency(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithReaderLogger sets the logger.
func WithReaderLogger(l logger.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithReaderClock overrides the FetchedAt time source.
func WithReaderClock(now func() time.Time) ReaderOption {
	return func(r *Reader) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReader creates a snapshot reader over ship and game bindings.
func NewReader(ship *chain.ShipNFT, game *chain.GameController, opts ...ReaderOption) *Reader {
	r := &Reader{
		ship:        ship,
		game:        game,
		imageSource: config.ImageSourceChain,
		concurrency: 8,
		log:         logger.Get().Named("reader"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) wait(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Snapshot reads the assets of address.
func (r *Reader) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	addr, err := fleet.NormalizeAddress(address)
	if err != nil {
		return fleet.Snapshot{}, fmt.Errorf("snapshot %q: %w", address, err)
	}

	if err := r.wait(ctx); err != nil {
		return fleet.Snapshot{}, err
	}
	status, err := r.game.Status(ctx, addr)
	if err != nil {
		return fleet.Snapshot{}, fmt.Errorf("snapshot %s: %w", addr, err)
	}

	ships, err := r.ships(ctx, status)
	if err != nil {
		return fleet.Snapshot{}, fmt.Errorf("snapshot %s: %w", addr, err)
	}

	var gems fleet.GemHolding
	if r.gem != nil {
		if err := r.wait(ctx); err != nil {
			return fleet.Snapshot{}, err
		}
		gems, err = r.gem.Holding(ctx, addr)
		if err != nil {
			return fleet.Snapshot{}, fmt.Errorf("snapshot %s: %w", addr, err)
		}
	}

	if err := r.wait(ctx); err != nil {
		return fleet.Snapshot{}, err
	}
	reward, err := r.game.PendingReward(ctx, addr)
	if err != nil {
		// Rewards do not affect power.
		r.log.Warn(ctx, "pending reward read failed", logger.Address(addr), logger.Error(err))
		reward = new(big.Int)
	}

	snap := fleet.Snapshot{
		Address:       addr,
		Ships:         ships,
		Gems:          gems,
		PendingReward: reward,
		FetchedAt:     r.now(),
	}
	r.log.Debug(ctx, "snapshot read",
		logger.Address(addr),
		logger.Int("ships", len(ships)),
		logger.Int("staked", snap.StakedCount()),
	)
	return snap, nil
}

func (r *Reader) ships(ctx context.Context, status chain.NFTStatus) ([]fleet.ShipAsset, error) {
	ships := make([]fleet.ShipAsset, len(status.All))
	if r.imageSource == config.ImageSourceLegacy {
		for i, id := range status.All {
			ships[i] = fleet.NewShip(id, fleet.LegacyImageID(id), 1, status.IsStaked(id))
		}
		return ships, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range status.All {
		g.Go(func() error {
			if err := r.wait(gctx); err != nil {
				return err
			}
			img, err := r.game.ImageID(gctx, id)
			if err != nil {
				return err
			}
			if err := r.wait(gctx); err != nil {
				return err
			}
			lvl, err := r.game.LevelOf(gctx, id)
			if err != nil {
				return err
			}
			ships[i] = fleet.NewShip(id, int(img), int(lvl), status.IsStaked(id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ships, nil
}

// Holders scans token ids 1..min(totalSupply, limit) in batches and returns
// distinct owners in first-seen order. Tokens whose owner cannot be read are
// skipped.
func (r *Reader) Holders(ctx context.Context, limit, batchSize int) ([]string, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	supply, err := r.ship.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("holder scan: %w", err)
	}
	total := supply
	if limit > 0 && uint64(limit) < total {
		total = uint64(limit)
	}
	if batchSize < 1 {
		batchSize = 1
	}

	seen := make(map[string]struct{})
	var holders []string
	skipped := 0

	for start := uint64(1); start <= total; start += uint64(batchSize) {
		end := min(start+uint64(batchSize)-1, total)
		owners := make([]string, end-start+1)

		g, gctx := errgroup.WithContext(ctx)
		for id := start; id <= end; id++ {
			g.Go(func() error {
				if err := r.wait(gctx); err != nil {
					return err
				}
				owner, err := r.ship.OwnerOf(gctx, id)
				if err != nil {
					r.log.Debug(gctx, "token skipped", logger.Uint64("token_id", id), logger.Error(err))
					return nil
				}
				owners[id-start] = owner
				return nil
			})
		}
		// Only context errors escape the batch.
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("holder scan: %w", err)
		}

		for _, owner := range owners {
			if owner == "" {
				skipped++
				continue
			}
			key := normalize(owner)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			holders = append(holders, owner)
		}
		r.log.Debug(ctx, "holder batch scanned",
			logger.Uint64("from", start), logger.Uint64("to", end), logger.Int("holders", len(holders)))
	}

	metrics.RecordHolderScan(int(total), skipped)
	r.log.Info(ctx, "holder scan complete",
		logger.Uint64("supply", supply), logger.Uint64("scanned", total),
		logger.Int("skipped", skipped), logger.Int("holders", len(holders)))
	return holders, nil
}
