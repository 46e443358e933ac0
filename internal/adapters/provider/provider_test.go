package provider

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/fleetpower/internal/adapters/cache"
	"github.com/okian/fleetpower/internal/adapters/chain/chaintest"
	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/internal/domain/fleet"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	alice = "0xfA7029fd4de9Aa319b24F4E4136946AAffA8F9e1"
	bob   = "0x1111111111111111111111111111111111111111"
	carol = "0x2222222222222222222222222222222222222222"
)

func chainConfig(name string) *config.Config {
	cfg := config.New(context.Background())
	cfg.Provider = name
	cfg.ShipContract = chaintest.ShipAddress
	cfg.GameContract = chaintest.GameAddress
	cfg.GemContract = chaintest.GemAddress
	cfg.TestAddress = alice
	cfg.RPCRatePerSec = 0
	return cfg
}

func testWorld() *chaintest.World {
	return chaintest.NewWorld().
		Mint(1, chaintest.Ship{Owner: alice, ImageID: 3, Level: 2, Staked: true}).
		Mint(2, chaintest.Ship{Owner: bob, ImageID: 13, Level: 5}).
		Mint(3, chaintest.Ship{Owner: alice, ImageID: 9, Level: 1}).
		Mint(4, chaintest.Ship{Owner: carol, ImageID: 5, Level: 1}).
		Mint(5, chaintest.Ship{Owner: carol, ImageID: 6, Level: 1}).
		Break(4).
		SetGems(alice, 3, 2, 1).
		SetReward(alice, big.NewInt(77))
}

func TestMockProvider(t *testing.T) {
	Convey("Given the mock provider", t, func() {
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		m := NewMock(WithMockClock(func() time.Time { return at }))

		Convey("It lists eight demo accounts", func() {
			holders, err := m.Holders(ctx)
			So(err, ShouldBeNil)
			So(len(holders), ShouldEqual, 8)
			So(m.Name(), ShouldEqual, config.ProviderMock)
		})

		Convey("Snapshots are deterministic", func() {
			holders, _ := m.Holders(ctx)
			a, err := m.Snapshot(ctx, holders[0])
			So(err, ShouldBeNil)
			b, _ := m.Snapshot(ctx, holders[0])
			So(a, ShouldResemble, b)
			So(len(a.Ships), ShouldEqual, 35)
			So(a.FetchedAt, ShouldEqual, at)
		})

		Convey("Mutating a returned snapshot does not leak", func() {
			holders, _ := m.Holders(ctx)
			a, _ := m.Snapshot(ctx, holders[7])
			a.Ships[0].Level = 99
			b, _ := m.Snapshot(ctx, holders[7])
			So(b.Ships[0].Level, ShouldNotEqual, 99)
		})

		Convey("An unknown account has an empty fleet", func() {
			s, err := m.Snapshot(ctx, carol)
			So(err, ShouldBeNil)
			So(len(s.Ships), ShouldEqual, 0)
		})

		Convey("A malformed address is rejected", func() {
			_, err := m.Snapshot(ctx, "0xnope")
			So(errors.Is(err, fleet.ErrInvalidAddress), ShouldBeTrue)
		})
	})
}

func TestLiveProvider(t *testing.T) {
	Convey("Given a live provider over a small collection", t, func() {
		ctx := context.Background()
		backend, err := testWorld().Backend()
		So(err, ShouldBeNil)

		cfg := chainConfig(config.ProviderLive)
		cfg.ScanLimit = 4
		cfg.BatchSize = 2
		p, err := New(cfg, backend)
		So(err, ShouldBeNil)

		Convey("Holders scans up to the scan limit and skips failed tokens", func() {
			holders, err := p.Holders(ctx)
			So(err, ShouldBeNil)
			So(holders, ShouldResemble, []string{common.HexToAddress(alice).Hex(), bob})
		})

		Convey("Snapshot reads image ids, levels, staking and gems", func() {
			s, err := p.Snapshot(ctx, alice)
			So(err, ShouldBeNil)
			So(s.Ships, ShouldResemble, []fleet.ShipAsset{
				fleet.NewShip(1, 3, 2, true),
				fleet.NewShip(3, 9, 1, false),
			})
			So(s.Ships[1].Rarity, ShouldEqual, fleet.Epic)
			So(s.Gems, ShouldResemble, fleet.GemHolding{Sapphire: 3, Sunstone: 2, Lithium: 1})
			So(s.PendingReward.Int64(), ShouldEqual, 77)
			So(s.StakedCount(), ShouldEqual, 1)
		})

		Convey("A cancelled context stops the scan", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := p.Holders(cctx)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given legacy image ids without gems", t, func() {
		backend, err := testWorld().Backend()
		So(err, ShouldBeNil)
		cfg := chainConfig(config.ProviderLive)
		cfg.ImageSource = config.ImageSourceLegacy
		cfg.IncludeGems = false
		cfg.GemContract = ""
		p, err := New(cfg, backend)
		So(err, ShouldBeNil)

		Convey("Ships derive image ids from token ids at level 1", func() {
			s, err := p.Snapshot(context.Background(), alice)
			So(err, ShouldBeNil)
			So(s.Ships, ShouldResemble, []fleet.ShipAsset{
				fleet.NewShip(1, 0, 1, true),
				fleet.NewShip(3, 2, 1, false),
			})
			So(s.Gems, ShouldResemble, fleet.GemHolding{})
		})
	})
}

func TestSingleProvider(t *testing.T) {
	Convey("Given the test provider", t, func() {
		backend, err := testWorld().Backend()
		So(err, ShouldBeNil)
		p, err := New(chainConfig(config.ProviderTest), backend)
		So(err, ShouldBeNil)

		Convey("Holders is exactly the configured account", func() {
			holders, err := p.Holders(context.Background())
			So(err, ShouldBeNil)
			So(holders, ShouldResemble, []string{common.HexToAddress(alice).Hex()})
		})

		Convey("Snapshot reads from chain", func() {
			s, err := p.Snapshot(context.Background(), alice)
			So(err, ShouldBeNil)
			So(len(s.Ships), ShouldEqual, 2)
		})
	})
}

func TestFactory(t *testing.T) {
	Convey("Given factory inputs", t, func() {
		Convey("An unknown name is ErrUnknownProvider", func() {
			cfg := config.New(context.Background())
			cfg.Provider = "graph"
			_, err := New(cfg, nil)
			So(errors.Is(err, ErrUnknownProvider), ShouldBeTrue)
		})

		Convey("Chain providers need a caller", func() {
			_, err := New(chainConfig(config.ProviderLive), nil)
			So(errors.Is(err, ErrNoChain), ShouldBeTrue)
		})

		Convey("Mock needs nothing", func() {
			p, err := New(config.New(context.Background()), nil)
			So(err, ShouldBeNil)
			So(p.Name(), ShouldEqual, config.ProviderMock)
		})
	})
}

type countingProvider struct {
	Provider
	snapshots atomic.Int32
}

func (c *countingProvider) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	c.snapshots.Add(1)
	return c.Provider.Snapshot(ctx, address)
}

func TestCachedProvider(t *testing.T) {
	Convey("Given a cached mock provider", t, func() {
		ctx := context.Background()
		inner := &countingProvider{Provider: NewMock()}
		p := NewCached(inner, cache.NewMemory(), time.Minute)
		holders, _ := p.Holders(ctx)

		Convey("The second read is served from cache", func() {
			a, err := p.Snapshot(ctx, holders[2])
			So(err, ShouldBeNil)
			b, err := p.Snapshot(ctx, holders[2])
			So(err, ShouldBeNil)
			So(inner.snapshots.Load(), ShouldEqual, 1)
			So(len(b.Ships), ShouldEqual, len(a.Ships))
			So(b.Ships[0], ShouldResemble, a.Ships[0])
		})

		Convey("Invalidate forces a fresh read", func() {
			_, _ = p.Snapshot(ctx, holders[2])
			So(p.Invalidate(ctx, holders[2]), ShouldBeNil)
			_, _ = p.Snapshot(ctx, holders[2])
			So(inner.snapshots.Load(), ShouldEqual, 2)
		})

		Convey("Errors are not cached", func() {
			_, err := p.Snapshot(ctx, "bad")
			So(err, ShouldNotBeNil)
			_, _ = p.Snapshot(ctx, "bad")
			So(inner.snapshots.Load(), ShouldEqual, 2)
		})
	})
}
