package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/adapters/chain/chaintest"
	"github.com/okian/fleetpower/internal/domain/fleet"
)

const (
	alice = "0xfA7029fd4de9Aa319b24F4E4136946AAffA8F9e1"
	bob   = "0x1111111111111111111111111111111111111111"
)

func TestContracts(t *testing.T) {
	Convey("Given a world with two captains", t, func() {
		ctx := context.Background()
		world := chaintest.NewWorld().
			Mint(1, chaintest.Ship{Owner: alice, ImageID: 3, Level: 2, Staked: true}).
			Mint(2, chaintest.Ship{Owner: bob, ImageID: 13, Level: 5}).
			Mint(3, chaintest.Ship{Owner: alice, ImageID: 9, Level: 1}).
			SetGems(alice, 4, 2, 1).
			SetReward(alice, big.NewInt(1234))
		c, backend, err := world.Contracts()
		So(err, ShouldBeNil)

		Convey("The ship collection reports supply and owners", func() {
			supply, err := c.Ship.TotalSupply(ctx)
			So(err, ShouldBeNil)
			So(supply, ShouldEqual, 3)

			owner, err := c.Ship.OwnerOf(ctx, 2)
			So(err, ShouldBeNil)
			So(owner, ShouldEqual, "0x1111111111111111111111111111111111111111")

			n, err := c.Ship.BalanceOf(ctx, alice)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("A missing token is an error that names the method", func() {
			_, err := c.Ship.OwnerOf(ctx, 99)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "ship.ownerOf")
		})

		Convey("The controller returns the staking split", func() {
			st, err := c.Game.Status(ctx, alice)
			So(err, ShouldBeNil)
			So(st.All, ShouldResemble, []uint64{1, 3})
			So(st.Staked, ShouldResemble, []uint64{1})
			So(st.Unstaked, ShouldResemble, []uint64{3})
			So(st.IsStaked(1), ShouldBeTrue)
			So(st.IsStaked(3), ShouldBeFalse)
		})

		Convey("Per-token reads decode uint8 results", func() {
			lvl, err := c.Game.LevelOf(ctx, 2)
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, 5)

			img, err := c.Game.ImageID(ctx, 2)
			So(err, ShouldBeNil)
			So(img, ShouldEqual, 13)
		})

		Convey("Rewards and gems are read per account", func() {
			r, err := c.Game.PendingReward(ctx, alice)
			So(err, ShouldBeNil)
			So(r.Int64(), ShouldEqual, 1234)

			h, err := c.Gem.Holding(ctx, alice)
			So(err, ShouldBeNil)
			So(h, ShouldResemble, fleet.GemHolding{Sapphire: 4, Sunstone: 2, Lithium: 1})
		})

		Convey("Upgrade costs come back as four amounts", func() {
			cost, err := c.Game.UpgradeCost(ctx, 2)
			So(err, ShouldBeNil)
			So(cost.FromLevel, ShouldEqual, 2)
			So(cost.Sapphire.Int64(), ShouldEqual, 2)
			So(fleet.FormatTokenAmount(cost.Fuel, 18), ShouldEqual, "200.0000")

			_, err = c.Game.UpgradeCost(ctx, 5)
			So(err, ShouldNotBeNil)
		})

		Convey("Every read goes through the backend", func() {
			before := backend.Calls()
			_, _ = c.Ship.TotalSupply(ctx)
			So(backend.Calls(), ShouldEqual, before+1)
		})

		Convey("A cancelled context fails the call", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Ship.TotalSupply(cctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestBindValidation(t *testing.T) {
	Convey("Given a malformed contract address", t, func() {
		_, err := chain.Bind(chaintest.NewBackend(), "not-an-address", chaintest.GameAddress, chaintest.GemAddress)

		Convey("Binding fails with ErrInvalidContract", func() {
			So(errors.Is(err, chain.ErrInvalidContract), ShouldBeTrue)
		})
	})

	Convey("Given a contract with no code", t, func() {
		ship, err := chain.NewShipNFT(chaintest.ShipAddress, chaintest.NewBackend())
		So(err, ShouldBeNil)

		Convey("Calls fail instead of returning zero values", func() {
			_, err := ship.TotalSupply(context.Background())
			So(err, ShouldNotBeNil)
		})
	})
}
