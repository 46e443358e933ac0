package fleet_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/okian/fleetpower/internal/domain/fleet"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRarityFromImageID(t *testing.T) {
	Convey("Given the image id buckets", t, func() {
		cases := map[int]fleet.Rarity{
			0: fleet.Common, 4: fleet.Common,
			5: fleet.Rare, 8: fleet.Rare,
			9: fleet.Epic, 12: fleet.Epic,
			13: fleet.Legendary, 14: fleet.Legendary,
			15: fleet.Common, -3: fleet.Common, 255: fleet.Common,
		}

		Convey("Then every boundary maps to its tier", func() {
			for id, want := range cases {
				So(fleet.RarityFromImageID(id), ShouldEqual, want)
			}
		})
	})
}

func TestLegacyImageID(t *testing.T) {
	Convey("Given token ids from both mint batches", t, func() {
		Convey("Then genesis tokens use the first offset", func() {
			So(fleet.LegacyImageID(1), ShouldEqual, 0)
			So(fleet.LegacyImageID(15), ShouldEqual, 14)
			So(fleet.LegacyImageID(16), ShouldEqual, 0)
			So(fleet.LegacyImageID(20), ShouldEqual, 4)
		})

		Convey("Then later tokens use the second offset", func() {
			So(fleet.LegacyImageID(1787), ShouldEqual, 0)
			So(fleet.LegacyImageID(1801), ShouldEqual, 14)
			So(fleet.LegacyImageID(1802), ShouldEqual, 0)
		})

		Convey("Then tokens between the batches derive a negative id that scores as Common", func() {
			id := fleet.LegacyImageID(21)
			So(id, ShouldBeLessThan, 0)
			So(fleet.RarityFromImageID(id), ShouldEqual, fleet.Common)
		})
	})
}

func TestRarityJSON(t *testing.T) {
	Convey("Given a ship with a rarity", t, func() {
		ship := fleet.NewShip(7, 13, 2, true)

		Convey("When it is marshalled", func() {
			b, err := json.Marshal(ship)
			So(err, ShouldBeNil)

			Convey("Then the rarity is written by name", func() {
				So(string(b), ShouldContainSubstring, `"rarity":"Legendary"`)
			})
		})

		Convey("When rarity arrives as a number or an unknown name", func() {
			var a, b fleet.ShipAsset
			So(json.Unmarshal([]byte(`{"rarity":2}`), &a), ShouldBeNil)
			So(json.Unmarshal([]byte(`{"rarity":"mythic"}`), &b), ShouldBeNil)

			Convey("Then numbers decode directly and unknown names fall back to Common", func() {
				So(a.Rarity, ShouldEqual, fleet.Epic)
				So(b.Rarity, ShouldEqual, fleet.Common)
			})
		})
	})
}

func TestGemHolding(t *testing.T) {
	Convey("Given a gem holding", t, func() {
		h := fleet.GemHolding{}.With(fleet.Sapphire, 2).With(fleet.Lithium, 5)

		Convey("Then counts are read back by kind", func() {
			So(h.Count(fleet.Sapphire), ShouldEqual, 2)
			So(h.Count(fleet.Sunstone), ShouldEqual, 0)
			So(h.Count(fleet.Lithium), ShouldEqual, 5)
			So(h.Count(fleet.GemKind(9)), ShouldEqual, 0)
			So(fleet.Sunstone.TokenID().Int64(), ShouldEqual, 2)
		})
	})
}

func TestFormatting(t *testing.T) {
	Convey("Given account addresses", t, func() {
		Convey("Then ShortAddress keeps the prefix and last four characters", func() {
			So(fleet.ShortAddress("0xfA7029fd4de9Aa319b24F4E4136946AAffA8F9e1"), ShouldEqual, "0xfA70...F9e1")
			So(fleet.ShortAddress("0x12"), ShouldEqual, "0x12")
		})

		Convey("Then NormalizeAddress checksums valid input and rejects garbage", func() {
			got, err := fleet.NormalizeAddress(" 0xfa7029fd4de9aa319b24f4e4136946aaffa8f9e1 ")
			So(err, ShouldBeNil)
			So(fleet.SameAddress(got, "0xFA7029FD4DE9AA319B24F4E4136946AAFFA8F9E1"), ShouldBeTrue)

			_, err = fleet.NormalizeAddress("not-an-address")
			So(errors.Is(err, fleet.ErrInvalidAddress), ShouldBeTrue)
		})
	})

	Convey("Given raw token amounts", t, func() {
		wei, _ := new(big.Int).SetString("1234567890000000000", 10)

		Convey("Then four decimals are kept without rounding", func() {
			So(fleet.FormatTokenAmount(wei, 18), ShouldEqual, "1.2345")
			So(fleet.FormatTokenAmount(big.NewInt(0), 18), ShouldEqual, "0.0000")
			So(fleet.FormatTokenAmount(nil, 18), ShouldEqual, "0.0000")
			So(fleet.FormatTokenAmount(big.NewInt(15), 1), ShouldEqual, "1.5")
		})
	})
}
