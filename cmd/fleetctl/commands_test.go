package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fleetpower/internal/adapters/provider"
	"github.com/okian/fleetpower/internal/domain/ranking"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--provider", "mock"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFleetctl(t *testing.T) {
	Convey("Given the fleetctl root command", t, func() {
		Convey("tiers lists every threshold", func() {
			out, err := run("tiers")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Galactic Ruler")
			So(out, ShouldContainSubstring, "Space Recruit")
		})

		Convey("board ranks the demo fleets", func() {
			out, err := run("board", "--json", "--limit", "3")
			So(err, ShouldBeNil)

			var rows []ranking.Entry
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[0].TotalPower, ShouldBeGreaterThanOrEqualTo, rows[1].TotalPower)
			So(rows[1].TotalPower, ShouldBeGreaterThanOrEqualTo, rows[2].TotalPower)
		})

		Convey("board prints a table by default", func() {
			out, err := run("board")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "RANK")
		})

		Convey("score prints one account", func() {
			out, err := run("score", "0x1a2B00000000000000000000000000000000c3d4")
			So(err, ShouldBeNil)

			var got struct {
				TotalPower int64  `json:"total_power"`
				FleetCount int    `json:"fleet_count"`
				Tier       string `json:"tier"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.FleetCount, ShouldEqual, 35)
			So(got.TotalPower, ShouldBeGreaterThan, 0)
			So(got.Tier, ShouldNotBeEmpty)
		})

		Convey("score rejects a malformed address", func() {
			_, err := run("score", "nope")
			So(err, ShouldNotBeNil)
		})

		Convey("an unknown provider fails", func() {
			var out bytes.Buffer
			cmd := newRootCmd(&out)
			cmd.SetArgs([]string{"--provider", "carrier-pigeon", "tiers"})
			So(cmd.ExecuteContext(context.Background()), ShouldBeNil)

			cmd = newRootCmd(&out)
			cmd.SetArgs([]string{"--provider", "carrier-pigeon", "board"})
			So(cmd.ExecuteContext(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestScanBoard(t *testing.T) {
	Convey("Given the mock provider", t, func() {
		board, err := scanBoard(context.Background(), provider.NewMock(), 4)

		Convey("Every demo fleet is ranked", func() {
			So(err, ShouldBeNil)
			So(board, ShouldHaveLength, 8)
			for i := 1; i < len(board); i++ {
				So(board[i-1].TotalPower, ShouldBeGreaterThanOrEqualTo, board[i].TotalPower)
			}
		})
	})
}
