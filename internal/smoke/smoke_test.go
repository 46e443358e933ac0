package smoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fleetpower/internal/adapters/http/api"
	"github.com/okian/fleetpower/internal/adapters/provider"
	service "github.com/okian/fleetpower/internal/app"
	"github.com/okian/fleetpower/internal/domain/ranking"
)

func startServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	ctx := context.Background()
	svc := service.New(provider.NewMock(),
		service.WithWorkerCount(2),
		service.WithRefreshInterval(0),
		service.WithSnapshotInterval(10*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for svc.GetStats()["rankedAccounts"] != 8 {
		if time.Now().After(deadline) {
			t.Fatal("board never published")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(ctx, mux)
	srv := httptest.NewServer(api.RequestIDMiddleware(mux))
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv, svc
}

func TestRun(t *testing.T) {
	Convey("Given a running server over the mock provider", t, func() {
		srv, _ := startServer(t)

		Convey("A read-only run verifies every row", func() {
			stats, err := Run(context.Background(), Config{BaseURL: srv.URL, TopN: 5, Workers: 2})
			So(err, ShouldBeNil)
			So(stats.Rows, ShouldEqual, 5)
			So(stats.Checked, ShouldEqual, 5)
			So(stats.OK(), ShouldBeTrue)
		})

		Convey("A refresh run queues the listed accounts", func() {
			stats, err := Run(context.Background(), Config{BaseURL: srv.URL, TopN: 3, Refresh: true})
			So(err, ShouldBeNil)
			So(stats.Queued+stats.Duplicates, ShouldEqual, 3)
			So(stats.Rejected, ShouldEqual, 0)
		})
	})
}

func TestRunDetectsMismatch(t *testing.T) {
	Convey("Given a server whose rank endpoint disagrees with its leaderboard", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {})
		mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"entries":[{"rank":1,"address":"0xa","total_power":900},{"rank":2,"address":"0xb","total_power":500}],"total":2}`))
		})
		mux.HandleFunc("/rank/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"rank":3,"address":"0xb","total_power":10}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		stats, err := Run(context.Background(), Config{BaseURL: srv.URL, TopN: 2})

		Convey("The run fails with the mismatches listed", func() {
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
			So(stats.Mismatches, ShouldEqual, 2)
			So(stats.Problems, ShouldHaveLength, 2)
		})
	})

	Convey("Given an unhealthy server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := Run(context.Background(), Config{BaseURL: srv.URL})
		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})
}

func TestVerifyOrdering(t *testing.T) {
	Convey("Given ranked rows", t, func() {
		Convey("Ties share a rank", func() {
			rows := []ranking.Entry{
				{Rank: 1, TotalPower: 900},
				{Rank: 2, TotalPower: 500},
				{Rank: 2, TotalPower: 500},
				{Rank: 4, TotalPower: 100},
			}
			So(VerifyOrdering(rows), ShouldBeEmpty)
		})

		Convey("Out-of-order power is reported", func() {
			rows := []ranking.Entry{
				{Rank: 1, TotalPower: 100},
				{Rank: 2, TotalPower: 900},
			}
			So(VerifyOrdering(rows), ShouldHaveLength, 1)
		})

		Convey("A wrong rank is reported", func() {
			rows := []ranking.Entry{
				{Rank: 1, TotalPower: 900},
				{Rank: 3, TotalPower: 500},
			}
			So(VerifyOrdering(rows), ShouldHaveLength, 1)
		})
	})
}
