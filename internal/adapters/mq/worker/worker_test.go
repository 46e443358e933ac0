package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/fleetpower/internal/adapters/mq/queue"
	"github.com/okian/fleetpower/internal/adapters/mq/worker"
	"github.com/okian/fleetpower/internal/domain/dedupe"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/internal/domain/model"
	"github.com/okian/fleetpower/internal/domain/power"
	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/smartystreets/goconvey/convey"
)

type mockFetcher struct {
	mu     sync.Mutex
	fleets map[string][]fleet.ShipAsset
	errs   map[string]error
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{fleets: map[string][]fleet.ShipAsset{}, errs: map[string]error{}}
}

func (m *mockFetcher) set(addr string, ships ...fleet.ShipAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleets[addr] = ships
}

func (m *mockFetcher) fail(addr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[addr] = err
}

func (m *mockFetcher) Snapshot(_ context.Context, addr string) (fleet.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[addr]; ok {
		return fleet.Snapshot{}, err
	}
	return fleet.Snapshot{Address: addr, Ships: m.fleets[addr], FetchedAt: time.Now()}, nil
}

type mockUpdater struct {
	mu      sync.Mutex
	entries map[string]ranking.Entry
	removed []string
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{entries: map[string]ranking.Entry{}}
}

func (m *mockUpdater) Upsert(_ context.Context, e ranking.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[strings.ToLower(e.Address)] = e
	return true, nil
}

func (m *mockUpdater) Remove(_ context.Context, addr string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[strings.ToLower(addr)]
	delete(m.entries, strings.ToLower(addr))
	m.removed = append(m.removed, addr)
	return ok, nil
}

func (m *mockUpdater) get(addr string) (ranking.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[strings.ToLower(addr)]
	return e, ok
}

func legendary() fleet.ShipAsset {
	return fleet.ShipAsset{Rarity: fleet.Legendary, Level: 5, Staked: true}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		fetcher := newMockFetcher()
		updater := newMockUpdater()
		tracker := dedupe.NewTracker()
		pool := worker.NewPool(2, q, fetcher, power.NewCalculator(), updater, worker.WithReleaser(tracker))
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		convey.Convey("When a job for an account with ships is processed", func() {
			fetcher.set("0xA", legendary())
			tracker.Mark(ctx, "0xA")
			convey.So(q.Enqueue(ctx, model.NewJob("0xA", model.ReasonManual, "")), convey.ShouldBeNil)

			convey.Convey("Then the scored entry is stored and the mark released", func() {
				convey.So(waitFor(func() bool { _, ok := updater.get("0xA"); return ok }), convey.ShouldBeTrue)
				e, _ := updater.get("0xA")
				convey.So(e.TotalPower, convey.ShouldEqual, 2880)
				convey.So(e.Tier, convey.ShouldEqual, "Frigate Captain")
				convey.So(waitFor(func() bool { return !tracker.Pending("0xA") }), convey.ShouldBeTrue)
				convey.So(pool.Stats().Processed, convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When an account has no power", func() {
			_, _ = updater.Upsert(ctx, ranking.Entry{Address: "0xB", TotalPower: 10})
			convey.So(q.Enqueue(ctx, model.NewJob("0xB", model.ReasonRefresh, "run")), convey.ShouldBeNil)

			convey.Convey("Then it is removed from the board", func() {
				convey.So(waitFor(func() bool { _, ok := updater.get("0xB"); return !ok }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool { return pool.Stats().Removed == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the snapshot cannot be fetched", func() {
			fetcher.fail("0xC", errors.New("rpc down"))
			tracker.Mark(ctx, "0xC")
			convey.So(q.Enqueue(ctx, model.NewJob("0xC", model.ReasonManual, "")), convey.ShouldBeNil)

			convey.Convey("Then the failure is counted and the mark still released", func() {
				convey.So(waitFor(func() bool { return pool.Stats().Failed == 1 }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool { return !tracker.Pending("0xC") }), convey.ShouldBeTrue)
				_, ok := updater.get("0xC")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestPoolShutdownDrains(t *testing.T) {
	convey.Convey("Given queued jobs and a stopped pool", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		fetcher := newMockFetcher()
		updater := newMockUpdater()
		for _, a := range []string{"0x1", "0x2", "0x3"} {
			fetcher.set(a, legendary())
			convey.So(q.Enqueue(ctx, model.NewJob(a, model.ReasonRefresh, "")), convey.ShouldBeNil)
		}
		pool := worker.NewPool(1, q, fetcher, power.NewCalculator(), updater)

		convey.Convey("When the pool is started and shut down", func() {
			pool.Start(ctx)
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued job was processed before exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Stats().Processed, convey.ShouldEqual, 3)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
