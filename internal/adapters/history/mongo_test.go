package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/okian/fleetpower/internal/domain/ranking"
	"github.com/okian/fleetpower/pkg/logger"
)

func mockMongo(mt *mtest.T) *Mongo {
	return &Mongo{client: mt.Client, coll: mt.Coll, log: logger.Get().Named("history")}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func boardDoc(runID string, version int64, at time.Time, entries ...bson.D) bson.D {
	arr := bson.A{}
	for _, e := range entries {
		arr = append(arr, e)
	}
	return bson.D{
		{Key: "run_id", Value: runID},
		{Key: "version", Value: version},
		{Key: "generated_at", Value: at},
		{Key: "total", Value: int32(len(entries))},
		{Key: "entries", Value: arr},
	}
}

func TestMongoWrite(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	rec := Record{
		RunID:       "run-1",
		Version:     3,
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Total:       1,
		Entries:     []ranking.Entry{{Rank: 1, Address: "0xabc", TotalPower: 900, Tier: "Recruit Commander"}},
	}

	mt.Run("acknowledged insert", func(mt *mtest.T) {
		convey.Convey("Given a collection that accepts the insert", mt.T, func() {
			mt.AddMockResponses(mtest.CreateSuccessResponse())

			convey.So(mockMongo(mt).Write(context.Background(), rec), convey.ShouldBeNil)
		})
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		convey.Convey("Given a collection that rejects the insert", mt.T, func() {
			mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "duplicate key error",
			}))

			err := mockMongo(mt).Write(context.Background(), rec)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "run-1")
			convey.So(mongo.IsDuplicateKeyError(err), convey.ShouldBeTrue)
		})
	})
}

func TestMongoRecent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	newer := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	older := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("decodes records", func(mt *mtest.T) {
		convey.Convey("Given two stored boards", mt.T, func() {
			mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				boardDoc("run-2", 2, newer, bson.D{
					{Key: "rank", Value: int32(1)},
					{Key: "address", Value: "0xabc"},
					{Key: "totalpower", Value: int64(1200)},
					{Key: "tier", Value: "Recruit Commander"},
					{Key: "shipcount", Value: int32(3)},
					{Key: "averagelevel", Value: 2.3},
				}),
				boardDoc("run-1", 1, older),
			))

			recs, err := mockMongo(mt).Recent(context.Background(), 2)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(recs), convey.ShouldEqual, 2)

			convey.So(recs[0].RunID, convey.ShouldEqual, "run-2")
			convey.So(recs[0].Version, convey.ShouldEqual, uint64(2))
			convey.So(recs[0].GeneratedAt.Equal(newer), convey.ShouldBeTrue)
			convey.So(recs[0].Total, convey.ShouldEqual, 1)
			convey.So(recs[0].Entries, convey.ShouldResemble, []ranking.Entry{{
				Rank:         1,
				Address:      "0xabc",
				TotalPower:   1200,
				Tier:         "Recruit Commander",
				ShipCount:    3,
				AverageLevel: 2.3,
			}})

			convey.So(recs[1].RunID, convey.ShouldEqual, "run-1")
			convey.So(recs[1].Entries, convey.ShouldBeEmpty)
		})
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		convey.Convey("Given no stored boards", mt.T, func() {
			mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

			recs, err := mockMongo(mt).Recent(context.Background(), 5)
			convey.So(err, convey.ShouldBeNil)
			convey.So(recs, convey.ShouldNotBeNil)
			convey.So(recs, convey.ShouldBeEmpty)
		})
	})

	mt.Run("find fails", func(mt *mtest.T) {
		convey.Convey("Given a server that refuses the query", mt.T, func() {
			mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    13,
				Name:    "Unauthorized",
				Message: "not authorized",
			}))

			_, err := mockMongo(mt).Recent(context.Background(), 5)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "find boards")
		})
	})

	mt.Run("invalid limit", func(mt *mtest.T) {
		convey.Convey("Given a limit below one", mt.T, func() {
			_, err := mockMongo(mt).Recent(context.Background(), 0)
			convey.So(errors.Is(err, ErrInvalidLimit), convey.ShouldBeTrue)
		})
	})
}
