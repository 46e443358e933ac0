package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fleetpower/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewJob(t *testing.T) {
	convey.Convey("Given a refresh run", t, func() {
		before := time.Now()
		job := model.NewJob("0xabc", model.ReasonRefresh, "run-1")

		convey.Convey("Then the job is stamped with a uuid and time", func() {
			_, err := uuid.Parse(job.ID)
			convey.So(err, convey.ShouldBeNil)
			convey.So(job.Address, convey.ShouldEqual, "0xabc")
			convey.So(job.Reason, convey.ShouldEqual, model.ReasonRefresh)
			convey.So(job.RunID, convey.ShouldEqual, "run-1")
			convey.So(job.EnqueuedAt, convey.ShouldHappenOnOrAfter, before)
		})

		convey.Convey("Then two jobs never share an id", func() {
			other := model.NewJob("0xabc", model.ReasonManual, "")
			convey.So(other.ID, convey.ShouldNotEqual, job.ID)
		})
	})
}
