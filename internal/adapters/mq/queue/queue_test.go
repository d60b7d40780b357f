package queue

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/strokelab/rallylens/internal/domain/model"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory queue with a small capacity", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))
		ctx := context.Background()

		Convey("When jobs are enqueued within capacity", func() {
			ok1 := q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "a-1"})
			ok2 := q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "a-2"})

			Convey("Then both enqueues succeed", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And a further enqueue is rejected without blocking", func() {
				So(q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "a-3"}), ShouldBeFalse)
			})
		})

		Convey("When jobs are dequeued", func() {
			q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "first"})
			q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "second"})

			out := q.Dequeue(ctx)

			Convey("Then jobs arrive in submission order", func() {
				So((<-out).AnalysisID, ShouldEqual, "first")
				So((<-out).AnalysisID, ShouldEqual, "second")
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects new jobs", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, model.AnalysisRequest{AnalysisID: "late"}), ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})

			Convey("And the dequeue channel drains then closes", func() {
				_, open := <-q.Dequeue(ctx)
				So(open, ShouldBeFalse)
			})
		})
	})
}
