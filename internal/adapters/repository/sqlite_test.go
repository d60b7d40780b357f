package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/strokelab/rallylens/internal/domain/model"
)

func testRequest(id string) model.AnalysisRequest {
	return model.AnalysisRequest{
		AnalysisID:   id,
		VideoRef:     "/videos/rally.mp4",
		VideoID:      "vid-9",
		UserID:       "user-3",
		SkillLevel:   model.SkillIntermediate,
		AnalysisType: model.AnalysisFull,
	}
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	Convey("Given a sqlite store on a temp database", t, func() {
		path := filepath.Join(t.TempDir(), "results.db")
		store, err := Open(path)
		So(err, ShouldBeNil)
		defer store.Close()

		ctx := context.Background()

		Convey("When a submission is created", func() {
			So(store.Create(ctx, testRequest("a-1")), ShouldBeNil)

			Convey("Then it reads back as pending with its request intact", func() {
				rec, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusPending)
				So(rec.Request.VideoID, ShouldEqual, "vid-9")
				So(rec.Request.SkillLevel, ShouldEqual, model.SkillIntermediate)
				So(rec.Result, ShouldBeNil)
				So(rec.SubmittedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And creating the same id again reports a conflict", func() {
				err := store.Create(ctx, testRequest("a-1"))
				So(errors.Is(err, ErrAlreadyExists), ShouldBeTrue)
			})

			Convey("And marking it running updates the status", func() {
				So(store.MarkRunning(ctx, "a-1"), ShouldBeNil)
				rec, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusRunning)
			})

			Convey("And saving a result completes the record", func() {
				result := &model.AnalysisResult{
					AnalysisID:   "a-1",
					OverallScore: 68.4,
					Shots:        []model.ShotEvent{{ShotID: "s-1", Type: model.ShotForehand}},
				}
				So(store.SaveResult(ctx, "a-1", result), ShouldBeNil)

				rec, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusCompleted)
				So(rec.Result, ShouldNotBeNil)
				So(rec.Result.OverallScore, ShouldEqual, 68.4)
				So(rec.Result.Shots, ShouldHaveLength, 1)
				So(rec.CompletedAt, ShouldNotBeNil)
			})

			Convey("And deleting it frees the id for resubmission", func() {
				So(store.Delete(ctx, "a-1"), ShouldBeNil)
				_, err := store.Get(ctx, "a-1")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(store.Create(ctx, testRequest("a-1")), ShouldBeNil)
			})

			Convey("And marking it failed records the reason", func() {
				So(store.MarkFailed(ctx, "a-1", "unreadable_video"), ShouldBeNil)
				rec, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusFailed)
				So(rec.FailureReason, ShouldEqual, "unreadable_video")
			})
		})

		Convey("When an unknown id is queried", func() {
			_, err := store.Get(ctx, "missing")

			Convey("Then it reports not found", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When status updates target an unknown id", func() {
			Convey("Then they report not found", func() {
				So(errors.Is(store.MarkRunning(ctx, "missing"), ErrNotFound), ShouldBeTrue)
				So(errors.Is(store.MarkFailed(ctx, "missing", "internal"), ErrNotFound), ShouldBeTrue)
				So(errors.Is(store.SaveResult(ctx, "missing", &model.AnalysisResult{}), ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When several submissions exist", func() {
			So(store.Create(ctx, testRequest("b-1")), ShouldBeNil)
			So(store.Create(ctx, testRequest("b-2")), ShouldBeNil)

			Convey("Then Count reflects them", func() {
				So(store.Count(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestSQLiteStoreSchema(t *testing.T) {
	Convey("Given a freshly migrated store", t, func() {
		path := filepath.Join(t.TempDir(), "results.db")
		store, err := Open(path)
		So(err, ShouldBeNil)
		defer store.Close()

		Convey("When the analyses indexes are inspected", func() {
			rows, err := store.db.QueryContext(context.Background(),
				`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'analyses'`)
			So(err, ShouldBeNil)
			defer rows.Close()

			names := map[string]bool{}
			for rows.Next() {
				var name string
				So(rows.Scan(&name), ShouldBeNil)
				names[name] = true
			}
			So(rows.Err(), ShouldBeNil)

			Convey("Then status and video-user lookups are indexed", func() {
				So(names["idx_analyses_status"], ShouldBeTrue)
				So(names["idx_analyses_video_user"], ShouldBeTrue)
			})
		})
	})
}
