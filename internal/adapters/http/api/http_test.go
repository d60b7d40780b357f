package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/domain/model"
)

// fakeService scripts the service surface the handlers depend on.
type fakeService struct {
	submitErr error
	submitted []model.AnalysisRequest
	records   map[string]model.AnalysisRecord
	progress  map[string]service.Progress
	stats     map[string]interface{}
}

func newFakeService() *fakeService {
	return &fakeService{
		records:  make(map[string]model.AnalysisRecord),
		progress: make(map[string]service.Progress),
		stats:    map[string]interface{}{"started": true},
	}
}

func (f *fakeService) Submit(ctx context.Context, req model.AnalysisRequest) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakeService) Get(ctx context.Context, id string) (model.AnalysisRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return model.AnalysisRecord{}, fmt.Errorf("%w: %s", service.ErrNotFound, id)
	}
	return rec, nil
}

func (f *fakeService) Progress(id string) (service.Progress, bool) {
	p, ok := f.progress[id]
	return p, ok
}

func (f *fakeService) GetStats() map[string]interface{} { return f.stats }

func newTestServer(svc *fakeService) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func validBody() string {
	return `{
		"analysis_id": "a-1",
		"video_ref": "/videos/match.mp4",
		"video_id": "vid-1",
		"user_id": "user-1",
		"skill_level": "ADVANCED"
	}`
}

func TestPostAnalysis(t *testing.T) {
	Convey("Given the analysis API", t, func() {
		svc := newFakeService()
		mux := newTestServer(svc)

		post := func(body string) *httptest.ResponseRecorder {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(body))
			mux.ServeHTTP(rr, req)
			return rr
		}

		Convey("When a valid submission is posted", func() {
			rr := post(validBody())

			Convey("Then it is accepted with 202", func() {
				So(rr.Code, ShouldEqual, http.StatusAccepted)

				var ack ackResponse
				So(json.Unmarshal(rr.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.Duplicate, ShouldBeFalse)
			})

			Convey("And the domain request carries the default analysis type", func() {
				So(svc.submitted, ShouldHaveLength, 1)
				So(svc.submitted[0].AnalysisType, ShouldEqual, model.AnalysisFull)
				So(svc.submitted[0].SkillLevel, ShouldEqual, model.SkillAdvanced)
			})
		})

		Convey("When the same id is submitted again", func() {
			svc.submitErr = service.ErrDuplicate
			rr := post(validBody())

			Convey("Then it acknowledges the duplicate with 200", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var ack ackResponse
				So(json.Unmarshal(rr.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the queue is full", func() {
			svc.submitErr = service.ErrBackpressure
			rr := post(validBody())

			Convey("Then it rejects with 429", func() {
				So(rr.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When the body is not JSON", func() {
			rr := post("{nope")

			Convey("Then it rejects with 400", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When required fields are missing or invalid", func() {
			cases := []string{
				`{"video_ref":"v","video_id":"x","user_id":"u","skill_level":"ADVANCED"}`,
				`{"analysis_id":"a","video_id":"x","user_id":"u","skill_level":"ADVANCED"}`,
				`{"analysis_id":"a","video_ref":"v","video_id":"x","user_id":"u","skill_level":"WIZARD"}`,
				`{"analysis_id":"a","video_ref":"v","video_id":"x","user_id":"u","skill_level":"ADVANCED","analysis_type":"PARTIAL"}`,
			}
			Convey("Then each rejects with 400", func() {
				for _, body := range cases {
					So(post(body).Code, ShouldEqual, http.StatusBadRequest)
				}
			})
		})

		Convey("When the wrong method is used", func() {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/analyses", nil))

			Convey("Then it is not found", func() {
				So(rr.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestGetAnalysis(t *testing.T) {
	Convey("Given stored analysis records", t, func() {
		svc := newFakeService()
		svc.records["done"] = model.AnalysisRecord{
			Request: model.AnalysisRequest{AnalysisID: "done"},
			Status:  model.StatusCompleted,
			Result:  &model.AnalysisResult{AnalysisID: "done", OverallScore: 81.2},
		}
		svc.records["busy"] = model.AnalysisRecord{
			Request: model.AnalysisRequest{AnalysisID: "busy"},
			Status:  model.StatusRunning,
		}
		svc.progress["busy"] = service.Progress{Stage: service.StagePoseEstimation, Percent: 40}
		mux := newTestServer(svc)

		get := func(path string) *httptest.ResponseRecorder {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			return rr
		}

		Convey("When a completed analysis is fetched", func() {
			rr := get("/analyses/done")

			Convey("Then the record and result come back", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var resp analysisResponse
				So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, model.StatusCompleted)
				So(resp.Result.OverallScore, ShouldEqual, 81.2)
				So(resp.Progress, ShouldBeNil)
			})
		})

		Convey("When a running analysis is fetched", func() {
			rr := get("/analyses/busy")

			Convey("Then the live progress is attached", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var resp analysisResponse
				So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, model.StatusRunning)
				So(resp.Progress, ShouldNotBeNil)
				So(resp.Progress.Stage, ShouldEqual, service.StagePoseEstimation)
				So(resp.Progress.Percent, ShouldEqual, 40)
			})
		})

		Convey("When an unknown id is fetched", func() {
			rr := get("/analyses/missing")

			Convey("Then it reports 404", func() {
				So(rr.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the id is malformed", func() {
			Convey("Then it rejects with 400", func() {
				So(get("/analyses/").Code, ShouldEqual, http.StatusBadRequest)
				So(get("/analyses/a/b").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		svc := newFakeService()
		svc.stats["queueLength"] = 3
		mux := newTestServer(svc)

		Convey("When stats are fetched", func() {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the service shape is returned as JSON", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var stats map[string]interface{}
				So(json.Unmarshal(rr.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["started"], ShouldBeTrue)
				So(stats["queueLength"], ShouldEqual, 3)
			})
		})
	})
}
