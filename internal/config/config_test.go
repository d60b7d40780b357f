package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/strokelab/rallylens/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.SampleIntervalFrames, convey.ShouldEqual, 5)
			convey.So(cfg.MinPoseConfidence, convey.ShouldEqual, 0.35)
			convey.So(cfg.MinConfidentFrames, convey.ShouldEqual, 10)
			convey.So(cfg.ShotDetectionThreshold, convey.ShouldEqual, 0.12)
			convey.So(cfg.MinShotGapSeconds, convey.ShouldEqual, 0.5)
			convey.So(cfg.DominantHand, convey.ShouldEqual, "right")
			convey.So(cfg.RallyTimeoutSeconds, convey.ShouldEqual, 3.0)
			convey.So(cfg.PoseWorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.AnalysisWorkerCount, convey.ShouldEqual, 2)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.ResultsDBPath, convey.ShouldEqual, "rallylens.db")
		})

		convey.Convey("Then scoring weights should sum to one", func() {
			sum := cfg.TechnicalWeight + cfg.MovementWeight + cfg.SuccessWeight
			convey.So(sum, convey.ShouldAlmostEqual, 1.0, 0.0001)
		})
	})
}
