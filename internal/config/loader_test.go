package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/strokelab/rallylens/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.AnalysisWorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.SampleIntervalFrames, convey.ShouldEqual, 5)
				convey.So(cfg.MinPoseConfidence, convey.ShouldEqual, 0.35)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RALLYLENS_ADDR", ":8080")
			_ = os.Setenv("RALLYLENS_QUEUE_SIZE", "128")
			_ = os.Setenv("RALLYLENS_ANALYSIS_WORKER_COUNT", "4")
			_ = os.Setenv("RALLYLENS_MIN_POSE_CONFIDENCE", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.AnalysisWorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.MinPoseConfidence, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 32
sample_interval_frames: 3
shot_detection_threshold: 0.2
results_db_path: "/tmp/results.db"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RALLYLENS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 32)
				convey.So(cfg.SampleIntervalFrames, convey.ShouldEqual, 3)
				convey.So(cfg.ShotDetectionThreshold, convey.ShouldEqual, 0.2)
				convey.So(cfg.ResultsDBPath, convey.ShouldEqual, "/tmp/results.db")
			})

			convey.Convey("Then missing fields should keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AnalysisWorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.RallyTimeoutSeconds, convey.ShouldEqual, 3.0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 32
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RALLYLENS_CONFIG", tmpFile)
			_ = os.Setenv("RALLYLENS_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RALLYLENS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("RALLYLENS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RALLYLENS_QUEUE_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderValidation(t *testing.T) {
	convey.Convey("Given config validation rules", t, func() {
		ctx := context.Background()

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("RALLYLENS_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the sample interval is zero", func() {
			_ = os.Setenv("RALLYLENS_SAMPLE_INTERVAL_FRAMES", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "sample_interval_frames")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the pose confidence is out of range", func() {
			_ = os.Setenv("RALLYLENS_MIN_POSE_CONFIDENCE", "1.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "min_pose_confidence")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the shot gap is zero", func() {
			_ = os.Setenv("RALLYLENS_MIN_SHOT_GAP_SECONDS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "min_shot_gap_seconds")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the dominant hand is unrecognized", func() {
			_ = os.Setenv("RALLYLENS_DOMINANT_HAND", "ambidextrous")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "dominant_hand")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the scoring weights sum to zero", func() {
			_ = os.Setenv("RALLYLENS_TECHNICAL_WEIGHT", "0")
			_ = os.Setenv("RALLYLENS_MOVEMENT_WEIGHT", "0")
			_ = os.Setenv("RALLYLENS_SUCCESS_WEIGHT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "scoring weights")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"RALLYLENS_CONFIG",
		"RALLYLENS_ADDR",
		"RALLYLENS_QUEUE_SIZE",
		"RALLYLENS_ANALYSIS_WORKER_COUNT",
		"RALLYLENS_SAMPLE_INTERVAL_FRAMES",
		"RALLYLENS_MIN_POSE_CONFIDENCE",
		"RALLYLENS_MIN_SHOT_GAP_SECONDS",
		"RALLYLENS_DOMINANT_HAND",
		"RALLYLENS_TECHNICAL_WEIGHT",
		"RALLYLENS_MOVEMENT_WEIGHT",
		"RALLYLENS_SUCCESS_WEIGHT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "rallylens-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
