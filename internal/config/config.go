// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New(); Load layers file and env overrides on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SampleIntervalFrames controls how many source frames are skipped
	// between sampled frames.
	SampleIntervalFrames int `koanf:"sample_interval_frames"`

	// StagingDir is where the sampler stages decoded frame images.
	StagingDir string `koanf:"staging_dir"`

	// MinPoseConfidence marks pose frames below this confidence as low quality.
	MinPoseConfidence float64 `koanf:"min_pose_confidence"`

	// MinConfidentFrames is the minimum number of confident pose frames
	// required to produce aggregate metrics.
	MinConfidentFrames int `koanf:"min_confident_frames"`

	// ShotDetectionThreshold is the wrist displacement, in normalized
	// coordinate units, that triggers a shot candidate.
	ShotDetectionThreshold float64 `koanf:"shot_detection_threshold"`

	// CleanQualityThreshold separates clean shots from shots that must
	// carry errors or improvements.
	CleanQualityThreshold float64 `koanf:"clean_quality_threshold"`

	// MinShotGapSeconds debounces shot detection: candidates closer than
	// this to the previous shot are discarded.
	MinShotGapSeconds float64 `koanf:"min_shot_gap_seconds"`

	// DominantHand is the player's dominant hand, "right" or "left". It
	// steers shot classification and stroke-mechanics scoring.
	DominantHand string `koanf:"dominant_hand"`

	// StrengthQuality is the shot quality above which a key strength
	// moment is recorded.
	StrengthQuality float64 `koanf:"strength_quality"`

	// MaxMomentsPerKind caps the number of key moments per kind.
	MaxMomentsPerKind int `koanf:"max_moments_per_kind"`

	// RallyTimeoutSeconds closes a segment when no shot lands within it.
	RallyTimeoutSeconds float64 `koanf:"rally_timeout_seconds"`

	// CourtWidthMeters scales normalized displacement to real-world speed.
	CourtWidthMeters float64 `koanf:"court_width_meters"`

	// PoseWorkerCount bounds concurrent pose estimations per analysis.
	PoseWorkerCount int `koanf:"pose_worker_count"`

	// AnalysisWorkerCount sets the number of concurrent analysis runs.
	AnalysisWorkerCount int `koanf:"analysis_worker_count"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StageTimeoutSeconds bounds the pose estimation stage.
	StageTimeoutSeconds float64 `koanf:"stage_timeout_seconds"`

	// TechnicalWeight, MovementWeight and SuccessWeight fold the three
	// composite metrics into the overall score.
	TechnicalWeight float64 `koanf:"technical_weight"`
	MovementWeight  float64 `koanf:"movement_weight"`
	SuccessWeight   float64 `koanf:"success_weight"`

	// HeatmapRows and HeatmapCols size the movement position heatmap.
	HeatmapRows int `koanf:"heatmap_rows"`
	HeatmapCols int `koanf:"heatmap_cols"`

	// ResultsDBPath locates the SQLite results database.
	ResultsDBPath string `koanf:"results_db_path"`

	// PoseBackendCommand is the external pose estimator invocation.
	// Empty means the service must be given a backend programmatically.
	PoseBackendCommand []string `koanf:"pose_backend_command"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		SampleIntervalFrames:   5,
		StagingDir:             filepath.Join(os.TempDir(), "rallylens"),
		MinPoseConfidence:      0.35,
		MinConfidentFrames:     10,
		ShotDetectionThreshold: 0.12,
		CleanQualityThreshold:  70,
		MinShotGapSeconds:      0.5,
		DominantHand:           "right",
		StrengthQuality:        80,
		MaxMomentsPerKind:      3,
		RallyTimeoutSeconds:    3.0,
		CourtWidthMeters:       6.1,
		PoseWorkerCount:        runtime.NumCPU(),
		AnalysisWorkerCount:    2,
		QueueSize:              64,
		DedupeSize:             10_000,
		StageTimeoutSeconds:    120,
		TechnicalWeight:        0.4,
		MovementWeight:         0.3,
		SuccessWeight:          0.3,
		HeatmapRows:            6,
		HeatmapCols:            8,
		ResultsDBPath:          "rallylens.db",
	}
}
