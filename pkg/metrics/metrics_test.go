package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestManagerInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("test"),
		WithSubsystem("pipeline"),
		WithPrometheusRegistry(registry),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metrics registered")
	}
	for _, mf := range families {
		if got := mf.GetName(); len(got) < len("test_pipeline_") || got[:len("test_pipeline_")] != "test_pipeline_" {
			t.Errorf("metric %q missing namespace/subsystem prefix", got)
		}
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Helpers must not panic on the global manager.
	RecordAnalysisSubmitted()
	RecordAnalysisDuplicate()
	RecordAnalysisCompleted()
	RecordAnalysisFailed("unreadable_video")
	RecordFramesSampled(24)
	RecordPoseEstimated()
	RecordPoseLowConfidence()
	RecordShotDetected("forehand")
	RecordOverallScore(72.5)
	RecordStageDuration("pose_estimation", 120)
	RecordPoseLatency(14)
	UpdateQueueSize(3)
	UpdateQueueCapacity(64)
	UpdateQueueUtilization(0.05)
	UpdateWorkerCount(2)
	UpdateActiveAnalyses(1)
	RecordRepositorySaveLatency(2)
	RecordRepositoryQueryLatency(1)
	UpdateResultsStored(10)
	RecordHTTPRequest("analyses", "POST", "202")
	RecordHTTPRequestDuration("analyses", "POST", "202", 5)
	RecordErrorByComponent("worker", "stage_timeout")

	if GetRegistry() == nil {
		t.Fatal("registry is nil")
	}
}
