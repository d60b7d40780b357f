package service

// Stage names reported through the progress callback, in pipeline order.
const (
	StageSampling       = "sampling"
	StagePoseEstimation = "pose_estimation"
	StageShotDetection  = "shot_detection"
	StageSegmentation   = "segmentation"
	StageMetrics        = "metrics"
	StageKeyMoments     = "key_moments"
	StageInsights       = "insights"
	StageScoring        = "scoring"
	StageCommentary     = "commentary"
)

// Progress is one pipeline progress event. Percent is monotonically
// non-decreasing within a stage.
type Progress struct {
	Stage        string `json:"stage"`
	Percent      int    `json:"progress"`
	CurrentFrame int    `json:"current_frame,omitempty"`
	TotalFrames  int    `json:"total_frames,omitempty"`
	Message      string `json:"message"`
}

// ProgressFunc receives progress events. A nil ProgressFunc is valid and
// reported to no one.
type ProgressFunc func(Progress)

// report invokes fn if set.
func (fn ProgressFunc) report(p Progress) {
	if fn != nil {
		fn(p)
	}
}
