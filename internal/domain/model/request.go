package model

import "time"

// AnalysisRequest describes one analysis submission.
type AnalysisRequest struct {
	AnalysisID   string       `json:"analysis_id"`
	VideoRef     string       `json:"video_ref"`
	VideoID      string       `json:"video_id"`
	UserID       string       `json:"user_id"`
	SkillLevel   SkillLevel   `json:"skill_level"`
	AnalysisType AnalysisType `json:"analysis_type"`
}

// AnalysisStatus tracks a submission through its lifecycle.
type AnalysisStatus string

// Analysis statuses.
const (
	StatusPending   AnalysisStatus = "pending"
	StatusRunning   AnalysisStatus = "running"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// AnalysisRecord is the persisted view of one submission and, once the
// run finishes, its result or failure reason.
type AnalysisRecord struct {
	Request       AnalysisRequest `json:"request"`
	Status        AnalysisStatus  `json:"status"`
	Result        *AnalysisResult `json:"result,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
