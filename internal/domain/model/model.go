// Package model contains domain models passed between layers.
//
// Every type here is a value produced by one pipeline stage and consumed
// read-only by later stages. Nothing is mutated after creation; a re-run
// of the pipeline produces a fresh AnalysisResult.
package model

import "time"

// Frame identifies one sampled still frame of the source video.
type Frame struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp_seconds"`
}

// PoseKeypoint is a named anatomical landmark with normalized 2-D position
// and a confidence in [0,1].
type PoseKeypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// PoseFrame owns the ordered keypoints estimated for one frame plus the
// overall pose confidence. Low-confidence frames are retained and flagged
// rather than dropped so downstream aggregates can discount them.
type PoseFrame struct {
	Frame         Frame          `json:"frame"`
	Keypoints     []PoseKeypoint `json:"keypoints"`
	Confidence    float64        `json:"confidence"`
	LowConfidence bool           `json:"low_confidence"`
}

// Keypoint returns the named keypoint, if present.
func (p PoseFrame) Keypoint(name string) (PoseKeypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return PoseKeypoint{}, false
}

// ShotType classifies a detected stroke.
type ShotType string

// Shot type values.
const (
	ShotForehand ShotType = "forehand"
	ShotBackhand ShotType = "backhand"
	ShotServe    ShotType = "serve"
	ShotDink     ShotType = "dink"
	ShotVolley   ShotType = "volley"
	ShotLob      ShotType = "lob"
	ShotSmash    ShotType = "smash"
	ShotDrop     ShotType = "drop"
)

// Valid reports whether t is one of the known shot types.
func (t ShotType) Valid() bool {
	switch t {
	case ShotForehand, ShotBackhand, ShotServe, ShotDink, ShotVolley, ShotLob, ShotSmash, ShotDrop:
		return true
	}
	return false
}

// TechnicalBreakdown scores the phases of a single stroke, each in [0,100].
type TechnicalBreakdown struct {
	Preparation   float64 `json:"preparation"`
	ContactPoint  float64 `json:"contact_point"`
	FollowThrough float64 `json:"follow_through"`
	BodyPosition  float64 `json:"body_position"`
}

// ShotEvent is a detected single stroke. Immutable once emitted.
type ShotEvent struct {
	ShotID       string             `json:"shot_id"`
	Type         ShotType           `json:"type"`
	Timestamp    float64            `json:"timestamp"`
	Duration     float64            `json:"duration_seconds"`
	Quality      float64            `json:"quality_score"`
	Speed        float64            `json:"speed_kmh"`
	Spin         string             `json:"spin"`
	Placement    string             `json:"placement"`
	Success      bool               `json:"success"`
	Breakdown    TechnicalBreakdown `json:"technical_breakdown"`
	Errors       []string           `json:"errors"`
	Improvements []string           `json:"improvements"`
}

// SegmentType labels a contiguous span of the match timeline.
type SegmentType string

// Segment type values.
const (
	SegmentServe       SegmentType = "serve"
	SegmentRally       SegmentType = "rally"
	SegmentNetExchange SegmentType = "net_exchange"
	SegmentTransition  SegmentType = "transition"
)

// VideoSegment is one labeled span. Segments are non-overlapping,
// timeline-ordered and jointly cover [0, videoDuration].
type VideoSegment struct {
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Type      SegmentType `json:"type"`
	Quality   float64     `json:"quality_score"`
	ShotIDs   []string    `json:"key_moments"`
}

// MomentKind classifies a key moment.
type MomentKind string

// Moment kinds.
const (
	MomentStrength    MomentKind = "strength"
	MomentImprovement MomentKind = "improvement"
	MomentCritical    MomentKind = "critical"
	MomentHighlight   MomentKind = "highlight"
)

// Impact grades how much a moment or improvement area matters.
type Impact string

// Impact levels.
const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// KeyMoment is a short, timestamped highlight of notable strength or error.
type KeyMoment struct {
	Timestamp      float64    `json:"timestamp"`
	Kind           MomentKind `json:"kind"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Recommendation string     `json:"recommendation"`
	Impact         Impact     `json:"impact"`
}

// MovementMetrics aggregates court movement over the full pose sequence.
// All sub-scores are bounded to [0,100]; speeds are meters per second.
type MovementMetrics struct {
	CourtCoverage float64 `json:"court_coverage"`
	AverageSpeed  float64 `json:"average_speed"`
	PeakSpeed     float64 `json:"peak_speed"`
	Footwork      float64 `json:"footwork"`
	Balance       float64 `json:"balance"`
	Positioning   float64 `json:"positioning"`
	Anticipation  float64 `json:"anticipation"`
	ReadyPosition float64 `json:"ready_position"`
	SplitStep     float64 `json:"split_step"`
	Heatmap       [][]int `json:"heatmap"`
}

// Composite folds the bounded movement sub-scores into one [0,100] value.
func (m MovementMetrics) Composite() float64 {
	sum := m.CourtCoverage + m.Footwork + m.Balance + m.Positioning +
		m.Anticipation + m.ReadyPosition + m.SplitStep
	return sum / 7
}

// TechnicalMetrics aggregates stroke mechanics over the full pose sequence.
// Every field is bounded to [0,100].
type TechnicalMetrics struct {
	PaddleAngle    float64 `json:"paddle_angle"`
	FollowThrough  float64 `json:"follow_through"`
	BodyRotation   float64 `json:"body_rotation"`
	ReadyPosition  float64 `json:"ready_position"`
	GripPressure   float64 `json:"grip_pressure"`
	ContactPoint   float64 `json:"contact_point"`
	WeightTransfer float64 `json:"weight_transfer"`
	HeadStability  float64 `json:"head_stability"`
	Overall        float64 `json:"overall"`
}

// ShotStatistics summarizes the detected shot set.
type ShotStatistics struct {
	TotalShots     int              `json:"total_shots"`
	ByType         map[ShotType]int `json:"by_type"`
	SuccessRate    float64          `json:"success_rate"`
	AverageQuality float64          `json:"average_quality"`
	MostCommon     ShotType         `json:"most_common"`
}

// ShotSelection grades shot choice over the session, each in [0,100].
type ShotSelection struct {
	Effectiveness float64 `json:"effectiveness"`
	Variety       float64 `json:"variety"`
	Consistency   float64 `json:"consistency"`
}

// MentalGame captures composure observations inferred from play patterns.
type MentalGame struct {
	Composure    float64  `json:"composure"`
	Observations []string `json:"observations"`
}

// StrategicInsights derives tactical observations from shots and segments.
type StrategicInsights struct {
	ShotSelection  ShotSelection `json:"shot_selection"`
	Patterns       []string      `json:"patterns"`
	TacticalAdvice []string      `json:"tactical_advice"`
	MentalGame     MentalGame    `json:"mental_game"`
}

// SkillLevel is the player's self-reported level.
type SkillLevel string

// Skill levels.
const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
	SkillProfessional SkillLevel = "PROFESSIONAL"
)

// Valid reports whether s is a known skill level.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillProfessional:
		return true
	}
	return false
}

// AnalysisType selects the analysis profile requested by the caller.
type AnalysisType string

// Analysis types.
const (
	AnalysisFull           AnalysisType = "FULL"
	AnalysisQuick          AnalysisType = "QUICK"
	AnalysisTechniqueFocus AnalysisType = "TECHNIQUE_FOCUS"
	AnalysisMatch          AnalysisType = "MATCH_ANALYSIS"
)

// Valid reports whether a is a known analysis type.
func (a AnalysisType) Valid() bool {
	switch a {
	case AnalysisFull, AnalysisQuick, AnalysisTechniqueFocus, AnalysisMatch:
		return true
	}
	return false
}

// ImprovementArea is one benchmark gap with remediation guidance.
type ImprovementArea struct {
	Area          string  `json:"area"`
	Current       float64 `json:"current"`
	Target        float64 `json:"target"`
	Priority      Impact  `json:"priority"`
	TimeToImprove string  `json:"time_to_improve"`
}

// Comparison benchmarks the player against skill-level reference targets.
type Comparison struct {
	SkillLevel       SkillLevel        `json:"skill_level"`
	TargetScore      float64           `json:"target_score"`
	Gap              float64           `json:"gap"`
	ImprovementAreas []ImprovementArea `json:"improvement_areas"`
}

// CoachCommentary is the rendered natural-language summary.
type CoachCommentary struct {
	Opening         string   `json:"opening"`
	KeyObservations []string `json:"key_observations"`
	Encouragement   string   `json:"encouragement"`
	NextSteps       []string `json:"next_steps"`
}

// AnalysisResult is the terminal aggregate of one pipeline run.
// One result per (video, run) pair; immutable once returned.
type AnalysisResult struct {
	AnalysisID    string       `json:"analysis_id"`
	VideoID       string       `json:"video_id"`
	UserID        string       `json:"user_id"`
	SkillLevel    SkillLevel   `json:"skill_level"`
	AnalysisType  AnalysisType `json:"analysis_type"`
	VideoDuration float64      `json:"video_duration_seconds"`
	FrameCount    int          `json:"frame_count"`
	CreatedAt     time.Time    `json:"created_at"`

	PoseFrames []PoseFrame    `json:"pose_frames"`
	Shots      []ShotEvent    `json:"shots"`
	Segments   []VideoSegment `json:"segments"`
	KeyMoments []KeyMoment    `json:"key_moments"`

	Movement  MovementMetrics  `json:"movement_metrics"`
	Technical TechnicalMetrics `json:"technical_metrics"`

	OverallScore            float64           `json:"overall_score"`
	ShotStatistics          ShotStatistics    `json:"shot_statistics"`
	StrategicInsights       StrategicInsights `json:"strategic_insights"`
	Comparison              Comparison        `json:"comparison"`
	Strengths               []string          `json:"strengths"`
	Weaknesses              []string          `json:"weaknesses"`
	PrioritizedImprovements []string          `json:"prioritized_improvements"`
	Commentary              CoachCommentary   `json:"coach_commentary"`
}
