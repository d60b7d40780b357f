// Package technique aggregates stroke-mechanics metrics over the full
// pose sequence. Pure and deterministic; zero usable frames is an
// ErrInsufficientData condition, never a silent default.
package technique

import (
	"errors"
	"fmt"
	"math"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

// ErrInsufficientData reports that no usable pose frames were available
// to aggregate.
var ErrInsufficientData = errors.New("insufficient pose data")

// Sub-score weights for the overall technical score.
var overallWeights = map[string]float64{ //nolint:gochecknoglobals // fixed scoring policy
	"paddle_angle":    0.15,
	"follow_through":  0.15,
	"body_rotation":   0.15,
	"ready_position":  0.10,
	"grip_pressure":   0.10,
	"contact_point":   0.15,
	"weight_transfer": 0.10,
	"head_stability":  0.10,
}

// Aggregator computes TechnicalMetrics from pose frames.
type Aggregator struct {
	wristName string
	elbowName string
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithDominantHand sets the player's dominant hand: "right" or "left".
// Stroke mechanics are scored on the dominant arm.
func WithDominantHand(hand string) Option {
	return func(a *Aggregator) {
		switch hand {
		case "left":
			a.wristName, a.elbowName = pose.LeftWrist, pose.LeftElbow
		case "right":
			a.wristName, a.elbowName = pose.RightWrist, pose.RightElbow
		}
	}
}

// NewAggregator creates a technical metrics aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		wristName: pose.RightWrist,
		elbowName: pose.RightElbow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// frameScores holds the per-frame sub-scores before averaging.
type frameScores struct {
	paddleAngle    float64
	followThrough  float64
	bodyRotation   float64
	readyPosition  float64
	gripPressure   float64
	contactPoint   float64
	weightTransfer float64
	headStability  float64
}

// Aggregate computes technical metrics over the full pose sequence.
// Low-confidence frames are discounted with their true confidence rather
// than dropped.
func (a *Aggregator) Aggregate(frames []model.PoseFrame) (model.TechnicalMetrics, error) {
	var sum frameScores
	var weightSum float64

	for _, pf := range frames {
		fs, ok := a.scoreFrame(pf)
		if !ok {
			continue
		}
		// Confidence-weighted averaging keeps low-quality frames in the
		// aggregate without letting them dominate it.
		w := math.Max(pf.Confidence, 0.05)
		sum.paddleAngle += fs.paddleAngle * w
		sum.followThrough += fs.followThrough * w
		sum.bodyRotation += fs.bodyRotation * w
		sum.readyPosition += fs.readyPosition * w
		sum.gripPressure += fs.gripPressure * w
		sum.contactPoint += fs.contactPoint * w
		sum.weightTransfer += fs.weightTransfer * w
		sum.headStability += fs.headStability * w
		weightSum += w
	}

	if weightSum == 0 {
		return model.TechnicalMetrics{}, fmt.Errorf("%w: no scorable pose frames", ErrInsufficientData)
	}

	m := model.TechnicalMetrics{
		PaddleAngle:    pose.Clamp(sum.paddleAngle / weightSum),
		FollowThrough:  pose.Clamp(sum.followThrough / weightSum),
		BodyRotation:   pose.Clamp(sum.bodyRotation / weightSum),
		ReadyPosition:  pose.Clamp(sum.readyPosition / weightSum),
		GripPressure:   pose.Clamp(sum.gripPressure / weightSum),
		ContactPoint:   pose.Clamp(sum.contactPoint / weightSum),
		WeightTransfer: pose.Clamp(sum.weightTransfer / weightSum),
		HeadStability:  pose.Clamp(sum.headStability / weightSum),
	}
	m.Overall = overall(m)
	return m, nil
}

// overall folds the sub-scores with the fixed weight table.
func overall(m model.TechnicalMetrics) float64 {
	total := m.PaddleAngle*overallWeights["paddle_angle"] +
		m.FollowThrough*overallWeights["follow_through"] +
		m.BodyRotation*overallWeights["body_rotation"] +
		m.ReadyPosition*overallWeights["ready_position"] +
		m.GripPressure*overallWeights["grip_pressure"] +
		m.ContactPoint*overallWeights["contact_point"] +
		m.WeightTransfer*overallWeights["weight_transfer"] +
		m.HeadStability*overallWeights["head_stability"]
	return pose.Clamp(total)
}

// scoreFrame derives the eight sub-scores from one frame's geometry.
// It returns false when the frame lacks the needed keypoints.
func (a *Aggregator) scoreFrame(pf model.PoseFrame) (frameScores, bool) {
	wrist, okW := pf.Keypoint(a.wristName)
	elbow, okE := pf.Keypoint(a.elbowName)
	shoulderC, okS := pose.ShoulderCenter(pf)
	hip, okH := pose.HipCenter(pf)
	if !okW || !okE || !okS || !okH {
		return frameScores{}, false
	}

	var fs frameScores

	// Paddle angle proxy: forearm inclination against horizontal. A
	// forearm near 45 degrees is the neutral paddle position.
	forearm := math.Atan2(math.Abs(wrist.Y-elbow.Y), math.Abs(wrist.X-elbow.X))
	fs.paddleAngle = pose.Clamp(100 - math.Abs(forearm-math.Pi/4)/(math.Pi/4)*60)

	// Follow-through extension: wrist distance from shoulder center.
	fs.followThrough = pose.Clamp(pose.Distance(wrist, shoulderC) * 400)

	// Body rotation: horizontal shoulder-over-hip offset shows coil.
	fs.bodyRotation = pose.Clamp(math.Abs(shoulderC.X-hip.X) * 1200)

	// Ready position: hands carried at waist height between points.
	fs.readyPosition = pose.Clamp(100 - math.Abs(wrist.Y-hip.Y)*300)

	// Grip proxy: wrist held stable relative to the elbow line.
	fs.gripPressure = pose.Clamp(100 - math.Abs(wrist.X-elbow.X)*250)

	// Contact point proxy: contact in front of and above the hip.
	fs.contactPoint = pose.Clamp(100 - math.Abs(wrist.Y-shoulderC.Y)*200)

	// Weight transfer proxy: hips ahead of shoulders on the swing axis.
	fs.weightTransfer = pose.Clamp(50 + (hip.X-shoulderC.X)*400)

	// Head stability: nose over hip center.
	if nose, ok := pf.Keypoint(pose.Nose); ok {
		fs.headStability = pose.Clamp(100 - math.Abs(nose.X-hip.X)*500)
	} else {
		fs.headStability = 50
	}

	return fs, true
}
