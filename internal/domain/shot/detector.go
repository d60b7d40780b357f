// Package shot detects and classifies strokes from consecutive pose frames.
//
// Detection triggers on high-velocity wrist motion; classification is
// rule-based over relative keypoint geometry. Both are pure functions of
// the pose sequence, so identical input yields identical shots apart from
// the generated shot IDs.
package shot

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

// Default detector configuration.
const (
	defaultThreshold     = 0.12
	defaultCleanQuality  = 70.0
	defaultCourtWidthM   = 6.1
	defaultMinShotGapSec = 0.5

	// keypointFloor is the minimum keypoint confidence considered usable
	// for a displacement measurement.
	keypointFloor = 0.2

	// serveElbowMargin keeps marginal elbow-below-wrist poses out of the
	// serve rule (normalized units).
	serveElbowMargin = 0.02

	// dinkExtension is the wrist-elbow vertical separation below which a
	// below-shoulder stroke reads as a dink.
	dinkExtension = 0.08

	// successSeparation is the wrist-elbow vertical separation required
	// for the clean-form success proxy.
	successSeparation = 0.05

	metersPerSecToKmh = 3.6
)

// Detector scans an ordered pose sequence for shot events.
type Detector struct {
	threshold    float64
	cleanQuality float64
	courtWidthM  float64
	minShotGap   float64
	dominantHand string
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithThreshold sets the wrist displacement, in normalized units per
// frame pair, that triggers a shot candidate.
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		if t > 0 {
			d.threshold = t
		}
	}
}

// WithCleanQuality sets the quality below which a shot must carry errors
// or improvements.
func WithCleanQuality(q float64) Option {
	return func(d *Detector) {
		if q > 0 && q <= 100 {
			d.cleanQuality = q
		}
	}
}

// WithCourtWidth sets the real-world width, in meters, represented by the
// normalized coordinate span. It scales displacement to shot speed.
func WithCourtWidth(m float64) Option {
	return func(d *Detector) {
		if m > 0 {
			d.courtWidthM = m
		}
	}
}

// WithMinShotGap sets the debounce window between consecutive shots.
func WithMinShotGap(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.minShotGap = seconds
		}
	}
}

// WithDominantHand sets the player's dominant hand: "right" or "left".
func WithDominantHand(hand string) Option {
	return func(d *Detector) {
		if hand == "right" || hand == "left" {
			d.dominantHand = hand
		}
	}
}

// NewDetector creates a detector with configuration options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		threshold:    defaultThreshold,
		cleanQuality: defaultCleanQuality,
		courtWidthM:  defaultCourtWidthM,
		minShotGap:   defaultMinShotGapSec,
		dominantHand: "right",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans consecutive pose frame pairs and emits shot events in
// timestamp order. Low-confidence frames are discounted, not skipped
// wholesale: a pair contributes only when both wrist measurements are
// usable.
func (d *Detector) Detect(ctx context.Context, frames []model.PoseFrame) ([]model.ShotEvent, error) {
	shots := make([]model.ShotEvent, 0)
	lastShotAt := math.Inf(-1)

	for i := 1; i < len(frames); i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("shot detection canceled: %w", ctx.Err())
		default:
		}

		prev, cur := frames[i-1], frames[i]
		dt := cur.Frame.Timestamp - prev.Frame.Timestamp
		if dt <= 0 {
			continue
		}

		hand, disp, ok := d.swingDisplacement(prev, cur)
		if !ok || disp < d.threshold {
			continue
		}
		if cur.Frame.Timestamp-lastShotAt < d.minShotGap {
			continue
		}

		event, ok := d.buildEvent(cur, hand, disp, dt)
		if !ok {
			continue
		}
		lastShotAt = event.Timestamp
		shots = append(shots, event)
	}

	return shots, nil
}

// swingDisplacement measures wrist travel for both hands between two
// frames and returns the hand with the larger usable displacement.
func (d *Detector) swingDisplacement(prev, cur model.PoseFrame) (string, float64, bool) {
	dominant := d.dominantHand
	offHand := "left"
	if dominant == "left" {
		offHand = "right"
	}

	bestHand := ""
	bestDisp := 0.0
	for _, hand := range []string{dominant, offHand} {
		wristName := pose.RightWrist
		if hand == "left" {
			wristName = pose.LeftWrist
		}
		prevWrist, okP := prev.Keypoint(wristName)
		curWrist, okC := cur.Keypoint(wristName)
		if !okP || !okC || prevWrist.Confidence < keypointFloor || curWrist.Confidence < keypointFloor {
			continue
		}
		if disp := pose.Distance(prevWrist, curWrist); disp > bestDisp {
			bestHand, bestDisp = hand, disp
		}
	}

	return bestHand, bestDisp, bestHand != ""
}

// buildEvent classifies and scores a triggered candidate at the later
// frame of the pair.
func (d *Detector) buildEvent(cur model.PoseFrame, hand string, disp, dt float64) (model.ShotEvent, bool) {
	wristName, elbowName, shoulderName := pose.RightWrist, pose.RightElbow, pose.RightShoulder
	if hand == "left" {
		wristName, elbowName, shoulderName = pose.LeftWrist, pose.LeftElbow, pose.LeftShoulder
	}

	wrist, okW := cur.Keypoint(wristName)
	elbow, okE := cur.Keypoint(elbowName)
	shoulder, okS := cur.Keypoint(shoulderName)
	if !okW || !okE || !okS {
		return model.ShotEvent{}, false
	}

	shotType := classify(hand, wrist, elbow, shoulder)
	quality, errs, improvements := d.scoreForm(cur, wrist, elbow, shoulder, disp)
	success := elbow.Y < shoulder.Y+serveElbowMargin && math.Abs(wrist.Y-elbow.Y) > successSeparation

	speedMps := disp / dt * d.courtWidthM

	return model.ShotEvent{
		ShotID:       uuid.NewString(),
		Type:         shotType,
		Timestamp:    cur.Frame.Timestamp,
		Duration:     2 * dt,
		Quality:      quality,
		Speed:        speedMps * metersPerSecToKmh,
		Spin:         spinOf(wrist, elbow),
		Placement:    placementOf(wrist),
		Success:      success,
		Breakdown:    breakdown(cur, wrist, elbow, shoulder, disp),
		Errors:       errs,
		Improvements: improvements,
	}, true
}

// classify applies the geometric rule table. Rules are checked most
// specific first; forehand is the fallback.
func classify(hand string, wrist, elbow, shoulder model.PoseKeypoint) model.ShotType {
	above := wrist.Y < shoulder.Y
	crossed := wrist.X < shoulder.X
	if hand == "left" {
		crossed = wrist.X > shoulder.X
	}
	extended := math.Abs(wrist.Y-elbow.Y) > dinkExtension

	switch {
	case above && elbow.Y > wrist.Y+serveElbowMargin:
		return model.ShotServe
	case crossed:
		return model.ShotBackhand
	case !above && !extended:
		return model.ShotDink
	case above:
		return model.ShotVolley
	default:
		return model.ShotForehand
	}
}

// scoreForm derives a [0,100] quality score from keypoint geometry and
// confidence, together with the error and improvement notes the
// key-moment stage consumes. Shots below the clean threshold always
// carry at least one note.
func (d *Detector) scoreForm(pf model.PoseFrame, wrist, elbow, shoulder model.PoseKeypoint, disp float64) (float64, []string, []string) {
	quality := 50.0
	var errs, improvements []string

	// Confident pose data is itself a quality signal: a blurry or
	// occluded swing rarely reads as clean form.
	quality += 20 * pf.Confidence

	if elbow.Y < shoulder.Y {
		quality += 15
	} else {
		errs = append(errs, "dropped elbow at contact")
		improvements = append(improvements, "keep the hitting elbow at or above shoulder height through contact")
	}

	if sep := math.Abs(wrist.Y - elbow.Y); sep > successSeparation {
		quality += 10
	} else {
		errs = append(errs, "compact arm at contact")
		improvements = append(improvements, "extend the arm toward the target for a fuller swing path")
	}

	// A displacement just past the trigger reads as a tentative swing.
	if disp > 2*d.threshold {
		quality += 5
	} else {
		improvements = append(improvements, "accelerate through the ball instead of guiding it")
	}

	quality = pose.Clamp(quality)
	if quality < d.cleanQuality && len(errs) == 0 && len(improvements) == 0 {
		improvements = append(improvements, "work on consistent contact in front of the body")
	}
	return quality, errs, improvements
}

// breakdown scores the stroke phases from the same geometry.
func breakdown(pf model.PoseFrame, wrist, elbow, shoulder model.PoseKeypoint, disp float64) model.TechnicalBreakdown {
	prep := pose.Clamp(60 + 40*pf.Confidence)
	contact := pose.Clamp(100 - 300*math.Abs(wrist.Y-shoulder.Y))
	follow := pose.Clamp(200 * disp * 2)
	body := 50.0
	if hip, ok := pose.HipCenter(pf); ok {
		body = pose.Clamp(100 - 250*math.Abs(hip.X-shoulder.X))
	}
	return model.TechnicalBreakdown{
		Preparation:   prep,
		ContactPoint:  contact,
		FollowThrough: follow,
		BodyPosition:  body,
	}
}

// spinOf infers spin from the wrist-elbow vertical relation at contact.
func spinOf(wrist, elbow model.PoseKeypoint) string {
	switch {
	case wrist.Y < elbow.Y-dinkExtension:
		return "topspin"
	case wrist.Y > elbow.Y+dinkExtension:
		return "backspin"
	default:
		return "flat"
	}
}

// placementOf maps the horizontal contact position to a coarse target.
func placementOf(wrist model.PoseKeypoint) string {
	switch {
	case wrist.X < 1.0/3:
		return "left"
	case wrist.X > 2.0/3:
		return "right"
	default:
		return "center"
	}
}
