// Package movement aggregates court-movement metrics over the full pose
// sequence. The aggregator is a pure function of its input: no external
// state, no randomness, deterministic for deterministic input.
package movement

import (
	"math"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

// Default aggregator configuration.
const (
	defaultCourtWidthM = 6.1
	defaultHeatmapRows = 6
	defaultHeatmapCols = 8

	// stillnessSpeed is the normalized per-second speed below which the
	// player reads as planted, used by the split-step heuristic.
	stillnessSpeed = 0.02
)

// Aggregator computes MovementMetrics from pose frames.
type Aggregator struct {
	courtWidthM float64
	heatmapRows int
	heatmapCols int
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithCourtWidth sets the real-world width, in meters, represented by the
// normalized coordinate span.
func WithCourtWidth(m float64) Option {
	return func(a *Aggregator) {
		if m > 0 {
			a.courtWidthM = m
		}
	}
}

// WithHeatmapSize sets the heatmap grid dimensions.
func WithHeatmapSize(rows, cols int) Option {
	return func(a *Aggregator) {
		if rows > 0 && cols > 0 {
			a.heatmapRows = rows
			a.heatmapCols = cols
		}
	}
}

// NewAggregator creates a movement aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		courtWidthM: defaultCourtWidthM,
		heatmapRows: defaultHeatmapRows,
		heatmapCols: defaultHeatmapCols,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes movement metrics over the full pose sequence.
// Low-confidence frames are discounted: positions from them still count
// toward the heatmap but never toward speed or stability scores.
func (a *Aggregator) Aggregate(frames []model.PoseFrame) model.MovementMetrics {
	heatmap := make([][]int, a.heatmapRows)
	for i := range heatmap {
		heatmap[i] = make([]int, a.heatmapCols)
	}

	type sample struct {
		t    float64
		x, y float64
	}
	var samples []sample
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for _, pf := range frames {
		hip, ok := pose.HipCenter(pf)
		if !ok {
			continue
		}
		row := clampIndex(int(hip.Y*float64(a.heatmapRows)), a.heatmapRows)
		col := clampIndex(int(hip.X*float64(a.heatmapCols)), a.heatmapCols)
		heatmap[row][col]++

		if pf.LowConfidence {
			continue
		}
		samples = append(samples, sample{t: pf.Frame.Timestamp, x: hip.X, y: hip.Y})
		minX, maxX = math.Min(minX, hip.X), math.Max(maxX, hip.X)
		minY, maxY = math.Min(minY, hip.Y), math.Max(maxY, hip.Y)
	}

	m := model.MovementMetrics{Heatmap: heatmap}
	if len(samples) < 2 {
		return m
	}

	// Coverage: bounding box of the hip-center track, normalized so that
	// roaming a third of the frame in both axes scores 100.
	coverage := (maxX - minX) * (maxY - minY) / (1.0 / 3 * 1.0 / 3) * 100
	m.CourtCoverage = pose.Clamp(coverage)

	var totalDist, peakSpeed, speedVar, meanSpeed float64
	speeds := make([]float64, 0, len(samples)-1)
	stillCount := 0
	for i := 1; i < len(samples); i++ {
		dt := samples[i].t - samples[i-1].t
		if dt <= 0 {
			continue
		}
		dx := samples[i].x - samples[i-1].x
		dy := samples[i].y - samples[i-1].y
		dist := math.Sqrt(dx*dx + dy*dy)
		totalDist += dist
		speed := dist / dt
		speeds = append(speeds, speed)
		if speed > peakSpeed {
			peakSpeed = speed
		}
		if speed < stillnessSpeed {
			stillCount++
		}
	}
	if len(speeds) == 0 {
		return m
	}

	elapsed := samples[len(samples)-1].t - samples[0].t
	if elapsed > 0 {
		m.AverageSpeed = totalDist / elapsed * a.courtWidthM
	}
	m.PeakSpeed = peakSpeed * a.courtWidthM

	for _, s := range speeds {
		meanSpeed += s
	}
	meanSpeed /= float64(len(speeds))
	for _, s := range speeds {
		speedVar += (s - meanSpeed) * (s - meanSpeed)
	}
	speedVar /= float64(len(speeds))

	// Footwork rewards steady movement: high variance reads as lunging.
	m.Footwork = pose.Clamp(100 - 4000*speedVar)
	m.Balance = a.balanceScore(frames)
	m.Positioning = a.positioningScore(samples[0].x, samples[len(samples)-1].x, minX, maxX)
	// Anticipation: movement that starts before the ball arrives shows up
	// as a higher share of moderate speeds over dead stillness.
	m.Anticipation = pose.Clamp(float64(len(speeds)-stillCount) / float64(len(speeds)) * 100)
	m.ReadyPosition = a.readyPositionScore(frames)
	m.SplitStep = pose.Clamp(float64(stillCount) / float64(len(speeds)) * 200)

	return m
}

// balanceScore measures head sway over hip center across confident frames.
func (a *Aggregator) balanceScore(frames []model.PoseFrame) float64 {
	var sway float64
	count := 0
	for _, pf := range frames {
		if pf.LowConfidence {
			continue
		}
		nose, okN := pf.Keypoint(pose.Nose)
		hip, okH := pose.HipCenter(pf)
		if !okN || !okH {
			continue
		}
		sway += math.Abs(nose.X - hip.X)
		count++
	}
	if count == 0 {
		return 0
	}
	return pose.Clamp(100 - sway/float64(count)*500)
}

// positioningScore rewards returning toward the middle of the covered
// range instead of drifting to an edge.
func (a *Aggregator) positioningScore(firstX, lastX, minX, maxX float64) float64 {
	span := maxX - minX
	if span <= 0 {
		return 50
	}
	center := minX + span/2
	drift := (math.Abs(firstX-center) + math.Abs(lastX-center)) / span
	return pose.Clamp(100 - drift*100)
}

// readyPositionScore checks knee flex: ankles wider than hips and knees
// tracked between them read as an athletic base.
func (a *Aggregator) readyPositionScore(frames []model.PoseFrame) float64 {
	var score float64
	count := 0
	for _, pf := range frames {
		if pf.LowConfidence {
			continue
		}
		lAnkle, ok1 := pf.Keypoint(pose.LeftAnkle)
		rAnkle, ok2 := pf.Keypoint(pose.RightAnkle)
		lHip, ok3 := pf.Keypoint(pose.LeftHip)
		rHip, ok4 := pf.Keypoint(pose.RightHip)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		ankleSpan := math.Abs(lAnkle.X - rAnkle.X)
		hipSpan := math.Abs(lHip.X - rHip.X)
		if ankleSpan >= hipSpan {
			score += 100
		} else if hipSpan > 0 {
			score += ankleSpan / hipSpan * 100
		}
		count++
	}
	if count == 0 {
		return 0
	}
	return pose.Clamp(score / float64(count))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
