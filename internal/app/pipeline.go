// Package service provides the analysis service: the nine-stage video
// technique pipeline plus the queue, workers and repository around it.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strokelab/rallylens/internal/domain/commentary"
	"github.com/strokelab/rallylens/internal/domain/insight"
	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/moments"
	"github.com/strokelab/rallylens/internal/domain/movement"
	"github.com/strokelab/rallylens/internal/domain/pose"
	"github.com/strokelab/rallylens/internal/domain/scoring"
	"github.com/strokelab/rallylens/internal/domain/segment"
	"github.com/strokelab/rallylens/internal/domain/shot"
	"github.com/strokelab/rallylens/internal/domain/technique"
	"github.com/strokelab/rallylens/pkg/logger"
	"github.com/strokelab/rallylens/pkg/metrics"
)

// SampleSet is the scoped acquisition returned by a FrameSource. Close
// removes every staged artifact and must be safe to call on all exit
// paths.
type SampleSet interface {
	Frames() []model.Frame
	ImagePath(i int) string
	Duration() float64
	Close() error
}

// FrameSource extracts a time-indexed frame sequence from a video
// reference. The production implementation stages decoded images on
// disk; fakes may serve from memory.
type FrameSource interface {
	Sample(ctx context.Context, videoRef string) (SampleSet, error)
}

// Default pipeline configuration.
const (
	defaultMinConfidentFrames = 10
	defaultPoseWorkers        = 4
	defaultStageTimeout       = 2 * time.Minute

	// progressEvery bounds per-frame progress callbacks.
	progressEvery = 10

	// strengthCutoff selects result-level strengths from sub-scores.
	strengthCutoff = 75.0
)

// Pipeline runs one analysis end to end. All stage components are pure;
// the pipeline owns sequencing, parallelism, cancellation and staging
// cleanup.
type Pipeline struct {
	frames     FrameSource
	estimator  *pose.Estimator
	detector   *shot.Detector
	segmenter  *segment.Segmenter
	movement   *movement.Aggregator
	technique  *technique.Aggregator
	moments    *moments.Identifier
	insight    *insight.Generator
	scoring    *scoring.Engine
	commentary *commentary.Generator

	minConfidentFrames int
	poseWorkers        int
	stageTimeout       time.Duration

	logger logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithDetector replaces the default shot detector.
func WithDetector(d *shot.Detector) PipelineOption {
	return func(p *Pipeline) {
		if d != nil {
			p.detector = d
		}
	}
}

// WithSegmenter replaces the default segmenter.
func WithSegmenter(s *segment.Segmenter) PipelineOption {
	return func(p *Pipeline) {
		if s != nil {
			p.segmenter = s
		}
	}
}

// WithMovementAggregator replaces the default movement aggregator.
func WithMovementAggregator(a *movement.Aggregator) PipelineOption {
	return func(p *Pipeline) {
		if a != nil {
			p.movement = a
		}
	}
}

// WithTechniqueAggregator replaces the default technique aggregator.
func WithTechniqueAggregator(a *technique.Aggregator) PipelineOption {
	return func(p *Pipeline) {
		if a != nil {
			p.technique = a
		}
	}
}

// WithMomentIdentifier replaces the default key-moment identifier.
func WithMomentIdentifier(id *moments.Identifier) PipelineOption {
	return func(p *Pipeline) {
		if id != nil {
			p.moments = id
		}
	}
}

// WithScoringEngine replaces the default scoring engine.
func WithScoringEngine(e *scoring.Engine) PipelineOption {
	return func(p *Pipeline) {
		if e != nil {
			p.scoring = e
		}
	}
}

// WithMinConfidentFrames sets the minimum confident pose frames for a
// viable run.
func WithMinConfidentFrames(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.minConfidentFrames = n
		}
	}
}

// WithPoseWorkers bounds concurrent pose estimations.
func WithPoseWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.poseWorkers = n
		}
	}
}

// WithStageTimeout bounds the pose estimation stage. Zero disables the
// budget.
func WithStageTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d >= 0 {
			p.stageTimeout = d
		}
	}
}

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(log logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.logger = log
		}
	}
}

// NewPipeline creates a pipeline around a frame source and an estimator.
func NewPipeline(frames FrameSource, estimator *pose.Estimator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		frames:             frames,
		estimator:          estimator,
		detector:           shot.NewDetector(),
		segmenter:          segment.NewSegmenter(),
		movement:           movement.NewAggregator(),
		technique:          technique.NewAggregator(),
		moments:            moments.NewIdentifier(),
		insight:            insight.NewGenerator(),
		scoring:            scoring.NewEngine(),
		commentary:         commentary.NewGenerator(),
		minConfidentFrames: defaultMinConfidentFrames,
		poseWorkers:        defaultPoseWorkers,
		stageTimeout:       defaultStageTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("pipeline")
	}
	return p
}

// Run executes every stage and returns one immutable AnalysisResult.
// On any pipeline-level error all staged artifacts are released and no
// partial result is returned.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest, progress ProgressFunc) (*model.AnalysisResult, error) {
	progress.report(Progress{Stage: StageSampling, Percent: 0, Message: "extracting frames"})

	sampleStart := time.Now()
	set, err := p.frames.Sample(ctx, req.VideoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableVideo, err)
	}
	defer func() {
		if cerr := set.Close(); cerr != nil {
			p.logger.Warn(ctx, "failed to release staged frames", logger.Error(cerr))
		}
	}()

	frames := set.Frames()
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: source yielded zero frames", ErrUnreadableVideo)
	}
	metrics.RecordFramesSampled(len(frames))
	metrics.RecordStageDuration(StageSampling, float64(time.Since(sampleStart).Milliseconds()))
	progress.report(Progress{Stage: StageSampling, Percent: 100, TotalFrames: len(frames), Message: "frames extracted"})

	poseFrames, err := p.estimatePoses(ctx, set, progress)
	if err != nil {
		return nil, err
	}

	confident := 0
	for _, pf := range poseFrames {
		if !pf.LowConfidence {
			confident++
		}
	}
	if confident < p.minConfidentFrames {
		return nil, fmt.Errorf("%w: confident pose on %d of %d frames (minimum %d)",
			ErrInsufficientPoseData, confident, len(poseFrames), p.minConfidentFrames)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress.report(Progress{Stage: StageShotDetection, Percent: 0, Message: "detecting shots"})
	detectStart := time.Now()
	shots, err := p.detector.Detect(ctx, poseFrames)
	if err != nil {
		return nil, err
	}
	for _, s := range shots {
		metrics.RecordShotDetected(string(s.Type))
	}
	metrics.RecordStageDuration(StageShotDetection, float64(time.Since(detectStart).Milliseconds()))
	progress.report(Progress{Stage: StageShotDetection, Percent: 100, Message: fmt.Sprintf("%d shots detected", len(shots))})

	progress.report(Progress{Stage: StageSegmentation, Percent: 0, Message: "segmenting timeline"})
	segments := p.segmenter.Segment(shots, set.Duration())
	progress.report(Progress{Stage: StageSegmentation, Percent: 100, Message: fmt.Sprintf("%d segments", len(segments))})

	// Movement and technical aggregation are mutually independent; run
	// them concurrently over the completed pose sequence.
	progress.report(Progress{Stage: StageMetrics, Percent: 0, Message: "aggregating metrics"})
	metricsStart := time.Now()
	var (
		wg      sync.WaitGroup
		mm      model.MovementMetrics
		tm      model.TechnicalMetrics
		techErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		mm = p.movement.Aggregate(poseFrames)
	}()
	go func() {
		defer wg.Done()
		tm, techErr = p.technique.Aggregate(poseFrames)
	}()
	wg.Wait()
	if techErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientPoseData, techErr)
	}
	metrics.RecordStageDuration(StageMetrics, float64(time.Since(metricsStart).Milliseconds()))
	progress.report(Progress{Stage: StageMetrics, Percent: 100, Message: "metrics aggregated"})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress.report(Progress{Stage: StageKeyMoments, Percent: 0, Message: "identifying key moments"})
	keyMoments := p.moments.Identify(shots)
	progress.report(Progress{Stage: StageKeyMoments, Percent: 100, Message: fmt.Sprintf("%d key moments", len(keyMoments))})

	progress.report(Progress{Stage: StageInsights, Percent: 0, Message: "deriving strategic insights"})
	insights := p.insight.Generate(shots, segments)
	progress.report(Progress{Stage: StageInsights, Percent: 100, Message: "insights ready"})

	progress.report(Progress{Stage: StageScoring, Percent: 0, Message: "scoring and benchmarking"})
	stats := scoring.Statistics(shots)
	overall := p.scoring.Overall(tm.Overall, mm.Composite(), stats.SuccessRate)
	comparison := p.scoring.Compare(req.SkillLevel, overall, tm, mm)
	progress.report(Progress{Stage: StageScoring, Percent: 100, Message: fmt.Sprintf("overall score %.1f", overall)})

	progress.report(Progress{Stage: StageCommentary, Percent: 0, Message: "rendering commentary"})
	coach := p.commentary.Render(overall, tm, mm, req.SkillLevel)
	progress.report(Progress{Stage: StageCommentary, Percent: 100, Message: "commentary ready"})

	result := &model.AnalysisResult{
		AnalysisID:    req.AnalysisID,
		VideoID:       req.VideoID,
		UserID:        req.UserID,
		SkillLevel:    req.SkillLevel,
		AnalysisType:  req.AnalysisType,
		VideoDuration: set.Duration(),
		FrameCount:    len(frames),
		CreatedAt:     time.Now().UTC(),

		PoseFrames: poseFrames,
		Shots:      shots,
		Segments:   segments,
		KeyMoments: keyMoments,

		Movement:  mm,
		Technical: tm,

		OverallScore:            overall,
		ShotStatistics:          stats,
		StrategicInsights:       insights,
		Comparison:              comparison,
		Strengths:               strengthsOf(tm, mm),
		Weaknesses:              weaknessesOf(comparison),
		PrioritizedImprovements: prioritized(comparison),
		Commentary:              coach,
	}

	metrics.RecordOverallScore(overall)
	return result, nil
}

// estimatePoses fans frames out over a bounded worker pool and
// reassembles pose frames in frame order. Per-frame estimate failures
// are logged and skipped; cancellation and the stage budget abort.
func (p *Pipeline) estimatePoses(parent context.Context, set SampleSet, progress ProgressFunc) ([]model.PoseFrame, error) {
	frames := set.Frames()
	total := len(frames)

	ctx := parent
	cancel := context.CancelFunc(func() {})
	if p.stageTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, p.stageTimeout)
	}
	defer cancel()

	progress.report(Progress{Stage: StagePoseEstimation, Percent: 0, TotalFrames: total, Message: "estimating poses"})
	stageStart := time.Now()

	results := make([]model.PoseFrame, total)
	skipped := make([]bool, total)
	var done atomic.Int64
	gate := &progressGate{}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.poseWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				frameStart := time.Now()
				pf, err := p.estimator.Estimate(ctx, pose.FrameImage{Frame: frames[i], Path: set.ImagePath(i)})
				metrics.RecordPoseLatency(float64(time.Since(frameStart).Milliseconds()))
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					p.logger.Warn(ctx, "pose estimate failed; skipping frame",
						logger.Int("frame", frames[i].Index), logger.Error(err))
					skipped[i] = true
				} else {
					results[i] = pf
					metrics.RecordPoseEstimated()
					if pf.LowConfidence {
						metrics.RecordPoseLowConfidence()
					}
				}

				n := int(done.Add(1))
				if n%progressEvery == 0 || n == total {
					gate.report(progress, Progress{
						Stage:        StagePoseEstimation,
						Percent:      n * 100 / total,
						CurrentFrame: n,
						TotalFrames:  total,
						Message:      "estimating poses",
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		return nil, fmt.Errorf("%w: pose estimation exceeded %s", ErrStageTimeout, p.stageTimeout)
	}

	metrics.RecordStageDuration(StagePoseEstimation, float64(time.Since(stageStart).Milliseconds()))

	out := make([]model.PoseFrame, 0, total)
	for i := range results {
		if !skipped[i] {
			out = append(out, results[i])
		}
	}
	return out, nil
}

// progressGate keeps concurrent per-frame reports monotonic.
type progressGate struct {
	mu   sync.Mutex
	last int
}

func (g *progressGate) report(fn ProgressFunc, p Progress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.Percent < g.last {
		return
	}
	g.last = p.Percent
	fn.report(p)
}

// strengthsOf names the sub-scores already at a strong level.
func strengthsOf(tm model.TechnicalMetrics, mm model.MovementMetrics) []string {
	var out []string
	for _, c := range []struct {
		name  string
		score float64
	}{
		{"follow-through", tm.FollowThrough},
		{"body rotation", tm.BodyRotation},
		{"contact point", tm.ContactPoint},
		{"head stability", tm.HeadStability},
		{"court coverage", mm.CourtCoverage},
		{"footwork", mm.Footwork},
		{"balance", mm.Balance},
	} {
		if c.score >= strengthCutoff {
			out = append(out, c.name)
		}
	}
	return out
}

// weaknessesOf lists the benchmark areas with the largest gaps.
func weaknessesOf(cmp model.Comparison) []string {
	var out []string
	for _, a := range cmp.ImprovementAreas {
		if a.Priority == model.ImpactHigh || a.Priority == model.ImpactMedium {
			out = append(out, a.Area)
		}
	}
	return out
}

// prioritized renders the ranked improvement plan.
func prioritized(cmp model.Comparison) []string {
	out := make([]string, 0, len(cmp.ImprovementAreas))
	for _, a := range cmp.ImprovementAreas {
		out = append(out, fmt.Sprintf("%s: %.0f -> %.0f (%s)", a.Area, a.Current, a.Target, a.TimeToImprove))
	}
	return out
}
