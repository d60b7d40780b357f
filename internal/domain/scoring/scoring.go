// Package scoring folds technical, movement and shot-success metrics
// into a single overall score and benchmarks it against skill-level
// reference targets.
package scoring

import (
	"sort"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

// Default scoring weights. Tunable configuration, not a contract.
const (
	defaultTechnicalWeight = 0.4
	defaultMovementWeight  = 0.3
	defaultSuccessWeight   = 0.3
)

// skillTargets maps a skill level to its benchmark overall score.
var skillTargets = map[model.SkillLevel]float64{ //nolint:gochecknoglobals // fixed benchmark table
	model.SkillBeginner:     40,
	model.SkillIntermediate: 60,
	model.SkillAdvanced:     75,
	model.SkillProfessional: 90,
}

// Engine computes overall scores and benchmark comparisons.
type Engine struct {
	technicalWeight float64
	movementWeight  float64
	successWeight   float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the three folding weights. Non-positive sums are
// ignored and defaults kept.
func WithWeights(technical, movement, success float64) Option {
	return func(e *Engine) {
		if technical+movement+success > 0 {
			e.technicalWeight = technical
			e.movementWeight = movement
			e.successWeight = success
		}
	}
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		technicalWeight: defaultTechnicalWeight,
		movementWeight:  defaultMovementWeight,
		successWeight:   defaultSuccessWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Overall folds the three composite inputs into one [0,100] score.
// successRate is a ratio in [0,1].
func (e *Engine) Overall(technicalOverall, movementComposite, successRate float64) float64 {
	score := technicalOverall*e.technicalWeight +
		movementComposite*e.movementWeight +
		successRate*100*e.successWeight
	return pose.Clamp(score)
}

// Compare benchmarks the computed metrics against the player's declared
// skill level and ranks the improvement areas by gap size.
func (e *Engine) Compare(skill model.SkillLevel, overall float64, technical model.TechnicalMetrics, movement model.MovementMetrics) model.Comparison {
	target, ok := skillTargets[skill]
	if !ok {
		skill = model.SkillIntermediate
		target = skillTargets[skill]
	}

	areas := []model.ImprovementArea{
		area("follow-through", technical.FollowThrough, target),
		area("body rotation", technical.BodyRotation, target),
		area("contact point", technical.ContactPoint, target),
		area("head stability", technical.HeadStability, target),
		area("footwork", movement.Footwork, target),
		area("court positioning", movement.Positioning, target),
		area("ready position", movement.ReadyPosition, target),
		area("split step timing", movement.SplitStep, target),
	}

	// Largest gap first; areas already at target drop out.
	ranked := areas[:0]
	for _, a := range areas {
		if a.Target > a.Current {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Target-ranked[i].Current > ranked[j].Target-ranked[j].Current
	})

	return model.Comparison{
		SkillLevel:       skill,
		TargetScore:      target,
		Gap:              target - overall,
		ImprovementAreas: ranked,
	}
}

// area builds one improvement entry with gap-derived priority.
func area(name string, current, target float64) model.ImprovementArea {
	gap := target - current
	priority := model.ImpactLow
	timeToImprove := "1-2 weeks"
	switch {
	case gap >= 30:
		priority = model.ImpactHigh
		timeToImprove = "2-3 months"
	case gap >= 15:
		priority = model.ImpactMedium
		timeToImprove = "3-6 weeks"
	}
	return model.ImprovementArea{
		Area:          name,
		Current:       current,
		Target:        target,
		Priority:      priority,
		TimeToImprove: timeToImprove,
	}
}

// Statistics summarizes the detected shot set for the result aggregate.
func Statistics(shots []model.ShotEvent) model.ShotStatistics {
	stats := model.ShotStatistics{ByType: map[model.ShotType]int{}}
	if len(shots) == 0 {
		return stats
	}

	successes := 0
	var qualitySum float64
	for _, s := range shots {
		stats.ByType[s.Type]++
		if s.Success {
			successes++
		}
		qualitySum += s.Quality
	}
	stats.TotalShots = len(shots)
	stats.SuccessRate = float64(successes) / float64(len(shots))
	stats.AverageQuality = qualitySum / float64(len(shots))

	bestN := 0
	for t, n := range stats.ByType {
		if n > bestN || (n == bestN && t < stats.MostCommon) {
			stats.MostCommon, bestN = t, n
		}
	}
	return stats
}
