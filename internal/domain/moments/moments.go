// Package moments surfaces a small ranked set of strength and
// improvement moments from the detected shots.
package moments

import (
	"fmt"
	"sort"

	"github.com/strokelab/rallylens/internal/domain/model"
)

// Default identifier configuration.
const (
	defaultStrengthQuality = 80.0
	defaultMaxPerKind      = 3
	criticalQuality        = 30.0
)

// Identifier selects and ranks key moments.
type Identifier struct {
	strengthQuality float64
	maxPerKind      int
}

// Option applies a configuration option to the Identifier.
type Option func(*Identifier)

// WithStrengthQuality sets the shot quality above which a strength
// moment is recorded.
func WithStrengthQuality(q float64) Option {
	return func(id *Identifier) {
		if q > 0 && q <= 100 {
			id.strengthQuality = q
		}
	}
}

// WithMaxPerKind caps the number of moments kept per kind.
func WithMaxPerKind(n int) Option {
	return func(id *Identifier) {
		if n > 0 {
			id.maxPerKind = n
		}
	}
}

// NewIdentifier creates an identifier with configuration options.
func NewIdentifier(opts ...Option) *Identifier {
	id := &Identifier{
		strengthQuality: defaultStrengthQuality,
		maxPerKind:      defaultMaxPerKind,
	}
	for _, opt := range opts {
		opt(id)
	}
	return id
}

// Identify cross-references shot quality and error flags to produce a
// capped, timestamp-ordered moment list. Every moment references a real
// shot timestamp inside the analyzed timeline.
func (id *Identifier) Identify(shots []model.ShotEvent) []model.KeyMoment {
	var strengths, improvements []model.KeyMoment

	for _, shot := range shots {
		if shot.Quality >= id.strengthQuality {
			strengths = append(strengths, model.KeyMoment{
				Timestamp:      shot.Timestamp,
				Kind:           model.MomentStrength,
				Category:       string(shot.Type),
				Title:          fmt.Sprintf("Well-executed %s", shot.Type),
				Description:    fmt.Sprintf("%s at %.1fs scored %.0f/100", shot.Type, shot.Timestamp, shot.Quality),
				Recommendation: "Keep reproducing this form under pressure",
				Impact:         impactForQuality(shot.Quality),
			})
			continue
		}
		if len(shot.Errors) == 0 {
			continue
		}
		kind := model.MomentImprovement
		if shot.Quality < criticalQuality {
			kind = model.MomentCritical
		}
		recommendation := "Review this stroke in slow motion"
		if len(shot.Improvements) > 0 {
			recommendation = shot.Improvements[0]
		}
		improvements = append(improvements, model.KeyMoment{
			Timestamp:      shot.Timestamp,
			Kind:           kind,
			Category:       string(shot.Type),
			Title:          fmt.Sprintf("%s needs attention", shot.Type),
			Description:    shot.Errors[0],
			Recommendation: recommendation,
			Impact:         impactForGap(id.strengthQuality - shot.Quality),
		})
	}

	// Rank within each kind, cap, then restore timeline order.
	sort.SliceStable(strengths, func(i, j int) bool {
		return qualityOf(shots, strengths[i].Timestamp) > qualityOf(shots, strengths[j].Timestamp)
	})
	sort.SliceStable(improvements, func(i, j int) bool {
		return qualityOf(shots, improvements[i].Timestamp) < qualityOf(shots, improvements[j].Timestamp)
	})
	if len(strengths) > id.maxPerKind {
		strengths = strengths[:id.maxPerKind]
	}
	if len(improvements) > id.maxPerKind {
		improvements = improvements[:id.maxPerKind]
	}

	out := append(strengths, improvements...) //nolint:gocritic // merged slice is sorted next
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func qualityOf(shots []model.ShotEvent, timestamp float64) float64 {
	for _, s := range shots {
		if s.Timestamp == timestamp {
			return s.Quality
		}
	}
	return 0
}

func impactForQuality(q float64) model.Impact {
	if q >= 90 {
		return model.ImpactHigh
	}
	return model.ImpactMedium
}

func impactForGap(gap float64) model.Impact {
	switch {
	case gap >= 40:
		return model.ImpactHigh
	case gap >= 20:
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}
