// Package insight derives strategic observations from the shot and
// segment history. Heuristic and explainable: every output traces back
// to a distributional fact about the underlying shots or segments.
package insight

import (
	"fmt"
	"sort"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

// placementBias flags a recurring pattern when this share of shots lands
// in one placement zone.
const placementBias = 0.6

// Generator derives strategic insights.
type Generator struct{}

// NewGenerator creates an insight generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate summarizes shot selection, recurring patterns, tactical
// suggestions and mental-game observations.
func (g *Generator) Generate(shots []model.ShotEvent, segments []model.VideoSegment) model.StrategicInsights {
	insights := model.StrategicInsights{
		ShotSelection: shotSelection(shots),
		Patterns:      patterns(shots),
	}
	insights.TacticalAdvice = tacticalAdvice(shots, insights.ShotSelection)
	insights.MentalGame = mentalGame(shots, segments)
	return insights
}

// shotSelection grades effectiveness, variety and consistency from the
// type and outcome distribution.
func shotSelection(shots []model.ShotEvent) model.ShotSelection {
	if len(shots) == 0 {
		return model.ShotSelection{}
	}

	byType := map[model.ShotType]int{}
	successes := 0
	var qualitySum, qualityVar float64
	for _, s := range shots {
		byType[s.Type]++
		if s.Success {
			successes++
		}
		qualitySum += s.Quality
	}
	meanQuality := qualitySum / float64(len(shots))
	for _, s := range shots {
		qualityVar += (s.Quality - meanQuality) * (s.Quality - meanQuality)
	}
	qualityVar /= float64(len(shots))

	return model.ShotSelection{
		Effectiveness: pose.Clamp(float64(successes) / float64(len(shots)) * 100),
		Variety:       pose.Clamp(float64(len(byType)) / 5.0 * 100),
		Consistency:   pose.Clamp(100 - qualityVar/4),
	}
}

// patterns lists recurring, data-backed tendencies.
func patterns(shots []model.ShotEvent) []string {
	if len(shots) == 0 {
		return nil
	}
	var out []string

	placements := map[string]int{}
	for _, s := range shots {
		placements[s.Placement]++
	}
	for _, zone := range []string{"left", "center", "right"} {
		if float64(placements[zone]) >= placementBias*float64(len(shots)) {
			out = append(out, fmt.Sprintf("%.0f%% of shots placed %s: opponents can camp that zone",
				float64(placements[zone])/float64(len(shots))*100, zone))
		}
	}

	// Error streaks: consecutive unsuccessful shots signal compounding.
	streak, maxStreak := 0, 0
	for _, s := range shots {
		if s.Success {
			streak = 0
			continue
		}
		streak++
		if streak > maxStreak {
			maxStreak = streak
		}
	}
	if maxStreak >= 3 {
		out = append(out, fmt.Sprintf("longest error streak ran %d shots: errors are compounding", maxStreak))
	}

	if favorite, share := dominantType(shots); share >= placementBias {
		out = append(out, fmt.Sprintf("%s makes up %.0f%% of all shots", favorite, share*100))
	}

	return out
}

// tacticalAdvice turns the measured distribution into suggestions.
func tacticalAdvice(shots []model.ShotEvent, selection model.ShotSelection) []string {
	var advice []string
	if selection.Variety < 50 {
		advice = append(advice, "Mix in more shot types to stay unpredictable")
	}
	if selection.Effectiveness < 60 {
		advice = append(advice, "Choose higher-percentage shots when pulled out of position")
	}

	dinks := 0
	for _, s := range shots {
		if s.Type == model.ShotDink {
			dinks++
		}
	}
	if len(shots) > 0 && float64(dinks)/float64(len(shots)) < 0.15 {
		advice = append(advice, "Use the soft game more: dinks reset the point when under pressure")
	}
	if len(advice) == 0 {
		advice = append(advice, "Shot selection is balanced; work on execution speed")
	}
	return advice
}

// mentalGame infers composure from rally length vs error rate: errors
// concentrated in long segments suggest fatigue or pressure.
func mentalGame(shots []model.ShotEvent, segments []model.VideoSegment) model.MentalGame {
	mg := model.MentalGame{Composure: 50}
	if len(shots) == 0 || len(segments) == 0 {
		return mg
	}

	stats := make([]segStat, 0, len(segments))
	for _, seg := range segments {
		st := segStat{length: seg.EndTime - seg.StartTime}
		for _, s := range shots {
			if s.Timestamp >= seg.StartTime && s.Timestamp < seg.EndTime {
				st.shots++
				if !s.Success {
					st.errors++
				}
			}
		}
		if st.shots > 0 {
			stats = append(stats, st)
		}
	}
	if len(stats) == 0 {
		return mg
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].length < stats[j].length })
	half := len(stats) / 2
	shortErrRate := errorRate(stats[:max(half, 1)])
	longErrRate := errorRate(stats[min(half, len(stats)-1):])

	mg.Composure = pose.Clamp(100 - (longErrRate-shortErrRate)*200 - longErrRate*50)
	switch {
	case longErrRate > shortErrRate+0.2:
		mg.Observations = append(mg.Observations,
			"Error rate climbs noticeably in longer rallies: focus fades as points extend")
	case longErrRate < shortErrRate:
		mg.Observations = append(mg.Observations,
			"Longer rallies are cleaner than short ones: patience is a strength")
	default:
		mg.Observations = append(mg.Observations,
			"Error rate stays level across rally lengths: composure holds up")
	}
	return mg
}

// segStat pairs a segment's length with its shot outcomes.
type segStat struct {
	length float64
	errors int
	shots  int
}

func errorRate(stats []segStat) float64 {
	var errs, shots int
	for _, st := range stats {
		errs += st.errors
		shots += st.shots
	}
	if shots == 0 {
		return 0
	}
	return float64(errs) / float64(shots)
}

func dominantType(shots []model.ShotEvent) (model.ShotType, float64) {
	byType := map[model.ShotType]int{}
	for _, s := range shots {
		byType[s.Type]++
	}
	var best model.ShotType
	bestN := 0
	for t, n := range byType {
		if n > bestN || (n == bestN && t < best) {
			best, bestN = t, n
		}
	}
	if len(shots) == 0 {
		return best, 0
	}
	return best, float64(bestN) / float64(len(shots))
}
