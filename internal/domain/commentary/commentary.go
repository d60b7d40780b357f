// Package commentary renders the coaching summary from aggregate
// metrics. Pure function of its inputs: re-rendering from the same
// result always produces identical text.
package commentary

import (
	"fmt"

	"github.com/strokelab/rallylens/internal/domain/model"
)

// Score bands for the opening remark.
const (
	bandStrong = 80.0
	bandSolid  = 60.0
	bandRough  = 40.0
)

// Generator renders coach commentary.
type Generator struct{}

// NewGenerator creates a commentary generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Render produces the four commentary fields from the aggregate scores
// and the player's skill level.
func (g *Generator) Render(overall float64, technical model.TechnicalMetrics, movement model.MovementMetrics, skill model.SkillLevel) model.CoachCommentary {
	return model.CoachCommentary{
		Opening:         opening(overall, skill),
		KeyObservations: observations(technical, movement),
		Encouragement:   encouragement(overall, skill),
		NextSteps:       nextSteps(technical, movement),
	}
}

func opening(overall float64, skill model.SkillLevel) string {
	switch {
	case overall >= bandStrong:
		return fmt.Sprintf("An overall score of %.0f puts this session firmly in the strong column at %s level.", overall, levelWord(skill))
	case overall >= bandSolid:
		return fmt.Sprintf("This was a solid session: %.0f overall, with clear building blocks to work from.", overall)
	case overall >= bandRough:
		return fmt.Sprintf("A score of %.0f shows the fundamentals are forming, even if the session felt scrappy.", overall)
	default:
		return fmt.Sprintf("Today's %.0f is a starting line, not a verdict - every metric below has a concrete fix.", overall)
	}
}

func observations(technical model.TechnicalMetrics, movement model.MovementMetrics) []string {
	obs := make([]string, 0, 4)

	best, bestScore := "follow-through", technical.FollowThrough
	worst, worstScore := best, bestScore
	for name, score := range map[string]float64{
		"follow-through": technical.FollowThrough,
		"body rotation":  technical.BodyRotation,
		"contact point":  technical.ContactPoint,
		"paddle angle":   technical.PaddleAngle,
		"head stability": technical.HeadStability,
	} {
		if score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
		if score < worstScore || (score == worstScore && name < worst) {
			worst, worstScore = name, score
		}
	}
	obs = append(obs, fmt.Sprintf("Strongest technical element: %s at %.0f/100.", best, bestScore))
	if worst != best {
		obs = append(obs, fmt.Sprintf("Biggest technical leak: %s at %.0f/100.", worst, worstScore))
	}

	if movement.CourtCoverage >= 70 {
		obs = append(obs, "Court coverage is wide; you are getting to balls many players concede.")
	} else {
		obs = append(obs, fmt.Sprintf("Court coverage sits at %.0f/100 - the first step to the ball is late.", movement.CourtCoverage))
	}
	if movement.Balance < 60 {
		obs = append(obs, "Head and torso sway during movement is costing you balance at contact.")
	}
	return obs
}

func encouragement(overall float64, skill model.SkillLevel) string {
	if overall >= bandStrong {
		return "Keep this standard up and the next level is a scheduling question, not an ability one."
	}
	if skill == model.SkillBeginner {
		return "Every metric here improves fastest at your stage - expect visible gains within weeks."
	}
	return "The gap between your best and average shots is small; closing it is well within reach."
}

func nextSteps(technical model.TechnicalMetrics, movement model.MovementMetrics) []string {
	steps := make([]string, 0, 3)
	if technical.FollowThrough < 70 {
		steps = append(steps, "Shadow-swing 20 reps a day finishing high over the opposite shoulder.")
	}
	if technical.ContactPoint < 70 {
		steps = append(steps, "Drop-feed drill: meet the ball further in front until contact feels early.")
	}
	if movement.SplitStep < 60 {
		steps = append(steps, "Practice split-stepping on your partner's contact in warm-up rallies.")
	}
	if movement.ReadyPosition < 60 {
		steps = append(steps, "Reset paddle to chest height between every shot, even in drills.")
	}
	if len(steps) == 0 {
		steps = append(steps, "Add match-pressure sets: your mechanics hold up, so stress-test them.")
	}
	return steps
}

func levelWord(skill model.SkillLevel) string {
	switch skill {
	case model.SkillBeginner:
		return "beginner"
	case model.SkillAdvanced:
		return "advanced"
	case model.SkillProfessional:
		return "professional"
	default:
		return "intermediate"
	}
}
