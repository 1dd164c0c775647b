// internal/models/navigation.go
package models

import "sort"

// Step identifies an onboarding or hub milestone.
type Step string

const (
	StepOnboarding Step = "onboarding"
	StepScore      Step = "score"
	StepHub        Step = "hub"
)

const (
	RouteOnboarding     = "/onboarding"
	RouteReadinessScore = "/readiness-score"
	RouteHub            = "/hub"
)

// NavigationState is the persisted form of a user's progress. The
// onboarding/score/hub flags are derived from CompletedSteps and are not
// stored.
type NavigationState struct {
	CompletedSteps    []Step   `json:"completedSteps"`
	UserScore         *int     `json:"userScore"`
	NavigationHistory []string `json:"navigationHistory"`
}

// NewNavigationState returns the initial state.
func NewNavigationState() NavigationState {
	return NavigationState{
		CompletedSteps:    []Step{},
		NavigationHistory: []string{},
	}
}

func (s NavigationState) HasStep(step Step) bool {
	for _, st := range s.CompletedSteps {
		if st == step {
			return true
		}
	}
	return false
}

// AddStep inserts step keeping CompletedSteps sorted and unique. It reports
// whether the state changed.
func (s *NavigationState) AddStep(step Step) bool {
	if s.HasStep(step) {
		return false
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	sort.Slice(s.CompletedSteps, func(i, j int) bool { return s.CompletedSteps[i] < s.CompletedSteps[j] })
	return true
}

func (s NavigationState) HasCompletedOnboarding() bool {
	return s.HasStep(StepOnboarding)
}

func (s NavigationState) HasCompletedScore() bool {
	return s.HasStep(StepScore)
}

// CanAccessHub opens together with the score step.
func (s NavigationState) CanAccessHub() bool {
	return s.HasStep(StepScore)
}

// Clone returns a deep copy.
func (s NavigationState) Clone() NavigationState {
	out := NavigationState{
		CompletedSteps:    append([]Step{}, s.CompletedSteps...),
		NavigationHistory: append([]string{}, s.NavigationHistory...),
	}
	if s.UserScore != nil {
		score := *s.UserScore
		out.UserScore = &score
	}
	return out
}

// NavigationSnapshot is the read view handed to callers.
type NavigationSnapshot struct {
	CompletedSteps         []Step   `json:"completedSteps"`
	HasCompletedOnboarding bool     `json:"hasCompletedOnboarding"`
	HasCompletedScore      bool     `json:"hasCompletedScore"`
	CanAccessHub           bool     `json:"canAccessHub"`
	UserScore              *int     `json:"userScore"`
	NavigationHistory      []string `json:"navigationHistory"`
	NextStep               string   `json:"nextStep"`
	GatingEnforced         bool     `json:"gatingEnforced"`
}

// OnboardingProgress is the mid-onboarding snapshot: the current step index
// and whatever answers were collected so far.
type OnboardingProgress struct {
	Step int     `json:"step"`
	Data Profile `json:"data"`
}
