package navigation

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"nest-readiness/internal/models"
)

// ParseError is returned when a persisted navigation value cannot be
// decoded. Callers choose what to do with it; Open falls back to the
// initial state.
type ParseError struct {
	Key string
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// storedState is the wire form of navigation-state. Older writers stored
// the derived flags next to completedSteps; they are read and folded into
// the step set but never written.
type storedState struct {
	CompletedSteps         []models.Step `json:"completedSteps"`
	UserScore              *float64      `json:"userScore"`
	NavigationHistory      []string      `json:"navigationHistory"`
	HasCompletedOnboarding *bool         `json:"hasCompletedOnboarding,omitempty"`
	HasCompletedScore      *bool         `json:"hasCompletedScore,omitempty"`
	CanAccessHub           *bool         `json:"canAccessHub,omitempty"`
}

// Decode parses a navigation-state value.
func Decode(raw string) (models.NavigationState, error) {
	state := models.NewNavigationState()
	if strings.TrimSpace(raw) == "" {
		return state, &ParseError{Key: KeyState, Raw: raw, Err: fmt.Errorf("empty value")}
	}

	var stored storedState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return state, &ParseError{Key: KeyState, Raw: raw, Err: err}
	}

	for _, step := range stored.CompletedSteps {
		if step != "" {
			state.AddStep(step)
		}
	}
	if isTrue(stored.HasCompletedOnboarding) {
		state.AddStep(models.StepOnboarding)
	}
	if isTrue(stored.HasCompletedScore) || isTrue(stored.CanAccessHub) {
		state.AddStep(models.StepScore)
	}
	if stored.UserScore != nil {
		score := clampScore(*stored.UserScore)
		state.UserScore = &score
	}
	for _, route := range stored.NavigationHistory {
		if route != "" {
			state.NavigationHistory = append(state.NavigationHistory, route)
		}
	}
	return state, nil
}

// Encode serializes only the source-of-truth fields.
func Encode(state models.NavigationState) (string, error) {
	if state.CompletedSteps == nil {
		state.CompletedSteps = []models.Step{}
	}
	if state.NavigationHistory == nil {
		state.NavigationHistory = []string{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeLegacyBool(key, raw string) (bool, error) {
	var v bool
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return false, &ParseError{Key: key, Raw: raw, Err: err}
	}
	return v, nil
}

func decodeLegacyScore(key, raw string) (*int, error) {
	var v *float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil, &ParseError{Key: key, Raw: raw, Err: err}
	}
	if v == nil {
		return nil, nil
	}
	score := clampScore(*v)
	return &score, nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func clampScore(v float64) int {
	switch {
	case v != v || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v + 0.5)
}
