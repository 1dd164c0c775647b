// internal/workers/navigation/complete-navigation-step/models.go
package completenavigationstep

import "nest-readiness/internal/models"

// Input names the session and the step to mark complete. VisitRoute, when
// set, is recorded in the navigation history afterwards.
type Input struct {
	SessionID  string `json:"sessionId"`
	Step       string `json:"step"`
	VisitRoute string `json:"visitRoute,omitempty"`
}

type Output struct {
	CompletedSteps         []models.Step `json:"completedSteps"`
	HasCompletedOnboarding bool          `json:"hasCompletedOnboarding"`
	HasCompletedScore      bool          `json:"hasCompletedScore"`
	CanAccessHub           bool          `json:"canAccessHub"`
	UserScore              *int          `json:"userScore,omitempty"`
	NextStep               string        `json:"nextStep"`
}
