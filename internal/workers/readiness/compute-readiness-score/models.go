// internal/workers/readiness/compute-readiness-score/models.go
package computereadinessscore

import (
	json "github.com/goccy/go-json"

	"nest-readiness/internal/models"
)

// Input carries the profile to score. When SessionID is set the profile
// and score are stored for that session and the score step is completed.
type Input struct {
	SessionID string          `json:"sessionId,omitempty"`
	Profile   json.RawMessage `json:"profile"`
}

type Output struct {
	ReadinessScore int                   `json:"readinessScore"`
	ReadinessLevel models.ReadinessLevel `json:"readinessLevel"`
	ScoreBreakdown ScoreBreakdown        `json:"scoreBreakdown"`
	Persisted      bool                  `json:"persisted"`
	NextStep       string                `json:"nextStep,omitempty"`
}

type ScoreBreakdown struct {
	Finance  int `json:"finance"`
	Coverage int `json:"coverage"`
	Health   int `json:"health"`
	Planning int `json:"planning"`
}
