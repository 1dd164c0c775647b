// internal/models/score.go
package models

// ReadinessLevel buckets the overall score for display.
type ReadinessLevel string

const (
	LevelOnTrack        ReadinessLevel = "on-track"
	LevelSteady         ReadinessLevel = "steady"
	LevelNeedsAttention ReadinessLevel = "needs-attention"
	LevelAtRisk         ReadinessLevel = "at-risk"
)

// ReadinessScore is derived from a Profile and never edited directly.
// Every field is in [0, 100].
type ReadinessScore struct {
	Finance  int            `json:"finance"`
	Coverage int            `json:"coverage"`
	Health   int            `json:"health"`
	Planning int            `json:"planning"`
	Overall  int            `json:"overall"`
	Level    ReadinessLevel `json:"level"`
}
