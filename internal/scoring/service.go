package scoring

import (
	"context"

	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/models"
)

// Engine is Compute with logging and metrics attached.
type Engine struct {
	logger logger.Logger
	obs    *observability.Observability
}

func NewEngine(log logger.Logger, obs *observability.Observability) *Engine {
	return &Engine{logger: log, obs: obs}
}

// Score normalizes the profile as a finished one, scores it and records
// the result.
func (e *Engine) Score(ctx context.Context, profile models.Profile) models.ReadinessScore {
	score := Compute(profile.NormalizeComplete())

	metrics.ScoresComputed.WithLabelValues(string(score.Level)).Inc()
	metrics.OverallScore.Observe(float64(score.Overall))
	e.obs.RecordScore(ctx, string(score.Level))

	e.logger.Debug("Readiness score computed", map[string]interface{}{
		"finance":  score.Finance,
		"coverage": score.Coverage,
		"health":   score.Health,
		"planning": score.Planning,
		"overall":  score.Overall,
		"level":    score.Level,
	})
	return score
}
