// Package profile persists the user's answers and the score derived from
// them.
package profile

import (
	"context"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/models"
	"nest-readiness/internal/storage"
)

// Persisted keys.
const (
	KeyOnboardingStep = "onboarding-step"
	KeyOnboardingData = "onboarding-data"
	KeyReadinessData  = "readiness-data"
	KeyReadinessScore = "readiness-score"
)

// Scorer computes a readiness score. *scoring.Engine implements it.
type Scorer interface {
	Score(ctx context.Context, p models.Profile) models.ReadinessScore
}

// Store reads and writes profile keys. Values that fail to decode are
// logged and treated as absent.
type Store struct {
	kv     storage.KV
	scorer Scorer
	logger logger.Logger
}

func NewStore(kv storage.KV, scorer Scorer, log logger.Logger) *Store {
	return &Store{kv: kv, scorer: scorer, logger: log}
}

// OnboardingProgress returns the saved onboarding step and answers, or a
// zero progress when nothing usable is stored.
func (s *Store) OnboardingProgress(ctx context.Context) (models.OnboardingProgress, error) {
	var progress models.OnboardingProgress

	raw, found, err := s.kv.Get(ctx, KeyOnboardingStep)
	if err != nil {
		return progress, err
	}
	if found {
		step, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || step < 0 {
			s.fallback(KeyOnboardingStep, raw, err)
		} else {
			progress.Step = step
		}
	}

	data, _, err := s.loadProfile(ctx, KeyOnboardingData)
	if err != nil {
		return progress, err
	}
	progress.Data = data
	return progress, nil
}

func (s *Store) SaveOnboardingProgress(ctx context.Context, progress models.OnboardingProgress) error {
	if progress.Step < 0 {
		progress.Step = 0
	}
	if err := s.kv.Set(ctx, KeyOnboardingStep, strconv.Itoa(progress.Step)); err != nil {
		return err
	}
	return s.saveJSON(ctx, KeyOnboardingData, progress.Data.Normalize())
}

// Readiness returns the profile saved at the end of the readiness flow.
func (s *Store) Readiness(ctx context.Context) (models.Profile, bool, error) {
	p, found, err := s.loadProfile(ctx, KeyReadinessData)
	if err != nil || !found {
		return p, found, err
	}
	return p.NormalizeComplete(), true, nil
}

// SaveReadiness stores the normalized profile, recomputes its score and
// stores that too.
func (s *Store) SaveReadiness(ctx context.Context, p models.Profile) (models.ReadinessScore, error) {
	p = p.NormalizeComplete()
	if err := s.saveJSON(ctx, KeyReadinessData, p); err != nil {
		return models.ReadinessScore{}, err
	}

	score := s.scorer.Score(ctx, p)
	if err := s.saveJSON(ctx, KeyReadinessScore, score); err != nil {
		return models.ReadinessScore{}, err
	}
	return score, nil
}

// Score returns the stored score. If it is missing or unreadable but a
// readiness profile exists, the score is recomputed from the profile.
func (s *Store) Score(ctx context.Context) (models.ReadinessScore, bool, error) {
	var score models.ReadinessScore

	raw, found, err := s.kv.Get(ctx, KeyReadinessScore)
	if err != nil {
		return score, false, err
	}
	if found {
		err := json.Unmarshal([]byte(raw), &score)
		if err == nil {
			return score, true, nil
		}
		s.fallback(KeyReadinessScore, raw, err)
	}

	p, found, err := s.Readiness(ctx)
	if err != nil || !found {
		return models.ReadinessScore{}, false, err
	}
	return s.scorer.Score(ctx, p), true, nil
}

func (s *Store) loadProfile(ctx context.Context, key string) (models.Profile, bool, error) {
	var p models.Profile

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil || !found {
		return p, false, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.fallback(key, raw, err)
		return models.Profile{}, false, nil
	}
	return p.Normalize(), true, nil
}

func (s *Store) saveJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(data))
}

func (s *Store) fallback(key, raw string, err error) {
	metrics.StateDecodeFailures.WithLabelValues(key).Inc()
	fields := map[string]interface{}{
		"key":    key,
		"length": len(raw),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logger.Warn("Ignoring malformed persisted value", fields)
}
