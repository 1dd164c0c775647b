package navigation

import (
	"context"

	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/models"
	"nest-readiness/internal/storage"
)

// Persisted keys.
const (
	KeyState = "navigation-state"

	LegacyKeyOnboarding = "hasCompletedOnboarding"
	LegacyKeyScore      = "hasCompletedScore"
	LegacyKeyUserScore  = "userScore"
)

// Keys lists every key the navigation state owns, legacy keys included.
func Keys() []string {
	return []string{KeyState, LegacyKeyOnboarding, LegacyKeyScore, LegacyKeyUserScore}
}

// Persister loads and stores navigation state.
type Persister interface {
	Load(ctx context.Context) (models.NavigationState, error)
	Save(ctx context.Context, state models.NavigationState) error
	Clear(ctx context.Context) error
}

// KVPersister keeps navigation state under KeyState in a storage.KV and
// merges the legacy flag keys on load.
type KVPersister struct {
	kv     storage.KV
	logger logger.Logger
}

func NewKVPersister(kv storage.KV, log logger.Logger) *KVPersister {
	return &KVPersister{kv: kv, logger: log}
}

// Load returns the stored state. A malformed navigation-state yields a
// *ParseError; malformed legacy keys are skipped with a warning. Storage
// failures are returned as is.
func (p *KVPersister) Load(ctx context.Context) (models.NavigationState, error) {
	state := models.NewNavigationState()

	raw, found, err := p.kv.Get(ctx, KeyState)
	if err != nil {
		return state, err
	}
	if found {
		decoded, err := Decode(raw)
		if err != nil {
			return state, err
		}
		state = decoded
	}

	if err := p.mergeLegacy(ctx, &state); err != nil {
		return state, err
	}
	return state, nil
}

func (p *KVPersister) mergeLegacy(ctx context.Context, state *models.NavigationState) error {
	for _, key := range []string{LegacyKeyOnboarding, LegacyKeyScore} {
		raw, found, err := p.kv.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		done, err := decodeLegacyBool(key, raw)
		if err != nil {
			p.skipLegacy(key, err)
			continue
		}
		if !done {
			continue
		}
		if key == LegacyKeyOnboarding {
			state.AddStep(models.StepOnboarding)
		} else {
			state.AddStep(models.StepScore)
		}
	}

	raw, found, err := p.kv.Get(ctx, LegacyKeyUserScore)
	if err != nil {
		return err
	}
	if found && state.UserScore == nil {
		score, err := decodeLegacyScore(LegacyKeyUserScore, raw)
		if err != nil {
			p.skipLegacy(LegacyKeyUserScore, err)
			return nil
		}
		state.UserScore = score
	}
	return nil
}

func (p *KVPersister) skipLegacy(key string, err error) {
	metrics.StateDecodeFailures.WithLabelValues(key).Inc()
	p.logger.Warn("Ignoring malformed legacy navigation key", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

func (p *KVPersister) Save(ctx context.Context, state models.NavigationState) error {
	raw, err := Encode(state)
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, KeyState, raw)
}

// Clear removes navigation-state and every legacy key.
func (p *KVPersister) Clear(ctx context.Context) error {
	return p.kv.Remove(ctx, Keys()...)
}
