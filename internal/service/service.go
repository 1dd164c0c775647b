// Package service ties the profile store, the score engine and the
// navigation machine together per user session. Both the HTTP API and the
// workflow workers go through it.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/models"
	"nest-readiness/internal/navigation"
	"nest-readiness/internal/profile"
	"nest-readiness/internal/scoring"
	"nest-readiness/internal/storage"
)

// keySession marks a session as created; its value is the creation time.
const keySession = "session"

type Options struct {
	Namespace      string
	StorageTimeout time.Duration
	Navigation     navigation.Options
}

type Service struct {
	kv     storage.KV
	opts   Options
	engine *scoring.Engine
	logger logger.Logger
	obs    *observability.Observability
	locks  *sessionLocks
}

func New(kv storage.KV, opts Options, log logger.Logger, obs *observability.Observability) *Service {
	if opts.Namespace == "" {
		opts.Namespace = "nest"
	}
	return &Service{
		kv:     kv,
		opts:   opts,
		engine: scoring.NewEngine(log, obs),
		logger: log,
		obs:    obs,
		locks:  newSessionLocks(),
	}
}

// Engine exposes the score engine for stateless scoring.
func (s *Service) Engine() *scoring.Engine {
	return s.engine
}

// Session is the per-user view handed to callbacks of WithSession.
type Session struct {
	ID         string
	Navigation *navigation.Machine
	Profile    *profile.Store
}

// CreateSession allocates a new session id.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	kv := s.scoped(id)
	if err := kv.Set(ctx, keySession, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", err
	}

	metrics.SessionsCreated.Inc()
	s.logger.Info("Session created", map[string]interface{}{"sessionId": id})
	return id, nil
}

// WithSession runs fn with exclusive access to the session. Concurrent
// calls for the same session are serialized; different sessions run in
// parallel.
func (s *Service) WithSession(ctx context.Context, id string, fn func(*Session) error) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewSessionNotFoundError(id)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	kv := s.scoped(id)
	if _, found, err := kv.Get(ctx, keySession); err != nil {
		return err
	} else if !found {
		return apperrors.NewSessionNotFoundError(id)
	}

	log := s.logger.WithFields(map[string]interface{}{"sessionId": id})
	nav, err := navigation.Open(ctx, navigation.NewKVPersister(kv, log), s.opts.Navigation, log, s.obs)
	if err != nil {
		return err
	}

	return fn(&Session{
		ID:         id,
		Navigation: nav,
		Profile:    profile.NewStore(kv, s.engine, log),
	})
}

// OnboardingUpdate is what the onboarding screens submit. Completed marks
// the onboarding step done.
type OnboardingUpdate struct {
	Step      int            `json:"step"`
	Data      models.Profile `json:"data"`
	Completed bool           `json:"completed"`
}

func (s *Service) Onboarding(ctx context.Context, id string) (models.OnboardingProgress, error) {
	var progress models.OnboardingProgress
	err := s.WithSession(ctx, id, func(sess *Session) error {
		var err error
		progress, err = sess.Profile.OnboardingProgress(ctx)
		return err
	})
	return progress, err
}

func (s *Service) SaveOnboarding(ctx context.Context, id string, update OnboardingUpdate) (models.NavigationSnapshot, error) {
	var snap models.NavigationSnapshot
	err := s.WithSession(ctx, id, func(sess *Session) error {
		if err := sess.Profile.SaveOnboardingProgress(ctx, models.OnboardingProgress{Step: update.Step, Data: update.Data}); err != nil {
			return err
		}
		if update.Completed {
			if err := sess.Navigation.MarkStepComplete(ctx, models.StepOnboarding); err != nil {
				return err
			}
		}
		snap = sess.Navigation.State()
		return nil
	})
	return snap, err
}

// ReadinessResult is returned when the readiness flow is submitted.
type ReadinessResult struct {
	Score      models.ReadinessScore     `json:"score"`
	Navigation models.NavigationSnapshot `json:"navigation"`
}

func (s *Service) Readiness(ctx context.Context, id string) (models.Profile, bool, error) {
	var (
		p     models.Profile
		found bool
	)
	err := s.WithSession(ctx, id, func(sess *Session) error {
		var err error
		p, found, err = sess.Profile.Readiness(ctx)
		return err
	})
	return p, found, err
}

// SaveReadiness stores the profile, recomputes the score, remembers it as
// the user score and completes the score step.
func (s *Service) SaveReadiness(ctx context.Context, id string, p models.Profile) (ReadinessResult, error) {
	var result ReadinessResult
	err := s.WithSession(ctx, id, func(sess *Session) error {
		score, err := sess.Profile.SaveReadiness(ctx, p)
		if err != nil {
			return err
		}
		if err := sess.Navigation.SetUserScore(ctx, score.Overall); err != nil {
			return err
		}
		if err := sess.Navigation.MarkStepComplete(ctx, models.StepScore); err != nil {
			return err
		}
		result = ReadinessResult{Score: score, Navigation: sess.Navigation.State()}
		return nil
	})
	return result, err
}

func (s *Service) Score(ctx context.Context, id string) (models.ReadinessScore, bool, error) {
	var (
		score models.ReadinessScore
		found bool
	)
	err := s.WithSession(ctx, id, func(sess *Session) error {
		var err error
		score, found, err = sess.Profile.Score(ctx)
		return err
	})
	return score, found, err
}

func (s *Service) Navigation(ctx context.Context, id string) (models.NavigationSnapshot, error) {
	var snap models.NavigationSnapshot
	err := s.WithSession(ctx, id, func(sess *Session) error {
		snap = sess.Navigation.State()
		return nil
	})
	return snap, err
}

func (s *Service) CompleteStep(ctx context.Context, id string, step models.Step) (models.NavigationSnapshot, error) {
	return s.mutateNavigation(ctx, id, func(nav *navigation.Machine) error {
		return nav.MarkStepComplete(ctx, step)
	})
}

func (s *Service) RecordVisit(ctx context.Context, id, route string) (models.NavigationSnapshot, error) {
	return s.mutateNavigation(ctx, id, func(nav *navigation.Machine) error {
		return nav.RecordVisit(ctx, route)
	})
}

func (s *Service) ResetNavigation(ctx context.Context, id string) (models.NavigationSnapshot, error) {
	return s.mutateNavigation(ctx, id, func(nav *navigation.Machine) error {
		return nav.Reset(ctx)
	})
}

// Access reports whether route is reachable for the session.
type Access struct {
	Route        string        `json:"route"`
	Allowed      bool          `json:"allowed"`
	MissingSteps []models.Step `json:"missingSteps"`
}

func (s *Service) Access(ctx context.Context, id, route string) (Access, error) {
	access := Access{Route: route}
	err := s.WithSession(ctx, id, func(sess *Session) error {
		access.Allowed = sess.Navigation.CanNavigateTo(route)
		access.MissingSteps = sess.Navigation.MissingSteps(route)
		if access.MissingSteps == nil {
			access.MissingSteps = []models.Step{}
		}
		return nil
	})
	return access, err
}

func (s *Service) mutateNavigation(ctx context.Context, id string, fn func(*navigation.Machine) error) (models.NavigationSnapshot, error) {
	var snap models.NavigationSnapshot
	err := s.WithSession(ctx, id, func(sess *Session) error {
		if err := fn(sess.Navigation); err != nil {
			return err
		}
		snap = sess.Navigation.State()
		return nil
	})
	return snap, err
}

// Ping checks the storage backend when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.kv.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) scoped(id string) *storage.Scoped {
	return storage.NewScoped(s.kv, s.opts.Namespace, id, s.opts.StorageTimeout)
}
