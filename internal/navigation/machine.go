// Package navigation tracks onboarding progress, gates routes on completed
// steps and remembers recently visited routes.
//
// Progress is monotonic: onboarding -> score -> hub. A step once completed
// stays completed until Reset. The onboarding/score/hub flags are derived
// from the completed step set on every read.
package navigation

import (
	"context"
	"errors"
	"strings"
	"sync"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/models"
	"nest-readiness/pkg/registry"
)

const DefaultHistoryLimit = 10

// Options is the navigation policy, normally read from config at startup.
type Options struct {
	// EnforceGating makes CanNavigateTo check prerequisites. When false
	// every route is reachable.
	EnforceGating bool
	HistoryLimit  int
	Registry      *registry.RouteRegistry
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	return o
}

// Machine is the navigation state of one session. It is safe for
// concurrent use; every mutation is persisted before it returns.
type Machine struct {
	mu        sync.Mutex
	state     models.NavigationState
	persister Persister
	opts      Options
	logger    logger.Logger
	obs       *observability.Observability
}

// Open loads the persisted state. A state that fails to decode is logged
// and replaced with the initial state; storage failures are returned.
func Open(ctx context.Context, p Persister, opts Options, log logger.Logger, obs *observability.Observability) (*Machine, error) {
	opts = opts.withDefaults()

	state, err := p.Load(ctx)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		metrics.StateDecodeFailures.WithLabelValues(pe.Key).Inc()
		log.Warn("Navigation state is malformed, starting from initial state", map[string]interface{}{
			"key":   pe.Key,
			"error": pe.Err.Error(),
		})
		state = models.NewNavigationState()
	}
	state.NavigationHistory = trimHistory(state.NavigationHistory, opts.HistoryLimit)

	return &Machine{
		state:     state,
		persister: p,
		opts:      opts,
		logger:    log,
		obs:       obs,
	}, nil
}

// MarkStepComplete adds step to the completed set. Completing a step twice
// is a no-op.
func (m *Machine) MarkStepComplete(ctx context.Context, step models.Step) error {
	if !m.opts.Registry.HasStep(string(step)) {
		return apperrors.NewUnknownStepError(string(step))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	if !next.AddStep(step) {
		return nil
	}
	if err := m.commit(ctx, next, "mark_step_complete"); err != nil {
		return err
	}

	metrics.StepsCompleted.WithLabelValues(string(step)).Inc()
	m.logger.Info("Navigation step completed", map[string]interface{}{
		"step":     step,
		"nextStep": m.nextStep(m.state),
	})
	return nil
}

// SetUserScore remembers the last overall score, clamped to [0, 100].
func (m *Machine) SetUserScore(ctx context.Context, score int) error {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	next.UserScore = &score
	return m.commit(ctx, next, "set_user_score")
}

// RecordVisit appends route to the history, evicting the oldest entries
// beyond the limit. With gating enforced an unreachable route is refused
// with ROUTE_GATED and the history is left alone.
func (m *Machine) RecordVisit(ctx context.Context, route string) error {
	if !strings.HasPrefix(route, "/") {
		return apperrors.NewInvalidRequestError("route must start with /")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if missing := m.missingSteps(m.state, route); len(missing) > 0 {
		metrics.NavigationGated.WithLabelValues(m.routeLabel(route)).Inc()
		m.logger.Debug("Route gated", map[string]interface{}{
			"route":       route,
			"missingStep": missing[0],
		})
		return apperrors.NewRouteGatedError(route, string(missing[0]))
	}

	next := m.state.Clone()
	next.NavigationHistory = trimHistory(append(next.NavigationHistory, route), m.opts.HistoryLimit)
	return m.commit(ctx, next, "record_visit")
}

// CanNavigateTo reports whether route is reachable. It is always true
// unless gating is enforced.
func (m *Machine) CanNavigateTo(route string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.missingSteps(m.state, route)) == 0
}

// MissingSteps lists the prerequisites of route that are not complete yet.
// It is empty when gating is off.
func (m *Machine) MissingSteps(route string) []models.Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.missingSteps(m.state, route)
}

// NextStep returns the route of the first unfinished core step, or the
// hub route once both onboarding and score are done.
func (m *Machine) NextStep() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextStep(m.state)
}

// Reset returns to the initial state and removes every persisted
// navigation key.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persister.Clear(ctx); err != nil {
		return err
	}
	m.state = models.NewNavigationState()
	m.obs.RecordTransition(ctx, "reset")
	m.logger.Info("Navigation reset", nil)
	return nil
}

// State returns a snapshot including the derived flags.
func (m *Machine) State() models.NavigationSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state.Clone()
	return models.NavigationSnapshot{
		CompletedSteps:         s.CompletedSteps,
		HasCompletedOnboarding: s.HasCompletedOnboarding(),
		HasCompletedScore:      s.HasCompletedScore(),
		CanAccessHub:           s.CanAccessHub(),
		UserScore:              s.UserScore,
		NavigationHistory:      s.NavigationHistory,
		NextStep:               m.nextStep(s),
		GatingEnforced:         m.opts.EnforceGating,
	}
}

// commit persists next and only then makes it current, so a failed write
// leaves memory and storage in agreement. Callers hold m.mu.
func (m *Machine) commit(ctx context.Context, next models.NavigationState, op string) error {
	if err := m.persister.Save(ctx, next); err != nil {
		m.logger.Error("Failed to persist navigation state", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
		return err
	}
	m.state = next
	m.obs.RecordTransition(ctx, op)
	return nil
}

// nextStep walks the core steps in order. Hub access is granted by the
// score step, so once onboarding and score are done the hub is next.
func (m *Machine) nextStep(s models.NavigationState) string {
	switch {
	case !s.HasCompletedOnboarding():
		return m.stepRoute(models.StepOnboarding, models.RouteOnboarding)
	case !s.HasCompletedScore():
		return m.stepRoute(models.StepScore, models.RouteReadinessScore)
	default:
		return m.stepRoute(models.StepHub, models.RouteHub)
	}
}

// routeLabel maps a visited route onto its registry path so query strings
// and trailing slashes share one metric series.
func (m *Machine) routeLabel(route string) string {
	if rt, ok := m.opts.Registry.Match(route); ok {
		return rt.Path
	}
	return "unregistered"
}

func (m *Machine) stepRoute(step models.Step, fallback string) string {
	if route, ok := m.opts.Registry.StepRoute(string(step)); ok {
		return route
	}
	return fallback
}

func (m *Machine) missingSteps(s models.NavigationState, route string) []models.Step {
	if !m.opts.EnforceGating {
		return nil
	}
	var missing []models.Step
	for _, req := range m.opts.Registry.RequiredSteps(route) {
		if !s.HasStep(models.Step(req)) {
			missing = append(missing, models.Step(req))
		}
	}
	return missing
}

func trimHistory(history []string, limit int) []string {
	if len(history) <= limit {
		return history
	}
	return append([]string{}, history[len(history)-limit:]...)
}
