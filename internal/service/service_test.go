package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/database"
	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/models"
	"nest-readiness/internal/navigation"
	"nest-readiness/internal/storage"
)

func newService(t *testing.T, kv storage.KV, gating bool) *Service {
	t.Helper()
	return New(kv, Options{
		Namespace:      "nest",
		StorageTimeout: time.Second,
		Navigation:     navigation.Options{EnforceGating: gating},
	}, logger.NewTestLogger(t), observability.Noop())
}

func readinessProfile() models.Profile {
	return models.Profile{
		Age:                65,
		IncomeRange:        2000,
		PensionSavings:     50000,
		HasInsurance:       true,
		InsuranceTypes:     []models.InsuranceType{models.InsuranceLife, models.InsuranceHealth},
		HealthStatus:       models.HealthGood,
		PlanningConfidence: 3,
	}
}

func TestService_UnknownSession(t *testing.T) {
	svc := newService(t, storage.NewMemoryKV(), false)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		_, err := svc.Navigation(ctx, id)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSessionNotFound), id)
	}
}

func TestService_FullJourney(t *testing.T) {
	mem := storage.NewMemoryKV()
	svc := newService(t, mem, true)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	snap, err := svc.Navigation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/onboarding", snap.NextStep)

	_, err = svc.RecordVisit(ctx, id, "/hub")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRouteGated))

	snap, err = svc.SaveOnboarding(ctx, id, OnboardingUpdate{Step: 4, Data: models.Profile{Age: 65}, Completed: true})
	require.NoError(t, err)
	assert.True(t, snap.HasCompletedOnboarding)
	assert.Equal(t, "/readiness-score", snap.NextStep)

	progress, err := svc.Onboarding(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.Step)

	result, err := svc.SaveReadiness(ctx, id, readinessProfile())
	require.NoError(t, err)
	assert.Equal(t, 72, result.Score.Overall)
	assert.Equal(t, 72, *result.Navigation.UserScore)
	assert.True(t, result.Navigation.CanAccessHub)
	assert.Equal(t, "/hub", result.Navigation.NextStep)

	access, err := svc.Access(ctx, id, "/nestcare")
	require.NoError(t, err)
	assert.True(t, access.Allowed)
	assert.Empty(t, access.MissingSteps)

	snap, err = svc.RecordVisit(ctx, id, "/hub")
	require.NoError(t, err)
	assert.Equal(t, []string{"/hub"}, snap.NavigationHistory)

	score, found, err := svc.Score(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, result.Score, score)

	for _, k := range mem.Keys() {
		assert.Contains(t, k, "nest:"+id+":")
	}

	snap, err = svc.ResetNavigation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/onboarding", snap.NextStep)
	_, found, _ = mem.Get(ctx, storage.SessionKey("nest", id, navigation.KeyState))
	assert.False(t, found)

	// profile data survives a navigation reset
	_, found, err = svc.Readiness(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestService_AccessListsMissingSteps(t *testing.T) {
	svc := newService(t, storage.NewMemoryKV(), true)
	ctx := context.Background()
	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	access, err := svc.Access(ctx, id, "/readiness-score")
	require.NoError(t, err)
	assert.False(t, access.Allowed)
	assert.Equal(t, []models.Step{models.StepOnboarding}, access.MissingSteps)
}

func TestService_ConcurrentVisitsAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newService(t, storage.NewMemoryKV(), false)
	ctx := context.Background()
	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordVisit(ctx, id, "/hub")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.Navigation(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snap.NavigationHistory, 8)
	assert.Zero(t, svc.locks.size())
}

func TestService_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := storage.NewRedisKV(database.NewRedis(config.RedisConfig{Address: mr.Addr()}))
	defer kv.Close()

	svc := newService(t, kv, false)
	ctx := context.Background()
	require.NoError(t, svc.Ping(ctx))

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.CompleteStep(ctx, id, models.StepScore)
	require.NoError(t, err)

	assert.True(t, mr.Exists(storage.SessionKey("nest", id, navigation.KeyState)))

	// a second service over the same redis sees the same session
	snap, err := newService(t, kv, false).Navigation(ctx, id)
	require.NoError(t, err)
	assert.True(t, snap.CanAccessHub)
}
