// internal/workers/readiness/compute-readiness-score/handler_test.go
package computereadinessscore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/common/validation"
	"nest-readiness/internal/models"
	"nest-readiness/internal/scoring"
	"nest-readiness/internal/service"
)

const referenceProfile = `{
	"age": 65,
	"incomeRange": 2000,
	"pensionSavings": 50000,
	"hasInsurance": true,
	"insuranceTypes": ["life", "health"],
	"healthStatus": "good",
	"planningConfidence": 3
}`

type fakeRecorder struct {
	sessionID string
	profile   models.Profile
	err       error
	scorer    Scorer
}

func (f *fakeRecorder) SaveReadiness(ctx context.Context, sessionID string, p models.Profile) (service.ReadinessResult, error) {
	if f.err != nil {
		return service.ReadinessResult{}, f.err
	}
	f.sessionID = sessionID
	f.profile = p
	return service.ReadinessResult{
		Score:      f.scorer.Score(ctx, p),
		Navigation: models.NavigationSnapshot{NextStep: "/hub"},
	}, nil
}

func newTestHandler(t *testing.T, recorder *fakeRecorder) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	engine := scoring.NewEngine(log, observability.Noop())
	recorder.scorer = engine

	v, err := validation.NewValidator()
	require.NoError(t, err)
	return NewHandler(LoadConfig(), engine, recorder, v, log)
}

func TestExecute_Stateless(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestHandler(t, rec)

	out, err := h.Execute(context.Background(), &Input{Profile: []byte(referenceProfile)})
	require.NoError(t, err)

	assert.Equal(t, 72, out.ReadinessScore)
	assert.Equal(t, models.LevelSteady, out.ReadinessLevel)
	assert.Equal(t, ScoreBreakdown{Finance: 70, Coverage: 80, Health: 75, Planning: 60}, out.ScoreBreakdown)
	assert.False(t, out.Persisted)
	assert.Empty(t, rec.sessionID)
}

func TestExecute_PersistsForSession(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestHandler(t, rec)

	out, err := h.Execute(context.Background(), &Input{SessionID: "c0ffee00-0000-4000-8000-000000000001", Profile: []byte(referenceProfile)})
	require.NoError(t, err)

	assert.True(t, out.Persisted)
	assert.Equal(t, "/hub", out.NextStep)
	assert.Equal(t, "c0ffee00-0000-4000-8000-000000000001", rec.sessionID)
	assert.Equal(t, 65, rec.profile.Age)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
		rec   *fakeRecorder
		code  apperrors.ErrorCode
	}{
		{
			name:  "missing profile",
			input: &Input{},
			rec:   &fakeRecorder{},
			code:  apperrors.ErrCodeInvalidRequest,
		},
		{
			name:  "schema violation",
			input: &Input{Profile: []byte(`{"age": 65, "incomeRange": -10}`)},
			rec:   &fakeRecorder{},
			code:  apperrors.ErrCodeProfileValidationFailed,
		},
		{
			name:  "session store failure",
			input: &Input{SessionID: "c0ffee00-0000-4000-8000-000000000002", Profile: []byte(referenceProfile)},
			rec:   &fakeRecorder{err: apperrors.NewStorageWriteError("readiness-data", errors.New("down"))},
			code:  apperrors.ErrCodeStorageWriteFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.rec)
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.AsStandard(err).Code)
		})
	}
}

func TestFailuresMapToBPMNRetries(t *testing.T) {
	retryable := apperrors.ConvertToBPMNError(apperrors.NewStorageWriteError("k", errors.New("down")))
	assert.Equal(t, 3, retryable.Retries)

	business := apperrors.ConvertToBPMNError(apperrors.NewProfileValidationError([]string{"age"}))
	assert.Equal(t, 0, business.Retries)
	assert.Equal(t, string(apperrors.ErrCodeProfileValidationFailed), business.Code)
}
