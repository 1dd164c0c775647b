package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nest-readiness/internal/models"
)

func TestDecode_ReturnsParseError(t *testing.T) {
	_, err := Decode(`{"completedSteps": [`)
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KeyState, pe.Key)
}

func TestDecode_FoldsStoredFlags(t *testing.T) {
	state, err := Decode(`{"completedSteps":["onboarding","onboarding"],"hasCompletedOnboarding":true,"canAccessHub":true,"userScore":250}`)
	require.NoError(t, err)

	assert.Equal(t, []models.Step{models.StepOnboarding, models.StepScore}, state.CompletedSteps)
	assert.Equal(t, 100, *state.UserScore)
}

func TestDecode_NullIsInitialState(t *testing.T) {
	state, err := Decode("null")
	require.NoError(t, err)
	assert.Equal(t, models.NewNavigationState(), state)
}

func TestEncode_RoundTripsSourceFields(t *testing.T) {
	score := 61
	in := models.NavigationState{
		CompletedSteps:    []models.Step{models.StepOnboarding},
		UserScore:         &score,
		NavigationHistory: []string{"/onboarding", "/readiness-score"},
	}

	raw, err := Encode(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"completedSteps":["onboarding"],"userScore":61,"navigationHistory":["/onboarding","/readiness-score"]}`, raw)

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncode_EmptyCollectionsAreArrays(t *testing.T) {
	raw, err := Encode(models.NavigationState{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"completedSteps":[],"userScore":null,"navigationHistory":[]}`, raw)
}
