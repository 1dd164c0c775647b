package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())

	for _, path := range []string{"/onboarding", "/readiness-score", "/hub", "/finance", "/insurance", "/healthcare", "/timeline", "/nestcare"} {
		_, ok := reg.Route(path)
		assert.True(t, ok, path)
	}
}

func TestRequiredSteps(t *testing.T) {
	reg := Default()

	tests := []struct {
		path string
		want []string
	}{
		{"/onboarding", nil},
		{"/readiness-score", []string{"onboarding"}},
		{"/hub", []string{"score"}},
		{"/hub/", []string{"score"}},
		{"/finance?tab=pension", []string{"score"}},
		{"/unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.RequiredSteps(tt.path))
		})
	}
}

func TestStepRoute(t *testing.T) {
	reg := Default()

	route, ok := reg.StepRoute("score")
	assert.True(t, ok)
	assert.Equal(t, "/readiness-score", route)

	_, ok = reg.StepRoute("retire")
	assert.False(t, ok)
	assert.True(t, reg.HasStep("hub"))
	assert.False(t, reg.HasStep("retire"))
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("testdata", "routes.json"))
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", reg.Version)
	assert.Len(t, reg.Steps, 3)
	assert.Equal(t, []string{"onboarding", "score"}, reg.RequiredSteps("/nestcare"))
}

const coreSteps = `{"id":"onboarding"},{"id":"score"},{"id":"hub"}`

func TestLoadRegistry_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"steps": [`},
		{"duplicate step", `{"steps":[%s,{"id":"a"},{"id":"a"}]}`},
		{"relative path", `{"steps":[%s],"routes":[{"path":"hub"}]}`},
		{"undeclared step", `{"steps":[%s],"routes":[{"path":"/x","requiredSteps":["b"]}]}`},
		{"no steps", `{"routes":[{"path":"/hub"}]}`},
		{"missing hub step", `{"steps":[{"id":"onboarding"},{"id":"score"}],"routes":[{"path":"/hub"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			body := strings.ReplaceAll(tt.body, "%s", coreSteps)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadRegistry(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadRegistry(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestSaveRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "routes.json")

	reg := Default()
	reg.Routes = append(reg.Routes, Route{Path: "/legacy-planner", DisplayName: "Planner", Category: "dashboard"})
	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)
}

func TestSaveRegistry_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")

	reg := Default()
	reg.Routes = append(reg.Routes, Route{Path: "/x", RequiredSteps: []string{"pension"}})
	require.Error(t, SaveRegistry(reg, path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_RequiresCoreSteps(t *testing.T) {
	for _, id := range CoreSteps {
		t.Run(id, func(t *testing.T) {
			reg := Default()
			var steps []Step
			for _, s := range reg.Steps {
				if s.ID != id {
					steps = append(steps, s)
				}
			}
			reg.Steps = steps
			reg.Routes = []Route{{Path: "/finance"}}

			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), id)
		})
	}

	bare := &RouteRegistry{Routes: []Route{{Path: "/hub"}}}
	assert.Error(t, bare.Validate())
}

func TestMatch(t *testing.T) {
	reg := Default()
	for _, path := range []string{"/hub", "/hub/", "/hub?tab=1", "/hub#top"} {
		rt, ok := reg.Match(path)
		require.True(t, ok, path)
		assert.Equal(t, "/hub", rt.Path)
	}
	_, ok := reg.Match("/unknown?x=1")
	assert.False(t, ok)
}
