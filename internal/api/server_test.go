package api

import (
	"net"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/common/validation"
	"nest-readiness/internal/models"
	"nest-readiness/internal/navigation"
	"nest-readiness/internal/service"
	"nest-readiness/internal/storage"
)

const readinessBody = `{
	"age": 65,
	"incomeRange": 2000,
	"pensionSavings": 50000,
	"hasInsurance": true,
	"insuranceTypes": ["life", "health"],
	"healthStatus": "good",
	"planningConfidence": 3
}`

func newTestServer(t *testing.T, gating bool) *Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	svc := service.New(storage.NewMemoryKV(), service.Options{
		Namespace:  "nest",
		Navigation: navigation.Options{EnforceGating: gating},
	}, log, observability.Noop())

	v, err := validation.NewValidator()
	require.NoError(t, err)

	return NewServer(svc, v, config.ServerConfig{Address: ":0"}, config.MetricsConfig{Enabled: true, Path: "/metrics"}, log, observability.Noop())
}

type response struct {
	status int
	body   []byte
	header *fasthttp.ResponseHeader
}

func do(t *testing.T, s *Server, method, uri, body string) response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.SetBodyString(body)
		req.Header.SetContentType("application/json")
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(req, nil, nil)
	s.Handler()(&ctx)

	header := &fasthttp.ResponseHeader{}
	ctx.Response.Header.CopyTo(header)
	return response{
		status: ctx.Response.StatusCode(),
		body:   append([]byte(nil), ctx.Response.Body()...),
		header: header,
	}
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.body, &v), string(r.body))
	return v
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	r := do(t, s, fasthttp.MethodPost, "/v1/sessions", "")
	require.Equal(t, fasthttp.StatusCreated, r.status)
	return decode[SessionResponse](t, r).SessionID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	r := do(t, s, fasthttp.MethodGet, "/health", "")
	assert.Equal(t, fasthttp.StatusOK, r.status)
	assert.Equal(t, "healthy", decode[HealthResponse](t, r).Status)

	r = do(t, s, fasthttp.MethodGet, "/ready", "")
	assert.Equal(t, fasthttp.StatusOK, r.status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	do(t, s, fasthttp.MethodGet, "/health", "")

	r := do(t, s, fasthttp.MethodGet, "/metrics", "")
	assert.Equal(t, fasthttp.StatusOK, r.status)
	assert.Contains(t, string(r.body), "http_requests_total")
}

func TestScore_Stateless(t *testing.T) {
	s := newTestServer(t, false)

	r := do(t, s, fasthttp.MethodPost, "/v1/score", readinessBody)
	require.Equal(t, fasthttp.StatusOK, r.status, string(r.body))

	score := decode[models.ReadinessScore](t, r)
	assert.Equal(t, models.ReadinessScore{
		Finance: 70, Coverage: 80, Health: 75, Planning: 60, Overall: 72, Level: models.LevelSteady,
	}, score)
}

func TestScore_Errors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   string
	}{
		{"wrong method", fasthttp.MethodGet, "", fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"malformed json", fasthttp.MethodPost, `{"age":`, fasthttp.StatusBadRequest, "INVALID_REQUEST"},
		{"schema violation", fasthttp.MethodPost, `{"age":65}`, fasthttp.StatusBadRequest, "PROFILE_VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := do(t, s, tt.method, "/v1/score", tt.body)
			assert.Equal(t, tt.status, r.status)
			e := decode[ErrorResponse](t, r)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.Status)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestUnknownRouteAndSession(t *testing.T) {
	s := newTestServer(t, false)

	r := do(t, s, fasthttp.MethodGet, "/v2/nothing", "")
	assert.Equal(t, fasthttp.StatusNotFound, r.status)

	r = do(t, s, fasthttp.MethodGet, "/v1/sessions/9b2f7a38-3a4c-4c62-8f6e-3c8f2b3c1d11/navigation", "")
	assert.Equal(t, fasthttp.StatusNotFound, r.status)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[ErrorResponse](t, r).Code)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t, true)
	id := createSession(t, s)
	base := "/v1/sessions/" + id

	r := do(t, s, fasthttp.MethodGet, base+"/navigation", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	snap := decode[models.NavigationSnapshot](t, r)
	assert.Equal(t, "/onboarding", snap.NextStep)
	assert.True(t, snap.GatingEnforced)

	r = do(t, s, fasthttp.MethodPost, base+"/navigation/visits", `{"route":"/hub"}`)
	assert.Equal(t, fasthttp.StatusForbidden, r.status)
	assert.Equal(t, "ROUTE_GATED", decode[ErrorResponse](t, r).Code)

	r = do(t, s, fasthttp.MethodGet, base+"/navigation/access?route=/readiness-score", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	access := decode[service.Access](t, r)
	assert.False(t, access.Allowed)
	assert.Equal(t, []models.Step{models.StepOnboarding}, access.MissingSteps)

	r = do(t, s, fasthttp.MethodPut, base+"/onboarding", `{"step":5,"data":{"age":65,"livingSituation":"alone"},"completed":true}`)
	require.Equal(t, fasthttp.StatusOK, r.status, string(r.body))
	assert.Equal(t, "/readiness-score", decode[models.NavigationSnapshot](t, r).NextStep)

	r = do(t, s, fasthttp.MethodGet, base+"/onboarding", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	assert.Equal(t, 5, decode[models.OnboardingProgress](t, r).Step)

	r = do(t, s, fasthttp.MethodGet, base+"/score", "")
	assert.Equal(t, fasthttp.StatusNotFound, r.status)

	r = do(t, s, fasthttp.MethodPut, base+"/profile", readinessBody)
	require.Equal(t, fasthttp.StatusOK, r.status, string(r.body))
	result := decode[service.ReadinessResult](t, r)
	assert.Equal(t, 72, result.Score.Overall)
	assert.True(t, result.Navigation.CanAccessHub)

	r = do(t, s, fasthttp.MethodGet, base+"/score", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	assert.Equal(t, 72, decode[models.ReadinessScore](t, r).Overall)

	r = do(t, s, fasthttp.MethodGet, base+"/profile", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	assert.Equal(t, 65, decode[models.Profile](t, r).Age)

	r = do(t, s, fasthttp.MethodPost, base+"/navigation/visits", `{"route":"/hub"}`)
	require.Equal(t, fasthttp.StatusOK, r.status)
	assert.Equal(t, []string{"/hub"}, decode[models.NavigationSnapshot](t, r).NavigationHistory)

	r = do(t, s, fasthttp.MethodPost, base+"/navigation/steps/hub", "")
	require.Equal(t, fasthttp.StatusOK, r.status)

	r = do(t, s, fasthttp.MethodPost, base+"/navigation/steps/retirement", "")
	assert.Equal(t, fasthttp.StatusBadRequest, r.status)
	assert.Equal(t, "UNKNOWN_STEP", decode[ErrorResponse](t, r).Code)

	r = do(t, s, fasthttp.MethodDelete, base+"/navigation", "")
	require.Equal(t, fasthttp.StatusOK, r.status)
	snap = decode[models.NavigationSnapshot](t, r)
	assert.Equal(t, "/onboarding", snap.NextStep)
	assert.Empty(t, snap.CompletedSteps)
}

func TestSessionRoutes_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, false)
	id := createSession(t, s)

	r := do(t, s, fasthttp.MethodPatch, "/v1/sessions/"+id+"/navigation", "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, r.status)
	assert.Equal(t, "GET, DELETE", string(r.header.Peek("Allow")))
}

func TestVisit_BadBody(t *testing.T) {
	s := newTestServer(t, false)
	id := createSession(t, s)

	r := do(t, s, fasthttp.MethodPost, "/v1/sessions/"+id+"/navigation/visits", `{"path":"/hub"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, r.status)

	r = do(t, s, fasthttp.MethodGet, "/v1/sessions/"+id+"/navigation/access", "")
	assert.Equal(t, fasthttp.StatusBadRequest, r.status)
}

func TestServer_InMemoryListener(t *testing.T) {
	s := newTestServer(t, false)
	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()

	go func() {
		_ = s.http.Serve(ln)
	}()

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://nest.test/v1/score")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBodyString(readinessBody)

	require.NoError(t, client.DoTimeout(req, resp, 2*time.Second))
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"overall":72`)
}
