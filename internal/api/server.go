// Package api serves the readiness service over HTTP using fasthttp.
package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/common/validation"
	"nest-readiness/internal/service"
)

type Server struct {
	svc       *service.Service
	validator *validation.Validator
	logger    logger.Logger
	obs       *observability.Observability
	cfg       config.ServerConfig
	metrics   config.MetricsConfig
	http      *fasthttp.Server
	promh     fasthttp.RequestHandler
}

func NewServer(svc *service.Service, validator *validation.Validator, cfg config.ServerConfig, metricsCfg config.MetricsConfig, log logger.Logger, obs *observability.Observability) *Server {
	s := &Server{
		svc:       svc,
		validator: validator,
		logger:    log,
		obs:       obs,
		cfg:       cfg,
		metrics:   metricsCfg,
		promh:     fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
	}
	s.http = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "nest-readiness",
		ReadTimeout:        config.GetDuration(cfg.ReadTimeout),
		WriteTimeout:       config.GetDuration(cfg.WriteTimeout),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.cfg.Address})
	return s.http.ListenAndServe(s.cfg.Address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.ShutdownWithContext(ctx)
}

// Handler returns the routing handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		method := string(ctx.Method())
		route := s.route(ctx)

		duration := time.Since(start)
		status := ctx.Response.StatusCode()
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
		s.obs.RecordRequest(ctx, method, route, status, duration)

		s.logger.Debug("HTTP request", map[string]interface{}{
			"method":   method,
			"path":     string(ctx.Path()),
			"status":   status,
			"duration": duration.String(),
		})
	}
}

// route dispatches the request and returns the route pattern used as the
// metrics label.
func (s *Server) route(ctx *fasthttp.RequestCtx) string {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "health":
		s.handleHealth(ctx)
		return "/health"
	case path == "ready":
		s.handleReady(ctx)
		return "/ready"
	case "/"+path == s.metricsPath():
		s.promh(ctx)
		return s.metricsPath()
	case path == "v1/score":
		if !allow(ctx, fasthttp.MethodPost) {
			return "/v1/score"
		}
		s.handleScore(ctx)
		return "/v1/score"
	case path == "v1/sessions":
		if !allow(ctx, fasthttp.MethodPost) {
			return "/v1/sessions"
		}
		s.handleCreateSession(ctx)
		return "/v1/sessions"
	case len(parts) >= 4 && parts[0] == "v1" && parts[1] == "sessions":
		return s.routeSession(ctx, parts[2], parts[3:])
	}

	routeNotFound(ctx)
	return "unmatched"
}

func (s *Server) routeSession(ctx *fasthttp.RequestCtx, id string, rest []string) string {
	const prefix = "/v1/sessions/{id}/"

	switch {
	case len(rest) == 1 && rest[0] == "onboarding":
		switch {
		case ctx.IsGet():
			s.handleGetOnboarding(ctx, id)
		case ctx.IsPut():
			s.handlePutOnboarding(ctx, id)
		default:
			methodNotAllowed(ctx, fasthttp.MethodGet, fasthttp.MethodPut)
		}
		return prefix + "onboarding"

	case len(rest) == 1 && rest[0] == "profile":
		switch {
		case ctx.IsGet():
			s.handleGetProfile(ctx, id)
		case ctx.IsPut():
			s.handlePutProfile(ctx, id)
		default:
			methodNotAllowed(ctx, fasthttp.MethodGet, fasthttp.MethodPut)
		}
		return prefix + "profile"

	case len(rest) == 1 && rest[0] == "score":
		if allow(ctx, fasthttp.MethodGet) {
			s.handleGetScore(ctx, id)
		}
		return prefix + "score"

	case len(rest) == 1 && rest[0] == "navigation":
		switch {
		case ctx.IsGet():
			s.handleGetNavigation(ctx, id)
		case ctx.IsDelete():
			s.handleResetNavigation(ctx, id)
		default:
			methodNotAllowed(ctx, fasthttp.MethodGet, fasthttp.MethodDelete)
		}
		return prefix + "navigation"

	case len(rest) == 3 && rest[0] == "navigation" && rest[1] == "steps":
		if allow(ctx, fasthttp.MethodPost) {
			s.handleCompleteStep(ctx, id, rest[2])
		}
		return prefix + "navigation/steps/{step}"

	case len(rest) == 2 && rest[0] == "navigation" && rest[1] == "visits":
		if allow(ctx, fasthttp.MethodPost) {
			s.handleRecordVisit(ctx, id)
		}
		return prefix + "navigation/visits"

	case len(rest) == 2 && rest[0] == "navigation" && rest[1] == "access":
		if allow(ctx, fasthttp.MethodGet) {
			s.handleAccess(ctx, id)
		}
		return prefix + "navigation/access"
	}

	routeNotFound(ctx)
	return "unmatched"
}

func (s *Server) metricsPath() string {
	if !s.metrics.Enabled {
		return ""
	}
	if s.metrics.Path == "" {
		return "/metrics"
	}
	return s.metrics.Path
}

// allow writes 405 and returns false unless the request uses method.
func allow(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	methodNotAllowed(ctx, method)
	return false
}

func methodNotAllowed(ctx *fasthttp.RequestCtx, methods ...string) {
	ctx.Response.Header.Set("Allow", strings.Join(methods, ", "))
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, ErrorResponse{
		Status:  fasthttp.StatusMethodNotAllowed,
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed",
	})
}

func routeNotFound(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusNotFound, ErrorResponse{
		Status:  fasthttp.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: "Route not found",
		Details: string(ctx.Path()),
	})
}
