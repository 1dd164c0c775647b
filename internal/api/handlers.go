package api

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/models"
	"nest-readiness/internal/service"
)

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleReady(ctx *fasthttp.RequestCtx) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(pingCtx); err != nil {
		s.logger.Warn("Readiness check failed", map[string]interface{}{"error": err.Error()})
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, HealthResponse{Status: "not ready", Storage: "unavailable"})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, HealthResponse{Status: "ready", Storage: "ok"})
}

// handleScore scores a profile without storing anything.
func (s *Server) handleScore(ctx *fasthttp.RequestCtx) {
	p, ok := s.decodeProfile(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s.svc.Engine().Score(ctx, p))
}

func (s *Server) handleCreateSession(ctx *fasthttp.RequestCtx) {
	id, err := s.svc.CreateSession(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", "/v1/sessions/"+id+"/navigation")
	writeJSON(ctx, fasthttp.StatusCreated, SessionResponse{SessionID: id})
}

func (s *Server) handleGetOnboarding(ctx *fasthttp.RequestCtx, id string) {
	progress, err := s.svc.Onboarding(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, progress)
}

func (s *Server) handlePutOnboarding(ctx *fasthttp.RequestCtx, id string) {
	var raw struct {
		Step      int             `json:"step"`
		Data      json.RawMessage `json:"data"`
		Completed bool            `json:"completed"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &raw); err != nil {
		s.fail(ctx, apperrors.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if raw.Step < 0 {
		s.fail(ctx, apperrors.NewInvalidRequestError("step must not be negative"))
		return
	}

	update := service.OnboardingUpdate{Step: raw.Step, Completed: raw.Completed}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := s.validator.ValidateOnboarding(raw.Data); err != nil {
			s.fail(ctx, err)
			return
		}
		if err := json.Unmarshal(raw.Data, &update.Data); err != nil {
			s.fail(ctx, apperrors.NewInvalidRequestError(err.Error()))
			return
		}
	}

	snap, err := s.svc.SaveOnboarding(ctx, id, update)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, snap)
}

func (s *Server) handleGetProfile(ctx *fasthttp.RequestCtx, id string) {
	p, found, err := s.svc.Readiness(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if !found {
		writeNotFound(ctx, "No readiness profile saved")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, p)
}

func (s *Server) handlePutProfile(ctx *fasthttp.RequestCtx, id string) {
	p, ok := s.decodeProfile(ctx)
	if !ok {
		return
	}
	result, err := s.svc.SaveReadiness(ctx, id, p)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, result)
}

func (s *Server) handleGetScore(ctx *fasthttp.RequestCtx, id string) {
	score, found, err := s.svc.Score(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if !found {
		writeNotFound(ctx, "No readiness score computed yet")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, score)
}

func (s *Server) handleGetNavigation(ctx *fasthttp.RequestCtx, id string) {
	s.respondSnapshot(ctx)(s.svc.Navigation(ctx, id))
}

func (s *Server) handleResetNavigation(ctx *fasthttp.RequestCtx, id string) {
	s.respondSnapshot(ctx)(s.svc.ResetNavigation(ctx, id))
}

func (s *Server) handleCompleteStep(ctx *fasthttp.RequestCtx, id, step string) {
	s.respondSnapshot(ctx)(s.svc.CompleteStep(ctx, id, models.Step(step)))
}

func (s *Server) handleRecordVisit(ctx *fasthttp.RequestCtx, id string) {
	var req VisitRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Route == "" {
		s.fail(ctx, apperrors.NewInvalidRequestError("body must be {\"route\": \"/path\"}"))
		return
	}
	s.respondSnapshot(ctx)(s.svc.RecordVisit(ctx, id, req.Route))
}

func (s *Server) handleAccess(ctx *fasthttp.RequestCtx, id string) {
	route := string(ctx.QueryArgs().Peek("route"))
	if route == "" {
		s.fail(ctx, apperrors.NewInvalidRequestError("query parameter route is required"))
		return
	}
	access, err := s.svc.Access(ctx, id, route)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, access)
}

func (s *Server) respondSnapshot(ctx *fasthttp.RequestCtx) func(models.NavigationSnapshot, error) {
	return func(snap models.NavigationSnapshot, err error) {
		if err != nil {
			s.fail(ctx, err)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, snap)
	}
}

// decodeProfile validates the body against the profile schema and
// decodes it. On failure the error response is already written.
func (s *Server) decodeProfile(ctx *fasthttp.RequestCtx) (models.Profile, bool) {
	var p models.Profile
	body := ctx.PostBody()
	if err := s.validator.ValidateProfile(body); err != nil {
		s.fail(ctx, err)
		return p, false
	}
	if err := json.Unmarshal(body, &p); err != nil {
		s.fail(ctx, apperrors.NewInvalidRequestError(err.Error()))
		return p, false
	}
	return p, true
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	stdErr := apperrors.AsStandard(err)
	if apperrors.HTTPStatus(stdErr.Code) >= fasthttp.StatusInternalServerError {
		s.logger.Error("Request failed", map[string]interface{}{
			"path":  string(ctx.Path()),
			"code":  stdErr.Code,
			"error": err.Error(),
		})
	}
	writeError(ctx, stdErr)
}

func writeNotFound(ctx *fasthttp.RequestCtx, message string) {
	writeJSON(ctx, fasthttp.StatusNotFound, ErrorResponse{
		Status:  fasthttp.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: message,
	})
}
