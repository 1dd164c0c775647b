// internal/workers/readiness/compute-readiness-score/handler.go
package computereadinessscore

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	json "github.com/goccy/go-json"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/validation"
	"nest-readiness/internal/models"
	"nest-readiness/internal/service"
)

const (
	TaskType = "compute-readiness-score"
)

// Scorer computes a score without storing it.
type Scorer interface {
	Score(ctx context.Context, p models.Profile) models.ReadinessScore
}

// ReadinessRecorder stores a profile for a session and returns the result.
type ReadinessRecorder interface {
	SaveReadiness(ctx context.Context, sessionID string, p models.Profile) (service.ReadinessResult, error)
}

type Handler struct {
	config     *Config
	scorer     Scorer
	recorder   ReadinessRecorder
	validator  *validation.Validator
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, scorer Scorer, recorder ReadinessRecorder, validator *validation.Validator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		scorer:     scorer,
		recorder:   recorder,
		validator:  validator,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Profile) == 0 {
		return nil, apperrors.NewInvalidRequestError("profile is required")
	}
	if err := h.validator.ValidateProfile(input.Profile); err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(input.Profile, &profile); err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	output := &Output{}
	var score models.ReadinessScore

	if input.SessionID != "" {
		result, err := h.recorder.SaveReadiness(ctx, input.SessionID, profile)
		if err != nil {
			return nil, err
		}
		score = result.Score
		output.Persisted = true
		output.NextStep = result.Navigation.NextStep
	} else {
		score = h.scorer.Score(ctx, profile)
	}

	output.ReadinessScore = score.Overall
	output.ReadinessLevel = score.Level
	output.ScoreBreakdown = ScoreBreakdown{
		Finance:  score.Finance,
		Coverage: score.Coverage,
		Health:   score.Health,
		Planning: score.Planning,
	}

	h.logger.Info("readiness score calculated", map[string]interface{}{
		"sessionId": input.SessionID,
		"score":     score.Overall,
		"level":     score.Level,
		"persisted": output.Persisted,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandard(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
