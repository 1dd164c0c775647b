// internal/workers/navigation/complete-navigation-step/handler.go
package completenavigationstep

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	json "github.com/goccy/go-json"

	apperrors "nest-readiness/internal/common/errors"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/models"
)

const (
	TaskType = "complete-navigation-step"
)

// Navigator is the part of the session service this worker drives.
type Navigator interface {
	CompleteStep(ctx context.Context, sessionID string, step models.Step) (models.NavigationSnapshot, error)
	RecordVisit(ctx context.Context, sessionID, route string) (models.NavigationSnapshot, error)
}

type Handler struct {
	config     *Config
	navigator  Navigator
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, navigator Navigator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		navigator:  navigator,
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

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" {
		return nil, apperrors.NewInvalidRequestError("sessionId is required")
	}
	if input.Step == "" {
		return nil, apperrors.NewInvalidRequestError("step is required")
	}

	snap, err := h.navigator.CompleteStep(ctx, input.SessionID, models.Step(input.Step))
	if err != nil {
		return nil, err
	}
	if input.VisitRoute != "" {
		if snap, err = h.navigator.RecordVisit(ctx, input.SessionID, input.VisitRoute); err != nil {
			return nil, err
		}
	}

	h.logger.Info("navigation step completed", map[string]interface{}{
		"sessionId": input.SessionID,
		"step":      input.Step,
		"nextStep":  snap.NextStep,
	})

	return &Output{
		CompletedSteps:         snap.CompletedSteps,
		HasCompletedOnboarding: snap.HasCompletedOnboarding,
		HasCompletedScore:      snap.HasCompletedScore,
		CanAccessHub:           snap.CanAccessHub,
		UserScore:              snap.UserScore,
		NextStep:               snap.NextStep,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandard(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
