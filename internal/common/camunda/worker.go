package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/metrics"
	"nest-readiness/internal/common/observability"
)

// Job outcomes as seen by the instrumentation wrapper.
const (
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusBPMNError = "bpmn_error"
	JobStatusUnhandled = "unhandled"
)

// StartWorker opens a job worker for taskType and returns it, or nil when
// the worker is disabled. Job durations and outcomes are recorded per task
// type.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger, obs *observability.Observability) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

func instrument(taskType string, handler worker.JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		tracked := &statusClient{JobClient: client, status: JobStatusUnhandled}
		handler(tracked, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		ctx := context.Background()
		obs.RecordJobProcessed(ctx, taskType, tracked.status)
		obs.RecordJobDuration(ctx, taskType, elapsed, tracked.status)
	}
}

// statusClient remembers which command the handler built last.
type statusClient struct {
	worker.JobClient
	status string
}

func (c *statusClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = JobStatusCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *statusClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = JobStatusFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *statusClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = JobStatusBPMNError
	return c.JobClient.NewThrowErrorCommand()
}
