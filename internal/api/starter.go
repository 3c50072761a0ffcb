package api

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/linguaflow/qa-pipeline/internal/jobs"
	"github.com/linguaflow/qa-pipeline/internal/model"
)

// WorkflowStarter launches the durable jobs behind the API. Kept as an
// interface so handler tests run without a Temporal server.
type WorkflowStarter interface {
	StartBatch(ctx context.Context, ev model.BatchStartedEvent) (string, error)
	StartRecalculate(ctx context.Context, ev model.FindingChangedEvent) (string, error)
}

// TemporalStarter starts workflows on a Temporal client.
type TemporalStarter struct {
	client client.Client
}

// NewTemporalStarter wraps c.
func NewTemporalStarter(c client.Client) *TemporalStarter {
	return &TemporalStarter{client: c}
}

func (t *TemporalStarter) StartBatch(ctx context.Context, ev model.BatchStartedEvent) (string, error) {
	run, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "batch-" + ev.BatchID,
		TaskQueue: jobs.TaskQueue,
	}, jobs.BatchWorkflow, ev)
	if err != nil {
		return "", eris.Wrap(err, "api: start batch workflow")
	}
	return run.GetID(), nil
}

func (t *TemporalStarter) StartRecalculate(ctx context.Context, ev model.FindingChangedEvent) (string, error) {
	run, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "recalc-" + ev.FileID,
		TaskQueue: jobs.TaskQueue,
	}, jobs.RecalculateScoreWorkflow, ev)
	if err != nil {
		// A second burst can land while the previous recalculation is still
		// running. The running one reads current finding state, so dedupe.
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return "recalc-" + ev.FileID, nil
		}
		return "", eris.Wrap(err, "api: start recalculation workflow")
	}
	return run.GetID(), nil
}
