package jobs

import (
	"errors"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/resilience"
	"github.com/linguaflow/qa-pipeline/internal/runner"
)

// ProcessFileWorkflowID derives the deterministic workflow ID for a file's
// processing job. Starting the same file twice while a run is in flight
// dedupes on this ID.
func ProcessFileWorkflowID(fileID string) string {
	return "process-file-" + fileID
}

// RecalculateActivityID derives the deterministic activity ID for a file's
// score recalculation step.
func RecalculateActivityID(fileID string) string {
	return "recalculate-score-" + fileID
}

func defaultRetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        time.Second,
		BackoffCoefficient:     2.0,
		MaximumAttempts:        3,
		NonRetryableErrorTypes: []string{resilience.NonRetriableType},
	}
}

// processActivityOptions configures RunL1 and ScoreFile. No heartbeat
// deadline: the activities never record heartbeats, and RunL1 legitimately
// sits idle waiting on the project slot while a sibling file runs.
func processActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         defaultRetryPolicy(),
	}
}

// BatchWorkflow fans a batch out into independent per-file jobs. Children
// are abandoned on parent close: the batch dispatcher's job ends once every
// child is started, and one file's failure never touches its siblings.
func BatchWorkflow(ctx workflow.Context, ev model.BatchStartedEvent) error {
	if err := ev.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), resilience.NonRetriableType, err)
	}
	logger := workflow.GetLogger(ctx)
	logger.Info("batch fan-out starting", "batch_id", ev.BatchID, "files", len(ev.FileIDs))

	started := 0
	for _, fileID := range ev.FileIDs {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID:        ProcessFileWorkflowID(fileID),
			ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON,
		})
		fileEv := model.ProcessFileEvent{
			FileID:    fileID,
			ProjectID: ev.ProjectID,
			TenantID:  ev.TenantID,
			UserID:    ev.UserID,
			Mode:      ev.Mode,
		}

		var exec workflow.Execution
		err := workflow.ExecuteChildWorkflow(childCtx, ProcessFileWorkflow, fileEv).
			GetChildWorkflowExecution().Get(ctx, &exec)
		if err != nil {
			// Typically a duplicate workflow ID: the file is already being
			// processed. Skip it and keep fanning out.
			logger.Warn("child start failed", "file_id", fileID, "error", err)
			continue
		}
		started++
	}

	logger.Info("batch fan-out complete", "batch_id", ev.BatchID, "started", started)
	return nil
}

// ProcessFileWorkflow runs one file through the rule layer and, in full
// mode, scoring. Exhausted retries trigger the failure handler before the
// error surfaces.
func ProcessFileWorkflow(ctx workflow.Context, ev model.ProcessFileEvent) error {
	if err := ev.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), resilience.NonRetriableType, err)
	}

	ctx = workflow.WithActivityOptions(ctx, processActivityOptions())

	var res runner.Result
	if err := workflow.ExecuteActivity(ctx, a.RunL1, ev).Get(ctx, &res); err != nil {
		markFailed(ctx, ev, err)
		return err
	}

	if ev.Mode != model.ModeAnalysisOnly {
		if err := workflow.ExecuteActivity(ctx, a.ScoreFile, ev).Get(ctx, nil); err != nil {
			markFailed(ctx, ev, err)
			return err
		}
	}
	return nil
}

// markFailed runs the failure handler unless the error was a precondition
// miss. A claim miss means the file is already past the state this job
// expected; forcing it to failed would clobber a completed run.
func markFailed(ctx workflow.Context, ev model.ProcessFileEvent, cause error) {
	var appErr *temporal.ApplicationError
	if errors.As(cause, &appErr) && appErr.Type() == resilience.NonRetriableType {
		return
	}

	// One attempt only: the handler itself never errors, and retrying a
	// side-effect-free status write buys nothing.
	failCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(failCtx, a.MarkFileFailed, ev).Get(failCtx, nil); err != nil {
		workflow.GetLogger(ctx).Error("failure handler did not run", "file_id", ev.FileID, "error", err)
	}
}

// RecalculateScoreWorkflow recomputes one file's score after a finding
// status change. The recalculation step carries a deterministic activity ID
// so a retried workflow replays onto the same step identity.
func RecalculateScoreWorkflow(ctx workflow.Context, ev model.FindingChangedEvent) error {
	if err := ev.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), resilience.NonRetriableType, err)
	}

	recalcCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		ActivityID:          RecalculateActivityID(ev.FileID),
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         defaultRetryPolicy(),
	})
	if err := workflow.ExecuteActivity(recalcCtx, a.RecalculateScore, ev).Get(recalcCtx, nil); err != nil {
		auditCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
		})
		if auditErr := workflow.ExecuteActivity(auditCtx, a.WriteRecalcFailureAudit, ev).Get(auditCtx, nil); auditErr != nil {
			workflow.GetLogger(ctx).Error("recalc failure audit did not run", "file_id", ev.FileID, "error", auditErr)
		}
		return err
	}
	return nil
}
