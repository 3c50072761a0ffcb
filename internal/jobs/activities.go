// Package jobs hosts the durable job definitions: the batch fan-out, the
// per-file processing job, and score recalculation. Workflows orchestrate;
// activities touch the store and the engine.
package jobs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/linguaflow/qa-pipeline/internal/audit"
	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/resilience"
	"github.com/linguaflow/qa-pipeline/internal/runner"
	"github.com/linguaflow/qa-pipeline/internal/scoring"
	"github.com/linguaflow/qa-pipeline/internal/store"
)

// Activities bundles the dependencies the job activities need.
type Activities struct {
	Store    store.Store
	Runner   *runner.Runner
	Scorer   scoring.Scorer
	Throttle *ProjectThrottle
	Audit    audit.Recorder
}

// a exists only so workflow code can reference activity methods by pointer;
// it is never dereferenced.
var a *Activities

// asActivityError converts precondition failures into non-retryable
// application errors so the retry policy stops immediately.
func asActivityError(err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsNonRetriable(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), resilience.NonRetriableType, err)
	}
	return err
}

// RunL1 claims the file and runs the rule layer over it, serialized per
// project.
func (ac *Activities) RunL1(ctx context.Context, ev model.ProcessFileEvent) (*runner.Result, error) {
	release, err := ac.Throttle.Acquire(ctx, ev.ProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: acquire project slot")
	}
	defer release()

	res, err := ac.Runner.RunL1ForFile(ctx, ev)
	return res, asActivityError(err)
}

// ScoreFile computes and stores the file's score from its current findings.
func (ac *Activities) ScoreFile(ctx context.Context, ev model.ProcessFileEvent) error {
	release, err := ac.Throttle.Acquire(ctx, ev.ProjectID)
	if err != nil {
		return eris.Wrap(err, "jobs: acquire project slot")
	}
	defer release()

	return asActivityError(ac.computeScore(ctx, ev.TenantID, ev.FileID))
}

func (ac *Activities) computeScore(ctx context.Context, tenantID, fileID string) error {
	findings, err := ac.Store.ListFindings(ctx, tenantID, fileID)
	if err != nil {
		return eris.Wrap(err, "jobs: list findings for scoring")
	}
	words, err := ac.Store.CountFileWords(ctx, tenantID, fileID)
	if err != nil {
		return eris.Wrap(err, "jobs: count file words")
	}

	sc := ac.Scorer.Score(findings, words)
	sc.TenantID = tenantID
	sc.FileID = fileID

	if err := ac.Store.UpsertScore(ctx, &sc); err != nil {
		return eris.Wrap(err, "jobs: upsert score")
	}

	zap.L().Info("score updated",
		zap.String("tenant_id", tenantID),
		zap.String("file_id", fileID),
		zap.Float64("mqm_score", sc.MQMScore),
		zap.String("status", string(sc.Status)),
	)
	return nil
}

// MarkFileFailed moves a file to failed after its processing job exhausted
// retries. It never returns an error: the job is already failing, and a
// status write that also fails must not mask the original cause.
func (ac *Activities) MarkFileFailed(ctx context.Context, ev model.ProcessFileEvent) error {
	if err := ac.Store.UpdateFileStatus(ctx, ev.TenantID, ev.FileID, model.FileStatusFailed); err != nil {
		zap.L().Error("failed to mark file failed",
			zap.String("file_id", ev.FileID),
			zap.Error(err),
		)
		return nil
	}

	if ac.Audit != nil {
		ac.Audit.Record(model.AuditEntry{
			TenantID:   ev.TenantID,
			UserID:     ev.UserID,
			EntityType: "file",
			EntityID:   ev.FileID,
			Action:     "processing_failed",
			NewValue:   map[string]any{"status": string(model.FileStatusFailed)},
		})
	}
	return nil
}

// RecalculateScore recomputes a file's score after a finding status change,
// holding the project slot like the other scoring path.
func (ac *Activities) RecalculateScore(ctx context.Context, ev model.FindingChangedEvent) error {
	if err := ev.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), resilience.NonRetriableType, err)
	}

	release, err := ac.Throttle.Acquire(ctx, ev.ProjectID)
	if err != nil {
		return eris.Wrap(err, "jobs: acquire project slot")
	}
	defer release()

	return asActivityError(ac.computeScore(ctx, ev.TenantID, ev.FileID))
}

// WriteRecalcFailureAudit records that a recalculation gave up. Best effort.
func (ac *Activities) WriteRecalcFailureAudit(ctx context.Context, ev model.FindingChangedEvent) error {
	if ac.Audit == nil {
		return nil
	}
	ac.Audit.Record(model.AuditEntry{
		TenantID:   ev.TenantID,
		UserID:     ev.TriggeredBy,
		EntityType: "score",
		EntityID:   ev.FileID,
		Action:     "recalculation_failed",
		OldValue: map[string]any{
			"finding_id":     ev.FindingID,
			"previous_state": string(ev.PreviousState),
			"new_state":      string(ev.NewState),
		},
	})
	return nil
}
