// Package runner drives the L1 pass for a single file: claim the file,
// gather the engine inputs, run the checks, persist the findings, and
// advance the file's status. All state transitions go through compare-and-set
// guards so concurrent claims of the same file resolve to exactly one run.
package runner

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linguaflow/qa-pipeline/internal/audit"
	"github.com/linguaflow/qa-pipeline/internal/engine"
	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/resilience"
	"github.com/linguaflow/qa-pipeline/internal/store"
)

// DefaultEngineTimeout bounds one engine pass over a file's segments.
const DefaultEngineTimeout = 5 * time.Minute

// Runner executes the L1 pass.
type Runner struct {
	store         store.Store
	engine        *engine.Engine
	audit         audit.Recorder
	engineTimeout time.Duration
}

// New builds a Runner. A nil recorder disables audit entries; a zero
// engineTimeout falls back to DefaultEngineTimeout.
func New(s store.Store, e *engine.Engine, rec audit.Recorder, engineTimeout time.Duration) *Runner {
	if engineTimeout <= 0 {
		engineTimeout = DefaultEngineTimeout
	}
	return &Runner{store: s, engine: e, audit: rec, engineTimeout: engineTimeout}
}

// Result summarizes one completed L1 run.
type Result struct {
	FileID       string
	FindingCount int
	SegmentCount int
	Elapsed      time.Duration
}

// RunL1ForFile claims ev's file and runs the L1 pass over it.
//
// A claim miss (file not in the parsed state) returns a non-retriable error:
// the file was either already processed or is not ready, and retrying cannot
// change that. Failures after the claim roll the file back to failed on a
// best-effort basis before the error propagates.
func (r *Runner) RunL1ForFile(ctx context.Context, ev model.ProcessFileEvent) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, resilience.NonRetriable(err)
	}

	file, err := r.store.GetFile(ctx, ev.TenantID, ev.FileID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: load file")
	}
	if file == nil {
		return nil, resilience.NonRetriable(eris.Errorf("runner: file not found: %s", ev.FileID))
	}

	claimed, err := r.store.CASFileStatus(ctx, ev.TenantID, ev.FileID, model.FileStatusParsed, model.FileStatusL1Processing)
	if err != nil {
		return nil, eris.Wrap(err, "runner: claim file")
	}
	if !claimed {
		return nil, resilience.NonRetriable(
			eris.Errorf("runner: file %s not claimable, status is %s", ev.FileID, file.Status))
	}

	res, err := r.process(ctx, ev)
	if err != nil {
		r.rollback(ctx, ev)
		return nil, err
	}
	return res, nil
}

func (r *Runner) process(ctx context.Context, ev model.ProcessFileEvent) (*Result, error) {
	started := time.Now()

	segments, err := r.store.ListSegments(ctx, ev.TenantID, ev.FileID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: list segments")
	}
	terms, err := r.store.ListGlossaryTerms(ctx, ev.TenantID, ev.ProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: list glossary terms")
	}
	rules, err := r.store.ListSuppressionRules(ctx, ev.TenantID, ev.ProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: list suppression rules")
	}
	suppressed, customRules := model.PartitionSuppressionRules(rules)

	findings, err := r.runEngine(ctx, segments, terms, suppressed, customRules)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range findings {
		findings[i].FileID = ev.FileID
		findings[i].Layer = model.LayerL1
		findings[i].Status = model.FindingStatusPending
		findings[i].CreatedAt = now
	}

	if err := r.store.ReplaceFindings(ctx, ev.TenantID, ev.FileID, model.LayerL1, findings); err != nil {
		return nil, eris.Wrap(err, "runner: replace findings")
	}

	advanced, err := r.store.CASFileStatus(ctx, ev.TenantID, ev.FileID, model.FileStatusL1Processing, model.FileStatusL1Completed)
	if err != nil {
		return nil, eris.Wrap(err, "runner: complete file")
	}
	if !advanced {
		// Someone moved the file out from under us, most likely a manual
		// failure reset. The findings are written, so just report it.
		return nil, resilience.NonRetriable(eris.Errorf("runner: file %s left l1_processing during the run", ev.FileID))
	}

	elapsed := time.Since(started)
	zap.L().Info("l1 run completed",
		zap.String("tenant_id", ev.TenantID),
		zap.String("file_id", ev.FileID),
		zap.Int("segments", len(segments)),
		zap.Int("findings", len(findings)),
		zap.Duration("elapsed", elapsed),
	)

	r.recordCompletion(ev, findings, elapsed)

	return &Result{
		FileID:       ev.FileID,
		FindingCount: len(findings),
		SegmentCount: len(segments),
		Elapsed:      elapsed,
	}, nil
}

// runEngine executes the check pass under the configured timeout. The engine
// itself is pure and cannot be cancelled mid-segment, so a timeout abandons
// the goroutine and lets it finish into a discarded channel.
func (r *Runner) runEngine(
	ctx context.Context,
	segments []model.Segment,
	terms []model.GlossaryTerm,
	suppressed map[string]bool,
	customRules []model.CustomRuleDef,
) ([]model.Finding, error) {
	done := make(chan []model.Finding, 1)
	go func() {
		done <- r.engine.ProcessFile(segments, terms, suppressed, customRules)
	}()

	timer := time.NewTimer(r.engineTimeout)
	defer timer.Stop()

	select {
	case findings := <-done:
		return findings, nil
	case <-timer.C:
		return nil, eris.Errorf("runner: engine pass exceeded %s", r.engineTimeout)
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "runner: engine pass cancelled")
	}
}

// rollback moves a claimed file to failed. Best effort: the claim state is
// already lost if this fails, and the original error matters more. The
// failure being rolled back may be ctx's own cancellation, so the write
// runs on a detached context.
func (r *Runner) rollback(ctx context.Context, ev model.ProcessFileEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	ok, err := r.store.CASFileStatus(ctx, ev.TenantID, ev.FileID, model.FileStatusL1Processing, model.FileStatusFailed)
	if err != nil || !ok {
		zap.L().Warn("l1 rollback to failed did not apply",
			zap.String("file_id", ev.FileID),
			zap.Bool("applied", ok),
			zap.Error(err),
		)
	}
}

func (r *Runner) recordCompletion(ev model.ProcessFileEvent, findings []model.Finding, elapsed time.Duration) {
	if r.audit == nil {
		return
	}

	bySeverity := map[string]int{}
	for _, f := range findings {
		bySeverity[string(f.Severity)]++
	}

	r.audit.Record(model.AuditEntry{
		TenantID:   ev.TenantID,
		UserID:     ev.UserID,
		EntityType: "file",
		EntityID:   ev.FileID,
		Action:     "l1_completed",
		OldValue:   map[string]any{"status": string(model.FileStatusParsed)},
		NewValue: map[string]any{
			"status":      string(model.FileStatusL1Completed),
			"findings":    len(findings),
			"severities":  bySeverity,
			"duration_ms": elapsed.Milliseconds(),
		},
	})
}
