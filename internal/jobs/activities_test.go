package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/resilience"
	"github.com/linguaflow/qa-pipeline/internal/scoring"
	"github.com/linguaflow/qa-pipeline/internal/store"
)

// stubStore overrides only the methods the scoring activities touch.
type stubStore struct {
	store.Store

	findings  []model.Finding
	words     int
	saved     *model.Score
	statusSet []model.FileStatus
	statusErr error
}

// stubRecorder captures audit entries handed to the sink.
type stubRecorder struct {
	entries []model.AuditEntry
}

func (r *stubRecorder) Record(entry model.AuditEntry) {
	r.entries = append(r.entries, entry)
}

func (s *stubStore) ListFindings(context.Context, string, string) ([]model.Finding, error) {
	return s.findings, nil
}

func (s *stubStore) CountFileWords(context.Context, string, string) (int, error) {
	return s.words, nil
}

func (s *stubStore) UpsertScore(_ context.Context, sc *model.Score) error {
	s.saved = sc
	return nil
}

func (s *stubStore) UpdateFileStatus(_ context.Context, _, _ string, to model.FileStatus) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusSet = append(s.statusSet, to)
	return nil
}

func TestAsActivityError(t *testing.T) {
	assert.NoError(t, asActivityError(nil))

	plain := errors.New("db unreachable")
	assert.Equal(t, plain, asActivityError(plain))

	wrapped := asActivityError(resilience.NonRetriable(errors.New("claim miss")))
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, resilience.NonRetriableType, appErr.Type())
}

func TestScoreFileComputesAndStores(t *testing.T) {
	st := &stubStore{
		findings: []model.Finding{
			{Severity: model.SeverityMajor, Status: model.FindingStatusPending},
		},
		words: 1000,
	}
	acts := &Activities{Store: st, Scorer: scoring.NewMQM(), Throttle: NewProjectThrottle(1)}

	err := acts.ScoreFile(context.Background(), model.ProcessFileEvent{
		FileID: "file-1", ProjectID: "proj-1", TenantID: "tenant-1",
	})
	require.NoError(t, err)
	require.NotNil(t, st.saved)
	assert.Equal(t, "tenant-1", st.saved.TenantID)
	assert.Equal(t, "file-1", st.saved.FileID)
	assert.InDelta(t, 95.0, st.saved.MQMScore, 1e-9)
}

func TestRecalculateScoreInvalidEventIsNonRetryable(t *testing.T) {
	acts := &Activities{Store: &stubStore{}, Scorer: scoring.NewMQM()}

	err := acts.RecalculateScore(context.Background(), model.FindingChangedEvent{})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, resilience.NonRetriableType, appErr.Type())
}

func TestRecalculateScoreHonorsProjectSlot(t *testing.T) {
	st := &stubStore{words: 100}
	th := NewProjectThrottle(1)
	acts := &Activities{Store: st, Scorer: scoring.NewMQM(), Throttle: th}

	release, err := th.Acquire(context.Background(), "proj-1")
	require.NoError(t, err)

	// A held slot blocks the recalculation for the same project.
	blocked, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = acts.RecalculateScore(blocked, changeEvent())
	require.Error(t, err)
	assert.Nil(t, st.saved)

	release()
	require.NoError(t, acts.RecalculateScore(context.Background(), changeEvent()))
	require.NotNil(t, st.saved)
}

func TestMarkFileFailedNeverErrors(t *testing.T) {
	st := &stubStore{}
	rec := &stubRecorder{}
	acts := &Activities{Store: st, Audit: rec}
	ev := model.ProcessFileEvent{FileID: "file-1", ProjectID: "proj-1", TenantID: "tenant-1"}

	require.NoError(t, acts.MarkFileFailed(context.Background(), ev))
	assert.Equal(t, []model.FileStatus{model.FileStatusFailed}, st.statusSet)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "processing_failed", rec.entries[0].Action)

	// Even a broken status write stays silent.
	st.statusErr = errors.New("db unreachable")
	require.NoError(t, acts.MarkFileFailed(context.Background(), ev))
}

func TestWriteRecalcFailureAudit(t *testing.T) {
	rec := &stubRecorder{}
	acts := &Activities{Store: &stubStore{}, Audit: rec}

	err := acts.WriteRecalcFailureAudit(context.Background(), model.FindingChangedEvent{
		FindingID: "finding-1", FileID: "file-1", TenantID: "tenant-1", TriggeredBy: "user-1",
		PreviousState: model.FindingStatusPending, NewState: model.FindingStatusAccepted,
	})
	require.NoError(t, err)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "recalculation_failed", rec.entries[0].Action)
	assert.Equal(t, "score", rec.entries[0].EntityType)
}
