package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaflow/qa-pipeline/internal/model"
)

// anyArgs returns n wildcard matchers; pgxmock treats a missing WithArgs as
// "expects zero arguments", so execs with unchecked args need explicit wildcards.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestCASFileStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE files SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND status = $5`)).
		WithArgs("l1_processing", pgxmock.AnyArg(), "tenant-1", "file-1", "parsed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := s.CASFileStatus(context.Background(), "tenant-1", "file-1", model.FileStatusParsed, model.FileStatusL1Processing)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCASFileStatusMiss(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE files SET status = $1`)).
		WithArgs("l1_processing", pgxmock.AnyArg(), "tenant-1", "file-1", "parsed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := s.CASFileStatus(context.Background(), "tenant-1", "file-1", model.FileStatusParsed, model.FileStatusL1Processing)
	require.NoError(t, err)
	assert.False(t, ok, "zero rows matched must report false without error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at`)).
		WithArgs("tenant-1", "missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "project_id", "name", "status", "hash", "storage_path", "created_at", "updated_at"}))

	f, err := s.GetFile(context.Background(), "tenant-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFile(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, tenant_id, project_id`).
		WithArgs("tenant-1", "file-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "project_id", "name", "status", "hash", "storage_path", "created_at", "updated_at"}).
			AddRow("file-1", "tenant-1", "proj-1", "doc.xlsx", "parsed", "abc123", "/files/doc.xlsx", now, now))

	f, err := s.GetFile(context.Background(), "tenant-1", "file-1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, model.FileStatusParsed, f.Status)
	assert.Equal(t, "proj-1", f.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFindings(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM findings WHERE tenant_id = $1 AND file_id = $2 AND layer = $3`)).
		WithArgs("tenant-1", "file-1", model.LayerL1).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`INSERT INTO findings`).
		WithArgs(anyArgs(2 * len(findingColumns))...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	findings := []model.Finding{
		{FileID: "file-1", SegmentID: "seg-1", Category: "terminology", Severity: model.SeverityMajor, Layer: model.LayerL1, Status: model.FindingStatusPending},
		{FileID: "file-1", SegmentID: "seg-2", Category: "completeness", Severity: model.SeverityCritical, Layer: model.LayerL1, Status: model.FindingStatusPending},
	}
	err := s.ReplaceFindings(context.Background(), "tenant-1", "file-1", model.LayerL1, findings)
	require.NoError(t, err)

	assert.NotEmpty(t, findings[0].ID, "missing finding IDs are assigned on insert")
	assert.False(t, findings[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFindingsEmptySet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM findings`).
		WithArgs("tenant-1", "file-1", model.LayerL1).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))
	mock.ExpectCommit()

	err := s.ReplaceFindings(context.Background(), "tenant-1", "file-1", model.LayerL1, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFindingsBatching(t *testing.T) {
	s, mock := newMockStore(t)

	findings := make([]model.Finding, FindingInsertBatchSize+50)
	for i := range findings {
		findings[i] = model.Finding{FileID: "file-1", SegmentID: "seg", Category: "terminology", Severity: model.SeverityMinor, Layer: model.LayerL1, Status: model.FindingStatusPending}
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM findings`).
		WithArgs(anyArgs(3)...).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO findings`).
		WithArgs(anyArgs(FindingInsertBatchSize * len(findingColumns))...).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(FindingInsertBatchSize)))
	mock.ExpectExec(`INSERT INTO findings`).
		WithArgs(anyArgs(50 * len(findingColumns))...).
		WillReturnResult(pgxmock.NewResult("INSERT", 50))
	mock.ExpectCommit()

	err := s.ReplaceFindings(context.Background(), "tenant-1", "file-1", model.LayerL1, findings)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFindingsRollbackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM findings`).
		WithArgs(anyArgs(3)...).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO findings`).
		WithArgs(anyArgs(len(findingColumns))...).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.ReplaceFindings(context.Background(), "tenant-1", "file-1", model.LayerL1, []model.Finding{
		{FileID: "file-1", SegmentID: "seg-1", Category: "terminology", Severity: model.SeverityMinor, Layer: model.LayerL1},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildFindingInsertPlaceholders(t *testing.T) {
	batch := []model.Finding{
		{ID: "a", FileID: "f", SegmentID: "s1"},
		{ID: "b", FileID: "f", SegmentID: "s2"},
	}
	sql, args := buildFindingInsert("tenant-1", batch)
	assert.Contains(t, sql, "($1, $2, $3")
	assert.Contains(t, sql, "$16")
	assert.Len(t, args, 2*len(findingColumns))
	assert.Equal(t, "tenant-1", args[1])
}

func TestUpdateFindingStatus(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE findings SET status = $1 WHERE tenant_id = $2 AND id = $3`)).
		WithArgs("rejected", "tenant-1", "finding-1").
		WillReturnRows(pgxmock.NewRows(findingColumns).
			AddRow("finding-1", "tenant-1", "file-1", "seg-1", "terminology", "major",
				"missing required term", "", "", "", 0, "l1", "rejected", "", now))

	f, err := s.UpdateFindingStatus(context.Background(), "tenant-1", "finding-1", model.FindingStatusRejected)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, model.FindingStatusRejected, f.Status)
	assert.Equal(t, "file-1", f.FileID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFindingStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE findings SET status`).
		WithArgs("accepted", "tenant-1", "ghost").
		WillReturnRows(pgxmock.NewRows(findingColumns))

	f, err := s.UpdateFindingStatus(context.Background(), "tenant-1", "ghost", model.FindingStatusAccepted)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertScore(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO scores`).
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sc := &model.Score{
		TenantID:   "tenant-1",
		FileID:     "file-1",
		MQMScore:   92.5,
		NPT:        7.5,
		TotalWords: 4000,
		MajorCount: 6,
		Status:     model.ScoreStatusCalculated,
	}
	err := s.UpsertScore(context.Background(), sc)
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.False(t, sc.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScoreNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, tenant_id, file_id, mqm_score`).
		WithArgs("tenant-1", "file-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	sc, err := s.GetScore(context.Background(), "tenant-1", "file-1")
	require.NoError(t, err)
	assert.Nil(t, sc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountFileWords(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(word_count), 0) FROM segments`)).
		WithArgs("tenant-1", "file-1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(1234))

	n, err := s.CountFileWords(context.Background(), "tenant-1", "file-1")
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSuppressionRules(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, tenant_id, project_id, category, definition, active`).
		WithArgs("tenant-1", "proj-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "project_id", "category", "definition", "active"}).
			AddRow("rule-1", "tenant-1", "proj-1", "terminology", []byte(nil), true).
			AddRow("rule-2", "tenant-1", "proj-1", model.CategoryCustomRule,
				[]byte(`{"name":"no-slang","kind":"pattern","pattern":"\\bgonna\\b","severity":"minor"}`), true))

	rules, err := s.ListSuppressionRules(context.Background(), "tenant-1", "proj-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Nil(t, rules[0].Definition)
	require.NotNil(t, rules[1].Definition)
	assert.Equal(t, "no-slang", rules[1].Definition.Name)
	assert.Equal(t, model.RuleKindPattern, rules[1].Definition.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSegments(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, file_id, ordinal, source_text`).
		WithArgs("tenant-1", "file-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "file_id", "ordinal", "source_text", "target_text", "source_locale", "target_locale", "word_count"}).
			AddRow("seg-1", "file-1", 0, "Hello", "Hallo", "en-US", "de-DE", 1).
			AddRow("seg-2", "file-1", 1, "World", "Welt", "en-US", "de-DE", 1))

	segments, err := s.ListSegments(context.Background(), "tenant-1", "file-1")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].Ordinal)
	assert.Equal(t, "Welt", segments[1].TargetText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteAuditLog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.WriteAuditLog(context.Background(), model.AuditEntry{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		EntityType: "finding",
		EntityID:   "finding-1",
		Action:     "status_changed",
		OldValue:   map[string]string{"status": "pending"},
		NewValue:   map[string]string{"status": "rejected"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
