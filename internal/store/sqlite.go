package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/linguaflow/qa-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// single-operator runs and CLI smoke tests; production deployments use
// PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	project_id   TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'uploaded',
	hash         TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_files_tenant_project ON files(tenant_id, project_id);
CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);

CREATE TABLE IF NOT EXISTS segments (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	file_id       TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	ordinal       INTEGER NOT NULL,
	source_text   TEXT NOT NULL DEFAULT '',
	target_text   TEXT NOT NULL DEFAULT '',
	source_locale TEXT NOT NULL DEFAULT '',
	target_locale TEXT NOT NULL DEFAULT '',
	word_count    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_segments_file ON segments(tenant_id, file_id, ordinal);

CREATE TABLE IF NOT EXISTS glossaries (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS glossary_terms (
	id             TEXT PRIMARY KEY,
	glossary_id    TEXT NOT NULL REFERENCES glossaries(id) ON DELETE CASCADE,
	source_term    TEXT NOT NULL,
	target_term    TEXT NOT NULL,
	case_sensitive INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_glossary_terms_glossary ON glossary_terms(glossary_id);

CREATE TABLE IF NOT EXISTS suppression_rules (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	project_id TEXT NOT NULL,
	category   TEXT NOT NULL,
	definition TEXT,
	active     INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_suppression_rules_project ON suppression_rules(tenant_id, project_id);

CREATE TABLE IF NOT EXISTS findings (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	file_id        TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	segment_id     TEXT NOT NULL,
	category       TEXT NOT NULL,
	severity       TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	suggestion     TEXT NOT NULL DEFAULT '',
	source_excerpt TEXT NOT NULL DEFAULT '',
	target_excerpt TEXT NOT NULL DEFAULT '',
	target_start   INTEGER NOT NULL DEFAULT 0,
	layer          TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	review_session TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_findings_file_layer ON findings(tenant_id, file_id, layer);

CREATE TABLE IF NOT EXISTS scores (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL,
	file_id             TEXT NOT NULL UNIQUE REFERENCES files(id) ON DELETE CASCADE,
	mqm_score           REAL NOT NULL DEFAULT 0,
	npt                 REAL NOT NULL DEFAULT 0,
	total_words         INTEGER NOT NULL DEFAULT 0,
	critical_count      INTEGER NOT NULL DEFAULT 0,
	major_count         INTEGER NOT NULL DEFAULT 0,
	minor_count         INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'na',
	auto_pass_rationale TEXT NOT NULL DEFAULT '',
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	action      TEXT NOT NULL,
	old_value   TEXT,
	new_value   TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(tenant_id, entity_type, entity_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFile(ctx context.Context, f *model.File) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TenantID, f.ProjectID, f.Name, string(f.Status), f.Hash, f.StoragePath, now, now,
	)
	return eris.Wrap(err, "sqlite: insert file")
}

func (s *SQLiteStore) GetFile(ctx context.Context, tenantID, fileID string) (*model.File, error) {
	var f model.File
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at
		 FROM files WHERE tenant_id = ? AND id = ?`,
		tenantID, fileID,
	).Scan(&f.ID, &f.TenantID, &f.ProjectID, &f.Name, &f.Status, &f.Hash, &f.StoragePath, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get file %s", fileID)
	}
	return &f, nil
}

func (s *SQLiteStore) CASFileStatus(ctx context.Context, tenantID, fileID string, from, to model.FileStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ? AND status = ?`,
		string(to), time.Now().UTC(), tenantID, fileID, string(from),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: cas file status %s", fileID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) UpdateFileStatus(ctx context.Context, tenantID, fileID string, to model.FileStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		string(to), time.Now().UTC(), tenantID, fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update file status %s", fileID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("file not found: %s", fileID)
	}
	return nil
}

func (s *SQLiteStore) InsertSegments(ctx context.Context, tenantID string, segments []model.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert segments")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (id, tenant_id, file_id, ordinal, source_text, target_text, source_locale, target_locale, word_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert segment")
	}
	defer stmt.Close()

	for i := range segments {
		if segments[i].ID == "" {
			segments[i].ID = uuid.New().String()
		}
		seg := segments[i]
		_, err := stmt.ExecContext(ctx, seg.ID, tenantID, seg.FileID, seg.Ordinal,
			seg.SourceText, seg.TargetText, seg.SourceLocale, seg.TargetLocale, seg.WordCount)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert segment %d", seg.Ordinal)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert segments")
}

func (s *SQLiteStore) ListSegments(ctx context.Context, tenantID, fileID string) ([]model.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, ordinal, source_text, target_text, source_locale, target_locale, word_count
		 FROM segments WHERE tenant_id = ? AND file_id = ? ORDER BY ordinal`,
		tenantID, fileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list segments")
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.ID, &seg.FileID, &seg.Ordinal, &seg.SourceText, &seg.TargetText, &seg.SourceLocale, &seg.TargetLocale, &seg.WordCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan segment")
		}
		segments = append(segments, seg)
	}
	return segments, eris.Wrap(rows.Err(), "sqlite: list segments iterate")
}

func (s *SQLiteStore) CountFileWords(ctx context.Context, tenantID, fileID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(word_count), 0) FROM segments WHERE tenant_id = ? AND file_id = ?`,
		tenantID, fileID,
	).Scan(&total)
	return total, eris.Wrap(err, "sqlite: count file words")
}

func (s *SQLiteStore) CreateGlossary(ctx context.Context, g *model.Glossary) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossaries (id, tenant_id, project_id, name) VALUES (?, ?, ?, ?)`,
		g.ID, g.TenantID, g.ProjectID, g.Name,
	)
	return eris.Wrap(err, "sqlite: insert glossary")
}

func (s *SQLiteStore) InsertGlossaryTerms(ctx context.Context, terms []model.GlossaryTerm) error {
	for i := range terms {
		if terms[i].ID == "" {
			terms[i].ID = uuid.New().String()
		}
		t := terms[i]
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO glossary_terms (id, glossary_id, source_term, target_term, case_sensitive)
			 VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.GlossaryID, t.SourceTerm, t.TargetTerm, t.CaseSensitive,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert glossary term")
		}
	}
	return nil
}

func (s *SQLiteStore) ListGlossaryTerms(ctx context.Context, tenantID, projectID string) ([]model.GlossaryTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.glossary_id, t.source_term, t.target_term, t.case_sensitive
		 FROM glossary_terms t
		 JOIN glossaries g ON g.id = t.glossary_id
		 WHERE g.tenant_id = ? AND g.project_id = ?
		 ORDER BY t.source_term`,
		tenantID, projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list glossary terms")
	}
	defer rows.Close()

	var terms []model.GlossaryTerm
	for rows.Next() {
		var t model.GlossaryTerm
		if err := rows.Scan(&t.ID, &t.GlossaryID, &t.SourceTerm, &t.TargetTerm, &t.CaseSensitive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan glossary term")
		}
		terms = append(terms, t)
	}
	return terms, eris.Wrap(rows.Err(), "sqlite: list glossary terms iterate")
}

func (s *SQLiteStore) InsertSuppressionRules(ctx context.Context, rules []model.SuppressionRule) error {
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.New().String()
		}
		r := rules[i]
		var defJSON any
		if r.Definition != nil {
			b, err := json.Marshal(r.Definition)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal rule definition")
			}
			defJSON = string(b)
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO suppression_rules (id, tenant_id, project_id, category, definition, active)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.TenantID, r.ProjectID, r.Category, defJSON, r.Active,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert suppression rule")
		}
	}
	return nil
}

func (s *SQLiteStore) ListSuppressionRules(ctx context.Context, tenantID, projectID string) ([]model.SuppressionRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, project_id, category, definition, active
		 FROM suppression_rules
		 WHERE tenant_id = ? AND project_id = ? AND active = 1
		 ORDER BY category, id`,
		tenantID, projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suppression rules")
	}
	defer rows.Close()

	var rules []model.SuppressionRule
	for rows.Next() {
		var r model.SuppressionRule
		var defJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ProjectID, &r.Category, &defJSON, &r.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suppression rule")
		}
		if defJSON.Valid && defJSON.String != "" {
			r.Definition = &model.CustomRuleDef{}
			if err := json.Unmarshal([]byte(defJSON.String), r.Definition); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal rule definition")
			}
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "sqlite: list suppression rules iterate")
}

func (s *SQLiteStore) ReplaceFindings(ctx context.Context, tenantID, fileID, layer string, findings []model.Finding) error {
	now := time.Now().UTC()
	for i := range findings {
		if findings[i].ID == "" {
			findings[i].ID = uuid.New().String()
		}
		if findings[i].CreatedAt.IsZero() {
			findings[i].CreatedAt = now
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace findings")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`DELETE FROM findings WHERE tenant_id = ? AND file_id = ? AND layer = ?`,
		tenantID, fileID, layer,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete findings")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (id, tenant_id, file_id, segment_id, category, severity, description, suggestion, source_excerpt, target_excerpt, target_start, layer, status, review_session, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert finding")
	}
	defer stmt.Close()

	for _, f := range findings {
		_, err := stmt.ExecContext(ctx, f.ID, tenantID, f.FileID, f.SegmentID, f.Category, string(f.Severity),
			f.Description, f.Suggestion, f.SourceExcerpt, f.TargetExcerpt, f.TargetStart,
			f.Layer, string(f.Status), f.ReviewSession, f.CreatedAt)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert finding")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace findings")
}

func (s *SQLiteStore) ListFindings(ctx context.Context, tenantID, fileID string) ([]model.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, segment_id, category, severity, description, suggestion, source_excerpt, target_excerpt, target_start, layer, status, review_session, created_at
		 FROM findings WHERE tenant_id = ? AND file_id = ?
		 ORDER BY created_at, id`,
		tenantID, fileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		if err := rows.Scan(&f.ID, &f.FileID, &f.SegmentID, &f.Category, &f.Severity,
			&f.Description, &f.Suggestion, &f.SourceExcerpt, &f.TargetExcerpt, &f.TargetStart,
			&f.Layer, &f.Status, &f.ReviewSession, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan finding")
		}
		findings = append(findings, f)
	}
	return findings, eris.Wrap(rows.Err(), "sqlite: list findings iterate")
}

func (s *SQLiteStore) UpdateFindingStatus(ctx context.Context, tenantID, findingID string, status model.FindingStatus) (*model.Finding, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE findings SET status = ? WHERE tenant_id = ? AND id = ?`,
		string(status), tenantID, findingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update finding status %s", findingID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, eris.Errorf("finding not found: %s", findingID)
	}

	var f model.Finding
	err = s.db.QueryRowContext(ctx,
		`SELECT id, file_id, segment_id, category, severity, description, suggestion, source_excerpt, target_excerpt, target_start, layer, status, review_session, created_at
		 FROM findings WHERE tenant_id = ? AND id = ?`,
		tenantID, findingID,
	).Scan(&f.ID, &f.FileID, &f.SegmentID, &f.Category, &f.Severity,
		&f.Description, &f.Suggestion, &f.SourceExcerpt, &f.TargetExcerpt, &f.TargetStart,
		&f.Layer, &f.Status, &f.ReviewSession, &f.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: reload finding %s", findingID)
	}
	return &f, nil
}

func (s *SQLiteStore) UpsertScore(ctx context.Context, sc *model.Score) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	sc.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (id, tenant_id, file_id, mqm_score, npt, total_words, critical_count, major_count, minor_count, status, auto_pass_rationale, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (file_id) DO UPDATE SET
		   mqm_score = excluded.mqm_score, npt = excluded.npt, total_words = excluded.total_words,
		   critical_count = excluded.critical_count, major_count = excluded.major_count,
		   minor_count = excluded.minor_count, status = excluded.status,
		   auto_pass_rationale = excluded.auto_pass_rationale, updated_at = excluded.updated_at`,
		sc.ID, sc.TenantID, sc.FileID, sc.MQMScore, sc.NPT, sc.TotalWords,
		sc.CriticalCount, sc.MajorCount, sc.MinorCount, string(sc.Status), sc.AutoPassRationale, sc.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert score")
}

func (s *SQLiteStore) GetScore(ctx context.Context, tenantID, fileID string) (*model.Score, error) {
	var sc model.Score
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, file_id, mqm_score, npt, total_words, critical_count, major_count, minor_count, status, auto_pass_rationale, updated_at
		 FROM scores WHERE tenant_id = ? AND file_id = ?`,
		tenantID, fileID,
	).Scan(&sc.ID, &sc.TenantID, &sc.FileID, &sc.MQMScore, &sc.NPT, &sc.TotalWords,
		&sc.CriticalCount, &sc.MajorCount, &sc.MinorCount, &sc.Status, &sc.AutoPassRationale, &sc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get score for file %s", fileID)
	}
	return &sc, nil
}

func (s *SQLiteStore) WriteAuditLog(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	oldJSON, err := marshalNullableString(entry.OldValue)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit old value")
	}
	newJSON, err := marshalNullableString(entry.NewValue)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit new value")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, tenant_id, user_id, entity_type, entity_id, action, old_value, new_value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TenantID, entry.UserID, entry.EntityType, entry.EntityID, entry.Action, oldJSON, newJSON, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: write audit log")
}

func marshalNullableString(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
