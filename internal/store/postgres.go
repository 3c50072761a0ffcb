package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/linguaflow/qa-pipeline/internal/db"
	"github.com/linguaflow/qa-pipeline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries prepared on each new connection for the
// hottest store operations.
var preparedStatements = map[string]string{
	"cas_file_status":    `UPDATE files SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND status = $5`,
	"update_file_status": `UPDATE files SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
	"get_file":           `SELECT id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at FROM files WHERE tenant_id = $1 AND id = $2`,
	"list_segments":      `SELECT id, file_id, ordinal, source_text, target_text, source_locale, target_locale, word_count FROM segments WHERE tenant_id = $1 AND file_id = $2 ORDER BY ordinal`,
	"get_score":          `SELECT id, tenant_id, file_id, mqm_score, npt, total_words, critical_count, major_count, minor_count, status, auto_pass_rationale, updated_at FROM scores WHERE tenant_id = $1 AND file_id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	project_id   TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'uploaded',
	hash         TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
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

CREATE INDEX IF NOT EXISTS idx_glossaries_project ON glossaries(tenant_id, project_id);

CREATE TABLE IF NOT EXISTS glossary_terms (
	id             TEXT PRIMARY KEY,
	glossary_id    TEXT NOT NULL REFERENCES glossaries(id) ON DELETE CASCADE,
	source_term    TEXT NOT NULL,
	target_term    TEXT NOT NULL,
	case_sensitive BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_glossary_terms_glossary ON glossary_terms(glossary_id);

CREATE TABLE IF NOT EXISTS suppression_rules (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	project_id TEXT NOT NULL,
	category   TEXT NOT NULL,
	definition JSONB,
	active     BOOLEAN NOT NULL DEFAULT true
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_findings_file_layer ON findings(tenant_id, file_id, layer);
CREATE INDEX IF NOT EXISTS idx_findings_status ON findings(status);

CREATE TABLE IF NOT EXISTS scores (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL,
	file_id             TEXT NOT NULL UNIQUE REFERENCES files(id) ON DELETE CASCADE,
	mqm_score           DOUBLE PRECISION NOT NULL DEFAULT 0,
	npt                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_words         INTEGER NOT NULL DEFAULT 0,
	critical_count      INTEGER NOT NULL DEFAULT 0,
	major_count         INTEGER NOT NULL DEFAULT 0,
	minor_count         INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'na',
	auto_pass_rationale TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	action      TEXT NOT NULL,
	old_value   JSONB,
	new_value   JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(tenant_id, entity_type, entity_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateFile(ctx context.Context, f *model.File) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.TenantID, f.ProjectID, f.Name, string(f.Status), f.Hash, f.StoragePath, now, now,
	)
	return eris.Wrap(err, "postgres: insert file")
}

func (s *PostgresStore) GetFile(ctx context.Context, tenantID, fileID string) (*model.File, error) {
	var f model.File
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, project_id, name, status, hash, storage_path, created_at, updated_at
		 FROM files WHERE tenant_id = $1 AND id = $2`,
		tenantID, fileID,
	).Scan(&f.ID, &f.TenantID, &f.ProjectID, &f.Name, &f.Status, &f.Hash, &f.StoragePath, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get file %s", fileID)
	}
	return &f, nil
}

func (s *PostgresStore) CASFileStatus(ctx context.Context, tenantID, fileID string, from, to model.FileStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND status = $5`,
		string(to), time.Now().UTC(), tenantID, fileID, string(from),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: cas file status %s", fileID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateFileStatus(ctx context.Context, tenantID, fileID string, to model.FileStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
		string(to), time.Now().UTC(), tenantID, fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update file status %s", fileID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("file not found: %s", fileID)
	}
	return nil
}

func (s *PostgresStore) InsertSegments(ctx context.Context, tenantID string, segments []model.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	rows := make([][]any, len(segments))
	for i, seg := range segments {
		if seg.ID == "" {
			seg.ID = uuid.New().String()
			segments[i] = seg
		}
		rows[i] = []any{seg.ID, tenantID, seg.FileID, seg.Ordinal, seg.SourceText, seg.TargetText, seg.SourceLocale, seg.TargetLocale, seg.WordCount}
	}
	_, err := db.CopyFrom(ctx, s.pool, "segments",
		[]string{"id", "tenant_id", "file_id", "ordinal", "source_text", "target_text", "source_locale", "target_locale", "word_count"},
		rows,
	)
	return eris.Wrap(err, "postgres: insert segments")
}

func (s *PostgresStore) ListSegments(ctx context.Context, tenantID, fileID string) ([]model.Segment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_id, ordinal, source_text, target_text, source_locale, target_locale, word_count
		 FROM segments WHERE tenant_id = $1 AND file_id = $2 ORDER BY ordinal`,
		tenantID, fileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list segments")
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.ID, &seg.FileID, &seg.Ordinal, &seg.SourceText, &seg.TargetText, &seg.SourceLocale, &seg.TargetLocale, &seg.WordCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan segment")
		}
		segments = append(segments, seg)
	}
	return segments, eris.Wrap(rows.Err(), "postgres: list segments iterate")
}

func (s *PostgresStore) CountFileWords(ctx context.Context, tenantID, fileID string) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(word_count), 0) FROM segments WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	).Scan(&total)
	return total, eris.Wrap(err, "postgres: count file words")
}

func (s *PostgresStore) CreateGlossary(ctx context.Context, g *model.Glossary) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO glossaries (id, tenant_id, project_id, name) VALUES ($1, $2, $3, $4)`,
		g.ID, g.TenantID, g.ProjectID, g.Name,
	)
	return eris.Wrap(err, "postgres: insert glossary")
}

func (s *PostgresStore) InsertGlossaryTerms(ctx context.Context, terms []model.GlossaryTerm) error {
	if len(terms) == 0 {
		return nil
	}
	rows := make([][]any, len(terms))
	for i, t := range terms {
		if t.ID == "" {
			t.ID = uuid.New().String()
			terms[i] = t
		}
		rows[i] = []any{t.ID, t.GlossaryID, t.SourceTerm, t.TargetTerm, t.CaseSensitive}
	}
	_, err := db.CopyFrom(ctx, s.pool, "glossary_terms",
		[]string{"id", "glossary_id", "source_term", "target_term", "case_sensitive"},
		rows,
	)
	return eris.Wrap(err, "postgres: insert glossary terms")
}

func (s *PostgresStore) ListGlossaryTerms(ctx context.Context, tenantID, projectID string) ([]model.GlossaryTerm, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.glossary_id, t.source_term, t.target_term, t.case_sensitive
		 FROM glossary_terms t
		 JOIN glossaries g ON g.id = t.glossary_id
		 WHERE g.tenant_id = $1 AND g.project_id = $2
		 ORDER BY t.source_term`,
		tenantID, projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list glossary terms")
	}
	defer rows.Close()

	var terms []model.GlossaryTerm
	for rows.Next() {
		var t model.GlossaryTerm
		if err := rows.Scan(&t.ID, &t.GlossaryID, &t.SourceTerm, &t.TargetTerm, &t.CaseSensitive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan glossary term")
		}
		terms = append(terms, t)
	}
	return terms, eris.Wrap(rows.Err(), "postgres: list glossary terms iterate")
}

func (s *PostgresStore) InsertSuppressionRules(ctx context.Context, rules []model.SuppressionRule) error {
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		var defJSON []byte
		if r.Definition != nil {
			var err error
			defJSON, err = json.Marshal(r.Definition)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal rule definition")
			}
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO suppression_rules (id, tenant_id, project_id, category, definition, active)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ID, r.TenantID, r.ProjectID, r.Category, defJSON, r.Active,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert suppression rule")
		}
	}
	return nil
}

func (s *PostgresStore) ListSuppressionRules(ctx context.Context, tenantID, projectID string) ([]model.SuppressionRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, project_id, category, definition, active
		 FROM suppression_rules
		 WHERE tenant_id = $1 AND project_id = $2 AND active
		 ORDER BY category, id`,
		tenantID, projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suppression rules")
	}
	defer rows.Close()

	var rules []model.SuppressionRule
	for rows.Next() {
		var r model.SuppressionRule
		var defJSON []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ProjectID, &r.Category, &defJSON, &r.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan suppression rule")
		}
		if len(defJSON) > 0 {
			r.Definition = &model.CustomRuleDef{}
			if err := json.Unmarshal(defJSON, r.Definition); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal rule definition")
			}
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "postgres: list suppression rules iterate")
}

var findingColumns = []string{
	"id", "tenant_id", "file_id", "segment_id", "category", "severity",
	"description", "suggestion", "source_excerpt", "target_excerpt",
	"target_start", "layer", "status", "review_session", "created_at",
}

// buildFindingInsert renders one multi-row INSERT for a bounded batch.
func buildFindingInsert(tenantID string, batch []model.Finding) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO findings (` + strings.Join(findingColumns, ", ") + `) VALUES `)

	args := make([]any, 0, len(batch)*len(findingColumns))
	for i, f := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * len(findingColumns)
		placeholders := make([]string, len(findingColumns))
		for j := range findingColumns {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		sb.WriteString("(" + strings.Join(placeholders, ", ") + ")")
		args = append(args,
			f.ID, tenantID, f.FileID, f.SegmentID, f.Category, string(f.Severity),
			f.Description, f.Suggestion, f.SourceExcerpt, f.TargetExcerpt,
			f.TargetStart, f.Layer, string(f.Status), f.ReviewSession, f.CreatedAt,
		)
	}
	return sb.String(), args
}

func (s *PostgresStore) ReplaceFindings(ctx context.Context, tenantID, fileID, layer string, findings []model.Finding) error {
	now := time.Now().UTC()
	for i := range findings {
		if findings[i].ID == "" {
			findings[i].ID = uuid.New().String()
		}
		if findings[i].CreatedAt.IsZero() {
			findings[i].CreatedAt = now
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace findings")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		`DELETE FROM findings WHERE tenant_id = $1 AND file_id = $2 AND layer = $3`,
		tenantID, fileID, layer,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: delete findings")
	}

	for start := 0; start < len(findings); start += FindingInsertBatchSize {
		end := start + FindingInsertBatchSize
		if end > len(findings) {
			end = len(findings)
		}
		sql, args := buildFindingInsert(tenantID, findings[start:end])
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return eris.Wrap(err, "postgres: insert findings batch")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace findings")
}

func (s *PostgresStore) ListFindings(ctx context.Context, tenantID, fileID string) ([]model.Finding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(findingColumns, ", ")+`
		 FROM findings WHERE tenant_id = $1 AND file_id = $2
		 ORDER BY created_at, id`,
		tenantID, fileID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, eris.Wrap(rows.Err(), "postgres: list findings iterate")
}

func scanFinding(row pgx.Row) (model.Finding, error) {
	var f model.Finding
	var tenantID string
	err := row.Scan(&f.ID, &tenantID, &f.FileID, &f.SegmentID, &f.Category, &f.Severity,
		&f.Description, &f.Suggestion, &f.SourceExcerpt, &f.TargetExcerpt,
		&f.TargetStart, &f.Layer, &f.Status, &f.ReviewSession, &f.CreatedAt)
	if err != nil {
		return model.Finding{}, eris.Wrap(err, "postgres: scan finding")
	}
	return f, nil
}

func (s *PostgresStore) UpdateFindingStatus(ctx context.Context, tenantID, findingID string, status model.FindingStatus) (*model.Finding, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE findings SET status = $1 WHERE tenant_id = $2 AND id = $3
		 RETURNING `+strings.Join(findingColumns, ", "),
		string(status), tenantID, findingID,
	)
	f, err := scanFinding(row)
	if err != nil {
		if errors.Is(eris.Unwrap(err), pgx.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("finding not found: %s", findingID)
		}
		return nil, eris.Wrapf(err, "postgres: update finding status %s", findingID)
	}
	return &f, nil
}

func (s *PostgresStore) UpsertScore(ctx context.Context, sc *model.Score) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	sc.UpdatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scores (id, tenant_id, file_id, mqm_score, npt, total_words, critical_count, major_count, minor_count, status, auto_pass_rationale, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (file_id) DO UPDATE SET
		   mqm_score = $4, npt = $5, total_words = $6, critical_count = $7,
		   major_count = $8, minor_count = $9, status = $10, auto_pass_rationale = $11, updated_at = $12`,
		sc.ID, sc.TenantID, sc.FileID, sc.MQMScore, sc.NPT, sc.TotalWords,
		sc.CriticalCount, sc.MajorCount, sc.MinorCount, string(sc.Status), sc.AutoPassRationale, sc.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert score")
}

func (s *PostgresStore) GetScore(ctx context.Context, tenantID, fileID string) (*model.Score, error) {
	var sc model.Score
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, file_id, mqm_score, npt, total_words, critical_count, major_count, minor_count, status, auto_pass_rationale, updated_at
		 FROM scores WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	).Scan(&sc.ID, &sc.TenantID, &sc.FileID, &sc.MQMScore, &sc.NPT, &sc.TotalWords,
		&sc.CriticalCount, &sc.MajorCount, &sc.MinorCount, &sc.Status, &sc.AutoPassRationale, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get score for file %s", fileID)
	}
	return &sc, nil
}

func (s *PostgresStore) WriteAuditLog(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	oldJSON, err := marshalNullable(entry.OldValue)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit old value")
	}
	newJSON, err := marshalNullable(entry.NewValue)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit new value")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, tenant_id, user_id, entity_type, entity_id, action, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.TenantID, entry.UserID, entry.EntityType, entry.EntityID, entry.Action, oldJSON, newJSON, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: write audit log")
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
