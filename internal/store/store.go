// Package store provides tenant-scoped persistence for the QA pipeline.
// Every query carries an explicit tenant filter; row-level isolation beyond
// that filter is the platform's concern, not this package's.
package store

import (
	"context"

	"github.com/linguaflow/qa-pipeline/internal/model"
)

// Store is the persistence interface consumed by the file runner, the
// scoring engine, the importer, and the HTTP surface.
type Store interface {
	// Files
	CreateFile(ctx context.Context, f *model.File) error
	GetFile(ctx context.Context, tenantID, fileID string) (*model.File, error)
	// CASFileStatus transitions a file's status only if it currently equals
	// from. Returns false (and no error) when zero rows matched.
	CASFileStatus(ctx context.Context, tenantID, fileID string, from, to model.FileStatus) (bool, error)
	UpdateFileStatus(ctx context.Context, tenantID, fileID string, to model.FileStatus) error

	// Segments
	InsertSegments(ctx context.Context, tenantID string, segments []model.Segment) error
	ListSegments(ctx context.Context, tenantID, fileID string) ([]model.Segment, error)
	CountFileWords(ctx context.Context, tenantID, fileID string) (int, error)

	// Glossaries
	CreateGlossary(ctx context.Context, g *model.Glossary) error
	InsertGlossaryTerms(ctx context.Context, terms []model.GlossaryTerm) error
	ListGlossaryTerms(ctx context.Context, tenantID, projectID string) ([]model.GlossaryTerm, error)

	// Suppression rules
	InsertSuppressionRules(ctx context.Context, rules []model.SuppressionRule) error
	ListSuppressionRules(ctx context.Context, tenantID, projectID string) ([]model.SuppressionRule, error)

	// Findings
	// ReplaceFindings deletes all findings for (file, layer) and inserts the
	// new set inside one transaction, in bounded insert batches.
	ReplaceFindings(ctx context.Context, tenantID, fileID, layer string, findings []model.Finding) error
	ListFindings(ctx context.Context, tenantID, fileID string) ([]model.Finding, error)
	UpdateFindingStatus(ctx context.Context, tenantID, findingID string, status model.FindingStatus) (*model.Finding, error)

	// Scores
	UpsertScore(ctx context.Context, s *model.Score) error
	GetScore(ctx context.Context, tenantID, fileID string) (*model.Score, error)

	// Audit
	WriteAuditLog(ctx context.Context, entry model.AuditEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// FindingInsertBatchSize bounds the number of rows per INSERT statement in
// ReplaceFindings, keeping statement size reasonable for large files.
const FindingInsertBatchSize = 200
