// Package model defines the core data model for the QA pipeline: files,
// segments, glossary terms, suppression rules, findings, scores, and the
// event payloads exchanged with the job runtime.
package model

import "time"

// FileStatus is the lifecycle state of an uploaded bilingual file.
type FileStatus string

const (
	FileStatusUploaded     FileStatus = "uploaded"
	FileStatusParsed       FileStatus = "parsed"
	FileStatusL1Processing FileStatus = "l1_processing"
	FileStatusL1Completed  FileStatus = "l1_completed"
	FileStatusFailed       FileStatus = "failed"
)

// File is one uploaded bilingual document. Status is mutated only by the
// file runner and the per-file job's failure handler.
type File struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name"`
	Status      FileStatus `json:"status"`
	Hash        string     `json:"hash"`
	StoragePath string     `json:"storage_path"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Segment is one translation unit of a file. Segments are immutable once
// the parser has created them; the matching engine only reads them.
type Segment struct {
	ID           string `json:"id"`
	FileID       string `json:"file_id"`
	Ordinal      int    `json:"ordinal"`
	SourceText   string `json:"source_text"`
	TargetText   string `json:"target_text"`
	SourceLocale string `json:"source_locale"`
	TargetLocale string `json:"target_locale"`
	WordCount    int    `json:"word_count"`
}

// GlossaryTerm is a required source/target term pair scoped to a project
// glossary.
type GlossaryTerm struct {
	ID            string `json:"id"`
	GlossaryID    string `json:"glossary_id"`
	SourceTerm    string `json:"source_term"`
	TargetTerm    string `json:"target_term"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Glossary groups terms under a project.
type Glossary struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}
