package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ProcessingMode selects how far the pipeline runs for a batch.
type ProcessingMode string

const (
	// ModeFull runs rule analysis and scoring.
	ModeFull ProcessingMode = "full"
	// ModeAnalysisOnly runs rule analysis without scoring.
	ModeAnalysisOnly ProcessingMode = "analysis_only"
)

// BatchStartedEvent kicks off processing for a set of files sharing one
// project context.
type BatchStartedEvent struct {
	BatchID   string         `json:"batch_id"`
	FileIDs   []string       `json:"file_ids"`
	ProjectID string         `json:"project_id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id"`
	Mode      ProcessingMode `json:"mode"`
}

// Validate checks the batch payload before fan-out.
func (e BatchStartedEvent) Validate() error {
	switch {
	case e.BatchID == "":
		return eris.New("batch-started event: batch_id is required")
	case len(e.FileIDs) == 0:
		return eris.New("batch-started event: file_ids is empty")
	case e.ProjectID == "":
		return eris.New("batch-started event: project_id is required")
	case e.TenantID == "":
		return eris.New("batch-started event: tenant_id is required")
	}
	return nil
}

// ProcessFileEvent instructs the per-file job to run one file through the
// rule layer and scoring.
type ProcessFileEvent struct {
	FileID    string         `json:"file_id"`
	ProjectID string         `json:"project_id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id"`
	Mode      ProcessingMode `json:"mode"`
}

// Validate checks the per-file payload.
func (e ProcessFileEvent) Validate() error {
	switch {
	case e.FileID == "":
		return eris.New("process-file event: file_id is required")
	case e.ProjectID == "":
		return eris.New("process-file event: project_id is required")
	case e.TenantID == "":
		return eris.New("process-file event: tenant_id is required")
	}
	return nil
}

// FindingChangedEvent records one finding status transition. It is the sole
// trigger for score recalculation.
type FindingChangedEvent struct {
	FindingID     string        `json:"finding_id"`
	FileID        string        `json:"file_id"`
	ProjectID     string        `json:"project_id"`
	TenantID      string        `json:"tenant_id"`
	TriggeredBy   string        `json:"triggered_by"`
	PreviousState FindingStatus `json:"previous_state"`
	NewState      FindingStatus `json:"new_state"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Validate strictly checks the payload. A malformed event is a precondition
// failure: the caller must treat the error as non-retriable.
func (e FindingChangedEvent) Validate() error {
	switch {
	case e.FindingID == "":
		return eris.New("finding-changed event: finding_id is required")
	case e.FileID == "":
		return eris.New("finding-changed event: file_id is required")
	case e.ProjectID == "":
		return eris.New("finding-changed event: project_id is required")
	case e.TenantID == "":
		return eris.New("finding-changed event: tenant_id is required")
	case e.TriggeredBy == "":
		return eris.New("finding-changed event: triggered_by is required")
	case e.Timestamp.IsZero():
		return eris.New("finding-changed event: timestamp is required")
	}
	if !ValidFindingStatus(e.PreviousState) {
		return eris.Errorf("finding-changed event: invalid previous_state %q", e.PreviousState)
	}
	if !ValidFindingStatus(e.NewState) {
		return eris.Errorf("finding-changed event: invalid new_state %q", e.NewState)
	}
	return nil
}

// AuditEntry is one fire-and-forget audit log row. Failures to write an
// entry never propagate to the operation being audited.
type AuditEntry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id,omitempty"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	OldValue   any       `json:"old_value,omitempty"`
	NewValue   any       `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
