package model

import "time"

// Severity ranks a finding by impact on translation quality.
type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityMajor       Severity = "major"
	SeverityMinor       Severity = "minor"
	SeverityEnhancement Severity = "enhancement"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityEnhancement:
		return true
	}
	return false
}

// FindingStatus is the review state of a finding.
type FindingStatus string

const (
	FindingStatusPending  FindingStatus = "pending"
	FindingStatusAccepted FindingStatus = "accepted"
	FindingStatusRejected FindingStatus = "rejected"
	FindingStatusEdited   FindingStatus = "edited"
)

// ValidFindingStatus reports whether s is a known finding status.
func ValidFindingStatus(s FindingStatus) bool {
	switch s {
	case FindingStatusPending, FindingStatusAccepted, FindingStatusRejected, FindingStatusEdited:
		return true
	}
	return false
}

// LayerL1 tags findings produced by the deterministic rule-based layer.
// Later review layers write findings under their own tags.
const LayerL1 = "l1"

// Finding is one detected quality issue attached to a segment. Findings for
// a given (file, layer) pair are replaced wholesale on every re-run of that
// layer, never merged.
type Finding struct {
	ID            string        `json:"id"`
	FileID        string        `json:"file_id"`
	SegmentID     string        `json:"segment_id"`
	Category      string        `json:"category"`
	Severity      Severity      `json:"severity"`
	Description   string        `json:"description"`
	Suggestion    string        `json:"suggestion,omitempty"`
	SourceExcerpt string        `json:"source_excerpt,omitempty"`
	TargetExcerpt string        `json:"target_excerpt,omitempty"`
	// TargetStart is the rune offset of the issue in the segment's target
	// text. The normalizer's equal-length substitution keeps this offset
	// valid against the original markup-laden string.
	TargetStart   int           `json:"target_start"`
	Layer         string        `json:"layer"`
	Status        FindingStatus `json:"status"`
	ReviewSession string        `json:"review_session,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ScoreStatus is the state of a file's aggregate quality score.
type ScoreStatus string

const (
	ScoreStatusNA          ScoreStatus = "na"
	ScoreStatusCalculating ScoreStatus = "calculating"
	ScoreStatusCalculated  ScoreStatus = "calculated"
	ScoreStatusAutoPassed  ScoreStatus = "auto_passed"
)

// Score is the single current aggregate quality metric for a file.
// It is overwritten in place on every recalculation.
type Score struct {
	ID                string      `json:"id"`
	TenantID          string      `json:"tenant_id"`
	FileID            string      `json:"file_id"`
	MQMScore          float64     `json:"mqm_score"`
	NPT               float64     `json:"npt"`
	TotalWords        int         `json:"total_words"`
	CriticalCount     int         `json:"critical_count"`
	MajorCount        int         `json:"major_count"`
	MinorCount        int         `json:"minor_count"`
	Status            ScoreStatus `json:"status"`
	AutoPassRationale string      `json:"auto_pass_rationale,omitempty"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
