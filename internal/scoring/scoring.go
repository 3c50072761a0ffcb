// Package scoring computes the aggregate quality score for a file from its
// reviewed findings. The MQM-style calculation is pluggable behind Scorer so
// alternative weighting schemes can be swapped in per deployment.
package scoring

import (
	"github.com/linguaflow/qa-pipeline/internal/model"
)

// Scorer turns a file's findings and word count into a Score.
type Scorer interface {
	Score(findings []model.Finding, totalWords int) model.Score
}

// Severity weights in error points per occurrence.
const (
	WeightCritical    = 25.0
	WeightMajor       = 5.0
	WeightMinor       = 1.0
	WeightEnhancement = 0.0
)

// MQMScorer implements the MQM normalized-penalty calculation: error points
// per thousand words, subtracted from 100 and clamped at zero.
type MQMScorer struct{}

// NewMQM returns the default scorer.
func NewMQM() *MQMScorer {
	return &MQMScorer{}
}

// counted reports whether a finding contributes to the penalty. Rejected
// findings were reviewed and dismissed, so they carry no weight.
func counted(f model.Finding) bool {
	switch f.Status {
	case model.FindingStatusPending, model.FindingStatusAccepted, model.FindingStatusEdited:
		return true
	}
	return false
}

func weight(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return WeightCritical
	case model.SeverityMajor:
		return WeightMajor
	case model.SeverityMinor:
		return WeightMinor
	default:
		return WeightEnhancement
	}
}

func (m *MQMScorer) Score(findings []model.Finding, totalWords int) model.Score {
	sc := model.Score{
		TotalWords: totalWords,
		Status:     model.ScoreStatusCalculated,
	}

	if totalWords <= 0 {
		sc.Status = model.ScoreStatusNA
		return sc
	}

	var points float64
	var participating int
	for _, f := range findings {
		if !counted(f) {
			continue
		}
		participating++
		points += weight(f.Severity)
		switch f.Severity {
		case model.SeverityCritical:
			sc.CriticalCount++
		case model.SeverityMajor:
			sc.MajorCount++
		case model.SeverityMinor:
			sc.MinorCount++
		}
	}

	if participating == 0 {
		sc.MQMScore = 100
		sc.Status = model.ScoreStatusAutoPassed
		sc.AutoPassRationale = "no findings counted toward the penalty"
		return sc
	}

	sc.NPT = points / float64(totalWords) * 1000
	sc.MQMScore = 100 - sc.NPT
	if sc.MQMScore < 0 {
		sc.MQMScore = 0
	}
	return sc
}
