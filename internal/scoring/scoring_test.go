package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linguaflow/qa-pipeline/internal/model"
)

func finding(sev model.Severity, status model.FindingStatus) model.Finding {
	return model.Finding{Severity: sev, Status: status, Layer: model.LayerL1}
}

func TestScoreBasicPenalty(t *testing.T) {
	s := NewMQM()

	// 1 critical + 2 major + 3 minor = 25 + 10 + 3 = 38 points over 1000 words.
	findings := []model.Finding{
		finding(model.SeverityCritical, model.FindingStatusPending),
		finding(model.SeverityMajor, model.FindingStatusAccepted),
		finding(model.SeverityMajor, model.FindingStatusEdited),
		finding(model.SeverityMinor, model.FindingStatusPending),
		finding(model.SeverityMinor, model.FindingStatusPending),
		finding(model.SeverityMinor, model.FindingStatusPending),
	}
	sc := s.Score(findings, 1000)

	assert.InDelta(t, 38.0, sc.NPT, 1e-9)
	assert.InDelta(t, 62.0, sc.MQMScore, 1e-9)
	assert.Equal(t, model.ScoreStatusCalculated, sc.Status)
	assert.Equal(t, 1, sc.CriticalCount)
	assert.Equal(t, 2, sc.MajorCount)
	assert.Equal(t, 3, sc.MinorCount)
}

func TestScoreNormalizesByWordCount(t *testing.T) {
	s := NewMQM()
	findings := []model.Finding{finding(model.SeverityMajor, model.FindingStatusPending)}

	// Same single major finding, ten times the words, one tenth the penalty.
	small := s.Score(findings, 500)
	large := s.Score(findings, 5000)

	assert.InDelta(t, 10.0, small.NPT, 1e-9)
	assert.InDelta(t, 1.0, large.NPT, 1e-9)
	assert.Greater(t, large.MQMScore, small.MQMScore)
}

func TestScoreRejectedFindingsExcluded(t *testing.T) {
	s := NewMQM()
	findings := []model.Finding{
		finding(model.SeverityCritical, model.FindingStatusRejected),
		finding(model.SeverityMajor, model.FindingStatusPending),
	}
	sc := s.Score(findings, 1000)

	assert.InDelta(t, 5.0, sc.NPT, 1e-9)
	assert.Equal(t, 0, sc.CriticalCount, "rejected findings do not appear in counts")
	assert.Equal(t, 1, sc.MajorCount)
}

func TestScoreEnhancementsCarryNoWeight(t *testing.T) {
	s := NewMQM()
	findings := []model.Finding{
		finding(model.SeverityEnhancement, model.FindingStatusPending),
		finding(model.SeverityEnhancement, model.FindingStatusAccepted),
	}
	sc := s.Score(findings, 1000)

	assert.Zero(t, sc.NPT)
	assert.InDelta(t, 100.0, sc.MQMScore, 1e-9)
	// Enhancements still count as participating findings, so this is a
	// calculated 100, not an auto-pass.
	assert.Equal(t, model.ScoreStatusCalculated, sc.Status)
}

func TestScoreClampedAtZero(t *testing.T) {
	s := NewMQM()
	findings := make([]model.Finding, 10)
	for i := range findings {
		findings[i] = finding(model.SeverityCritical, model.FindingStatusPending)
	}
	// 250 points over 100 words = 2500 NPT.
	sc := s.Score(findings, 100)

	assert.InDelta(t, 2500.0, sc.NPT, 1e-9)
	assert.Zero(t, sc.MQMScore)
}

func TestScoreAutoPass(t *testing.T) {
	s := NewMQM()

	sc := s.Score(nil, 1000)
	assert.Equal(t, model.ScoreStatusAutoPassed, sc.Status)
	assert.InDelta(t, 100.0, sc.MQMScore, 1e-9)
	assert.NotEmpty(t, sc.AutoPassRationale)

	// All findings rejected behaves like no findings.
	sc = s.Score([]model.Finding{finding(model.SeverityCritical, model.FindingStatusRejected)}, 1000)
	assert.Equal(t, model.ScoreStatusAutoPassed, sc.Status)
	assert.InDelta(t, 100.0, sc.MQMScore, 1e-9)
}

func TestScoreZeroWords(t *testing.T) {
	s := NewMQM()
	sc := s.Score([]model.Finding{finding(model.SeverityMajor, model.FindingStatusPending)}, 0)

	assert.Equal(t, model.ScoreStatusNA, sc.Status)
	assert.Zero(t, sc.MQMScore)
	assert.Zero(t, sc.NPT)
}
