package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/textseg"
)

// CategoryTerminology tags glossary violations.
const CategoryTerminology = "terminology"

// CategoryCompleteness tags untranslated or empty targets.
const CategoryCompleteness = "completeness"

// glossaryCheck flags segments whose source contains a glossary term but
// whose target lacks the required translation.
type glossaryCheck struct{}

func (glossaryCheck) Category() string { return CategoryTerminology }

func (glossaryCheck) Run(seg model.Segment, in *Inputs) []model.Finding {
	var findings []model.Finding
	for _, term := range in.Terms {
		if term.SourceTerm == "" || term.TargetTerm == "" {
			continue
		}
		srcHits := findTerm(seg.SourceText, term.SourceTerm, seg.SourceLocale, term.CaseSensitive, in.Segmenters)
		if len(srcHits) == 0 {
			continue
		}
		if containsTerm(seg.TargetText, term.TargetTerm, seg.TargetLocale, term.CaseSensitive, in.Segmenters) {
			continue
		}
		findings = append(findings, model.Finding{
			SegmentID:     seg.ID,
			Category:      CategoryTerminology,
			Severity:      model.SeverityMajor,
			Description:   fmt.Sprintf("glossary term %q must be translated as %q", term.SourceTerm, term.TargetTerm),
			Suggestion:    term.TargetTerm,
			SourceExcerpt: excerpt(seg.SourceText, srcHits[0], utf8.RuneCountInString(term.SourceTerm)),
			TargetExcerpt: excerpt(seg.TargetText, 0, 0),
			TargetStart:   0,
			Status:        model.FindingStatusPending,
		})
	}
	return findings
}

// emptyTargetCheck flags segments with source content but no translation.
type emptyTargetCheck struct{}

func (emptyTargetCheck) Category() string { return CategoryCompleteness }

func (emptyTargetCheck) Run(seg model.Segment, _ *Inputs) []model.Finding {
	if strings.TrimSpace(seg.SourceText) == "" || strings.TrimSpace(seg.TargetText) != "" {
		return nil
	}
	return []model.Finding{{
		SegmentID:     seg.ID,
		Category:      CategoryCompleteness,
		Severity:      model.SeverityCritical,
		Description:   "segment has source content but an empty target",
		SourceExcerpt: excerpt(seg.SourceText, 0, 0),
		TargetStart:   0,
		Status:        model.FindingStatusPending,
	}}
}

// customRuleCheck evaluates project-defined rules against target text. Its
// category is the custom_rule sentinel, which by construction can never
// appear in the suppressed set.
type customRuleCheck struct{}

func (customRuleCheck) Category() string { return model.CategoryCustomRule }

func (customRuleCheck) Run(seg model.Segment, in *Inputs) []model.Finding {
	var findings []model.Finding
	for _, rule := range in.CustomRules {
		switch rule.Kind {
		case model.RuleKindForbiddenTerm:
			for _, hit := range findTerm(seg.TargetText, rule.Pattern, seg.TargetLocale, false, in.Segmenters) {
				findings = append(findings, customFinding(seg, rule, hit, utf8.RuneCountInString(rule.Pattern)))
			}
		case model.RuleKindPattern:
			re := in.patterns[rule.Pattern]
			if re == nil {
				continue
			}
			norm := textseg.Normalize(seg.TargetText)
			for _, loc := range re.FindAllStringIndex(norm, -1) {
				start := utf8.RuneCountInString(norm[:loc[0]])
				length := utf8.RuneCountInString(norm[loc[0]:loc[1]])
				findings = append(findings, customFinding(seg, rule, start, length))
			}
		}
	}
	return findings
}

func customFinding(seg model.Segment, rule model.CustomRuleDef, start, length int) model.Finding {
	desc := rule.Description
	if desc == "" {
		desc = fmt.Sprintf("custom rule %q matched target text", rule.Name)
	}
	sev := rule.Severity
	if !model.ValidSeverity(sev) {
		sev = model.SeverityMinor
	}
	return model.Finding{
		SegmentID:     seg.ID,
		Category:      model.CategoryCustomRule,
		Severity:      sev,
		Description:   desc,
		TargetExcerpt: excerpt(seg.TargetText, start, length),
		TargetStart:   start,
		Status:        model.FindingStatusPending,
	}
}
