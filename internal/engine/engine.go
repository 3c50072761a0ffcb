// Package engine implements the deterministic L1 rule matching engine: a
// pure function from segments and project rules to findings, with no I/O
// and no shared mutable state between invocations.
package engine

import (
	"regexp"
	"sort"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/textseg"
)

// Check is one registered rule. Each check independently scans every
// segment; a check whose category is suppressed is skipped before running.
type Check interface {
	Category() string
	Run(seg model.Segment, in *Inputs) []model.Finding
}

// Inputs carries the read-only per-file inputs shared by every check in one
// ProcessFile call.
type Inputs struct {
	Terms       []model.GlossaryTerm
	CustomRules []model.CustomRuleDef
	Segmenters  *textseg.SegmenterCache

	// patterns holds custom rule regexes compiled once per call. Rules with
	// invalid patterns are absent and silently skipped.
	patterns map[string]*regexp.Regexp
}

// Engine holds the registered check set and the segmenter cache shared
// across invocations. The cache is safe for concurrent use, so one Engine
// serves any number of files in parallel.
type Engine struct {
	checks     []Check
	segmenters *textseg.SegmenterCache
}

// New builds an engine with the default check set.
func New(segmenters *textseg.SegmenterCache) *Engine {
	if segmenters == nil {
		segmenters = textseg.NewSegmenterCache()
	}
	e := &Engine{segmenters: segmenters}
	e.Register(&glossaryCheck{})
	e.Register(&emptyTargetCheck{})
	e.Register(&customRuleCheck{})
	return e
}

// Register appends a check. Registration order is part of the engine's
// deterministic contract and must not vary between runs.
func (e *Engine) Register(c Check) {
	e.checks = append(e.checks, c)
}

// Categories lists the categories of all registered checks in order.
func (e *Engine) Categories() []string {
	cats := make([]string, len(e.checks))
	for i, c := range e.checks {
		cats[i] = c.Category()
	}
	return cats
}

// ProcessFile runs every non-suppressed check over every segment and
// returns the findings in a stable order. Identical inputs always produce
// an identical finding list. Zero segments yields an empty, non-nil slice.
func (e *Engine) ProcessFile(
	segments []model.Segment,
	terms []model.GlossaryTerm,
	suppressed map[string]bool,
	customRules []model.CustomRuleDef,
) []model.Finding {
	in := &Inputs{
		Terms:       terms,
		CustomRules: customRules,
		Segmenters:  e.segmenters,
		patterns:    compilePatterns(customRules),
	}

	findings := []model.Finding{}
	for _, c := range e.checks {
		if suppressed[c.Category()] {
			continue
		}
		for _, seg := range segments {
			findings = append(findings, c.Run(seg, in)...)
		}
	}

	ordinals := make(map[string]int, len(segments))
	for _, seg := range segments {
		ordinals[seg.ID] = seg.Ordinal
	}
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if ordinals[a.SegmentID] != ordinals[b.SegmentID] {
			return ordinals[a.SegmentID] < ordinals[b.SegmentID]
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.TargetStart != b.TargetStart {
			return a.TargetStart < b.TargetStart
		}
		return a.Description < b.Description
	})

	return findings
}

func compilePatterns(rules []model.CustomRuleDef) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	for _, r := range rules {
		if r.Kind != model.RuleKindPattern {
			continue
		}
		if _, ok := patterns[r.Pattern]; ok {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			continue
		}
		patterns[r.Pattern] = re
	}
	return patterns
}
