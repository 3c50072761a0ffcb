// Package importer loads bilingual XLSX files into segments and seeds
// project glossaries and suppression rules from YAML.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/store"
	"github.com/linguaflow/qa-pipeline/internal/textseg"
)

// Importer parses input files and writes them through the store.
type Importer struct {
	store      store.Store
	segmenters *textseg.SegmenterCache
}

// New builds an Importer. A nil cache gets a fresh one.
func New(s store.Store, segmenters *textseg.SegmenterCache) *Importer {
	if segmenters == nil {
		segmenters = textseg.NewSegmenterCache()
	}
	return &Importer{store: s, segmenters: segmenters}
}

// XLSXOptions describes one bilingual workbook: column 0 holds source text,
// column 1 holds target text, one segment per row.
type XLSXOptions struct {
	TenantID     string
	ProjectID    string
	SourceLocale string
	TargetLocale string
}

// ImportXLSX loads a bilingual workbook, creates the file record, inserts
// its segments with word counts, and marks the file parsed.
func (im *Importer) ImportXLSX(ctx context.Context, path string, opts XLSXOptions) (*model.File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}
	sum := sha256.Sum256(raw)

	wb, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: parse %s", path)
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.Errorf("importer: %s has no sheets", path)
	}

	file := &model.File{
		TenantID:    opts.TenantID,
		ProjectID:   opts.ProjectID,
		Name:        filepath.Base(path),
		Status:      model.FileStatusUploaded,
		Hash:        hex.EncodeToString(sum[:]),
		StoragePath: path,
	}
	if err := im.store.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	segments := im.extractSegments(wb.Sheets[0], file.ID, opts)
	if err := im.store.InsertSegments(ctx, opts.TenantID, segments); err != nil {
		return nil, err
	}
	if err := im.store.UpdateFileStatus(ctx, opts.TenantID, file.ID, model.FileStatusParsed); err != nil {
		return nil, err
	}
	file.Status = model.FileStatusParsed

	zap.L().Info("file imported",
		zap.String("tenant_id", opts.TenantID),
		zap.String("file_id", file.ID),
		zap.String("name", file.Name),
		zap.Int("segments", len(segments)),
	)
	return file, nil
}

func (im *Importer) extractSegments(sheet *xlsx.Sheet, fileID string, opts XLSXOptions) []model.Segment {
	seg := im.segmenters.Get(opts.SourceLocale)

	var segments []model.Segment
	ordinal := 0
	for i, row := range sheet.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		source := cellString(row, 0)
		target := cellString(row, 1)
		if i == 0 && isHeaderRow(source, target) {
			continue
		}
		if strings.TrimSpace(source) == "" && strings.TrimSpace(target) == "" {
			continue
		}

		segments = append(segments, model.Segment{
			FileID:       fileID,
			Ordinal:      ordinal,
			SourceText:   source,
			TargetText:   target,
			SourceLocale: opts.SourceLocale,
			TargetLocale: opts.TargetLocale,
			WordCount:    len(seg.Words(textseg.Normalize(source))),
		})
		ordinal++
	}
	return segments
}

func cellString(row *xlsx.Row, idx int) string {
	if idx >= len(row.Cells) {
		return ""
	}
	return row.Cells[idx].String()
}

func isHeaderRow(source, target string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	t := strings.ToLower(strings.TrimSpace(target))
	return (s == "source" || s == "source_text") && (t == "target" || t == "target_text")
}

type glossarySeed struct {
	Name  string `yaml:"name"`
	Terms []struct {
		Source        string `yaml:"source"`
		Target        string `yaml:"target"`
		CaseSensitive bool   `yaml:"case_sensitive"`
	} `yaml:"terms"`
}

// ImportGlossaryYAML seeds a project glossary from a YAML file.
func (im *Importer) ImportGlossaryYAML(ctx context.Context, path, tenantID, projectID string) (*model.Glossary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}
	var seed glossarySeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, eris.Wrapf(err, "importer: parse %s", path)
	}
	if len(seed.Terms) == 0 {
		return nil, eris.Errorf("importer: %s defines no terms", path)
	}

	g := &model.Glossary{TenantID: tenantID, ProjectID: projectID, Name: seed.Name}
	if err := im.store.CreateGlossary(ctx, g); err != nil {
		return nil, err
	}

	terms := make([]model.GlossaryTerm, 0, len(seed.Terms))
	for _, t := range seed.Terms {
		if t.Source == "" || t.Target == "" {
			return nil, eris.Errorf("importer: %s: term needs both source and target", path)
		}
		terms = append(terms, model.GlossaryTerm{
			GlossaryID:    g.ID,
			SourceTerm:    t.Source,
			TargetTerm:    t.Target,
			CaseSensitive: t.CaseSensitive,
		})
	}
	if err := im.store.InsertGlossaryTerms(ctx, terms); err != nil {
		return nil, err
	}

	zap.L().Info("glossary imported",
		zap.String("glossary_id", g.ID),
		zap.Int("terms", len(terms)),
	)
	return g, nil
}

type suppressionSeed struct {
	Rules []struct {
		Category   string               `yaml:"category"`
		Definition *model.CustomRuleDef `yaml:"definition"`
	} `yaml:"rules"`
}

// ImportSuppressionYAML seeds a project's suppression rules from a YAML
// file. Rules with a custom_rule category must carry a definition.
func (im *Importer) ImportSuppressionYAML(ctx context.Context, path, tenantID, projectID string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: read %s", path)
	}
	var seed suppressionSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, eris.Wrapf(err, "importer: parse %s", path)
	}

	rules := make([]model.SuppressionRule, 0, len(seed.Rules))
	for _, r := range seed.Rules {
		if r.Category == "" {
			return 0, eris.Errorf("importer: %s: rule needs a category", path)
		}
		if r.Category == model.CategoryCustomRule && r.Definition == nil {
			return 0, eris.Errorf("importer: %s: custom_rule needs a definition", path)
		}
		rules = append(rules, model.SuppressionRule{
			TenantID:   tenantID,
			ProjectID:  projectID,
			Category:   r.Category,
			Definition: r.Definition,
			Active:     true,
		})
	}
	if err := im.store.InsertSuppressionRules(ctx, rules); err != nil {
		return 0, err
	}
	return len(rules), nil
}
