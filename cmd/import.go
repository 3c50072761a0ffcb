package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linguaflow/qa-pipeline/internal/importer"
)

var (
	importTenant       string
	importProject      string
	importSourceLocale string
	importTargetLocale string
	importGlossary     string
	importRules        string
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>...",
	Short: "Import bilingual XLSX files and optional glossary/rule seeds",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		im := importer.New(st, nil)
		ctx := cmd.Context()

		if importGlossary != "" {
			g, err := im.ImportGlossaryYAML(ctx, importGlossary, importTenant, importProject)
			if err != nil {
				return err
			}
			zap.L().Info("glossary seeded", zap.String("glossary_id", g.ID))
		}
		if importRules != "" {
			n, err := im.ImportSuppressionYAML(ctx, importRules, importTenant, importProject)
			if err != nil {
				return err
			}
			zap.L().Info("suppression rules seeded", zap.Int("count", n))
		}

		for _, path := range args {
			file, err := im.ImportXLSX(ctx, path, importer.XLSXOptions{
				TenantID:     importTenant,
				ProjectID:    importProject,
				SourceLocale: importSourceLocale,
				TargetLocale: importTargetLocale,
			})
			if err != nil {
				return err
			}
			cmd.Printf("%s\t%s\n", file.ID, file.Name)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTenant, "tenant", "", "tenant ID (required)")
	importCmd.Flags().StringVar(&importProject, "project", "", "project ID (required)")
	importCmd.Flags().StringVar(&importSourceLocale, "source-locale", "en-US", "source locale")
	importCmd.Flags().StringVar(&importTargetLocale, "target-locale", "", "target locale (required for xlsx)")
	importCmd.Flags().StringVar(&importGlossary, "glossary", "", "glossary seed YAML")
	importCmd.Flags().StringVar(&importRules, "rules", "", "suppression rule seed YAML")
	_ = importCmd.MarkFlagRequired("tenant")
	_ = importCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(importCmd)
}
