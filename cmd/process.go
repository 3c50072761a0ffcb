package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/linguaflow/qa-pipeline/internal/api"
	"github.com/linguaflow/qa-pipeline/internal/model"
)

var (
	processTenant  string
	processProject string
	processUser    string
	processMode    string
)

var processCmd = &cobra.Command{
	Use:   "process <file-id>...",
	Short: "Queue a batch of imported files for rule analysis and scoring",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := initTemporal()
		if err != nil {
			return err
		}
		defer tc.Close()

		ev := model.BatchStartedEvent{
			BatchID:   uuid.New().String(),
			FileIDs:   args,
			ProjectID: processProject,
			TenantID:  processTenant,
			UserID:    processUser,
			Mode:      model.ProcessingMode(processMode),
		}
		if err := ev.Validate(); err != nil {
			return err
		}

		workflowID, err := api.NewTemporalStarter(tc).StartBatch(cmd.Context(), ev)
		if err != nil {
			return err
		}

		cmd.Printf("batch %s queued (%d files, workflow %s)\n", ev.BatchID, len(args), workflowID)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processTenant, "tenant", "", "tenant ID (required)")
	processCmd.Flags().StringVar(&processProject, "project", "", "project ID (required)")
	processCmd.Flags().StringVar(&processUser, "user", "cli", "user recorded in audit entries")
	processCmd.Flags().StringVar(&processMode, "mode", string(model.ModeFull), "processing mode: full or analysis_only")
	_ = processCmd.MarkFlagRequired("tenant")
	_ = processCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(processCmd)
}
