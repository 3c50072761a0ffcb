package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var findingsTenant string

var findingsCmd = &cobra.Command{
	Use:   "findings <file-id>",
	Short: "Show a file's status, findings, and score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		fileID := args[0]

		file, err := st.GetFile(ctx, findingsTenant, fileID)
		if err != nil {
			return err
		}
		if file == nil {
			return fmt.Errorf("file not found: %s", fileID)
		}
		cmd.Printf("%s\t%s\t%s\n", file.ID, file.Name, file.Status)

		findings, err := st.ListFindings(ctx, findingsTenant, fileID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEGMENT\tCATEGORY\tSEVERITY\tSTATUS\tDESCRIPTION")
		for _, f := range findings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.SegmentID, f.Category, f.Severity, f.Status, f.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		score, err := st.GetScore(ctx, findingsTenant, fileID)
		if err != nil {
			return err
		}
		if score == nil {
			cmd.Println("score: not yet calculated")
			return nil
		}
		cmd.Printf("score: %.2f (%s, %d words, npt %.2f)\n", score.MQMScore, score.Status, score.TotalWords, score.NPT)
		return nil
	},
}

func init() {
	findingsCmd.Flags().StringVar(&findingsTenant, "tenant", "", "tenant ID (required)")
	_ = findingsCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(findingsCmd)
}
