package main

import (
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/linguaflow/qa-pipeline/internal/audit"
	"github.com/linguaflow/qa-pipeline/internal/engine"
	"github.com/linguaflow/qa-pipeline/internal/jobs"
	"github.com/linguaflow/qa-pipeline/internal/runner"
	"github.com/linguaflow/qa-pipeline/internal/scoring"
	"github.com/linguaflow/qa-pipeline/internal/textseg"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the durable job worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		tc, err := initTemporal()
		if err != nil {
			return err
		}
		defer tc.Close()

		auditor := audit.NewWriter(st, cfg.Audit.QueueSize)
		defer auditor.Close()

		segmenters := textseg.NewSegmenterCache()
		acts := &jobs.Activities{
			Store:    st,
			Runner:   runner.New(st, engine.New(segmenters), auditor, cfg.Engine.Timeout()),
			Scorer:   scoring.NewMQM(),
			Throttle: jobs.NewProjectThrottle(cfg.Engine.ProjectConcurrency),
			Audit:    auditor,
		}

		w := jobs.NewWorker(tc, acts)
		zap.L().Info("worker starting",
			zap.String("task_queue", jobs.TaskQueue),
			zap.String("temporal", cfg.Temporal.HostPort),
		)
		return w.Run(worker.InterruptCh())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
