package jobs

import (
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// TaskQueue is the single queue all pipeline jobs run on.
const TaskQueue = "qa-pipeline"

// NewWorker builds a worker with every workflow and activity registered.
func NewWorker(c client.Client, acts *Activities) worker.Worker {
	w := worker.New(c, TaskQueue, worker.Options{})

	w.RegisterWorkflow(BatchWorkflow)
	w.RegisterWorkflow(ProcessFileWorkflow)
	w.RegisterWorkflow(RecalculateScoreWorkflow)

	w.RegisterActivity(acts.RunL1)
	w.RegisterActivity(acts.ScoreFile)
	w.RegisterActivity(acts.MarkFileFailed)
	w.RegisterActivity(acts.RecalculateScore)
	w.RegisterActivity(acts.WriteRecalcFailureAudit)

	return w
}
