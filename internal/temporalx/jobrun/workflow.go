package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
)

const (
	pollInterval      = 2 * time.Second
	continueTickLimit = 2000
	continueHistory   = 15000
)

// Workflow drives one job_run row, identified by the workflow ID. Failed runs
// return an error so the workflow retry policy schedules the next attempt.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
	})

	for ticks := 1; ; ticks++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}

		switch out.Status {
		case types.JobStatusSucceeded, types.JobStatusCanceled:
			return nil
		case types.JobStatusFailed:
			return fmt.Errorf("job failed (stage=%s attempts=%d)", out.Stage, out.Attempts)
		}

		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
		if ticks >= continueTickLimit || workflow.GetInfo(ctx).GetCurrentHistoryLength() >= continueHistory {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
	}
}
