package ingestrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/surveybridge-backend/internal/temporalx"
)

// Start launches a manifest run and returns its workflow and run ids.
func Start(ctx context.Context, tc temporalsdkclient.Client, in Input) (string, string, error) {
	if tc == nil {
		return "", "", fmt.Errorf("temporal client is not configured")
	}
	cfg := temporalx.LoadConfig()
	run, err := tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        "survey-ingest-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}, WorkflowName, in)
	if err != nil {
		return "", "", fmt.Errorf("start %s: %w", WorkflowName, err)
	}
	return run.GetID(), run.GetRunID(), nil
}
