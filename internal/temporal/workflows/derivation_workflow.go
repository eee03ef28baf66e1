package workflows

import (
	"time"

	"github.com/stanstork/sponsordesk-api/internal/temporal"
	"github.com/stanstork/sponsordesk-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DerivationWorkflow scans one owner. Retried scans are safe because already
// stored notifications de-duplicate the next attempt.
func DerivationWorkflow(ctx workflow.Context, params temporal.DerivationParams) (temporal.DerivationResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting derivation workflow", "UserID", params.UserID, "Reason", params.Reason)

	var a *activities.Activities
	var result temporal.DerivationResult
	if err := workflow.ExecuteActivity(ctx, a.DeriveNotificationsActivity, params).Get(ctx, &result); err != nil {
		logger.Error("Derivation activity failed.", "error", err)
		return temporal.DerivationResult{}, err
	}

	logger.Info("Derivation workflow completed", "UserID", params.UserID, "Created", result.Created, "Failed", result.Failed)
	return result, nil
}
