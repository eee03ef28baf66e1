package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/temporal"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Dispatcher runs scans as Temporal workflows. Scheduled scans share one
// workflow ID per owner and interval bucket, so several API replicas running
// the scheduler start at most one scan for that bucket.
type Dispatcher struct {
	client    client.Client
	taskQueue string
	interval  time.Duration
	logger    zerolog.Logger
}

var _ derivation.Runner = (*Dispatcher)(nil)

func NewDispatcher(c client.Client, taskQueue string, interval time.Duration, logger zerolog.Logger) *Dispatcher {
	if taskQueue == "" {
		taskQueue = temporal.DefaultTaskQueue
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Dispatcher{
		client:    c,
		taskQueue: taskQueue,
		interval:  interval,
		logger:    logger.With().Str("component", "derivation_dispatcher").Logger(),
	}
}

// WorkflowID names the workflow for a request.
func (d *Dispatcher) WorkflowID(req derivation.Request) string {
	if req.Reason == derivation.ReasonSchedule {
		bucket := req.At.UTC().Truncate(d.interval).Unix()
		return fmt.Sprintf("%s%s-%d", temporal.DerivationWorkflowIDPrefix, req.Owner.UserID, bucket)
	}
	return fmt.Sprintf("%s%s-%s-%s", temporal.DerivationWorkflowIDPrefix, req.Owner.UserID, req.Reason, uuid.NewString())
}

func (d *Dispatcher) RunScan(ctx context.Context, req derivation.Request) error {
	opts := client.StartWorkflowOptions{
		ID:                                       d.WorkflowID(req),
		TaskQueue:                                d.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	params := temporal.DerivationParams{
		UserID: req.Owner.UserID,
		Email:  req.Owner.Email,
		Reason: string(req.Reason),
	}

	run, err := d.client.ExecuteWorkflow(ctx, opts, DerivationWorkflow, params)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.logger.Debug().Str("workflow_id", opts.ID).Msg("scan already started elsewhere")
			return nil
		}
		return fmt.Errorf("start derivation workflow: %w", err)
	}

	var result temporal.DerivationResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("derivation workflow %s: %w", run.GetID(), err)
	}
	d.logger.Info().
		Str("workflow_id", run.GetID()).
		Str("user_id", params.UserID).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("derivation workflow finished")
	return nil
}
