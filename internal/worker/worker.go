package worker

import (
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/temporal"
	"github.com/stanstork/sponsordesk-api/internal/temporal/activities"
	"github.com/stanstork/sponsordesk-api/internal/temporal/workflows"
	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"
)

type WorkerConfig struct {
	Client    client.Client
	TaskQueue string
	Scanner   activities.Scanner
	// MaxConcurrentScans caps parallel derivation activities; 4 when unset.
	MaxConcurrentScans int
}

// Worker hosts the derivation workflow and activity for one task queue.
type Worker struct {
	cfg    WorkerConfig
	w      sdkworker.Worker
	logger zerolog.Logger
}

func NewWorker(cfg WorkerConfig, logger zerolog.Logger) *Worker {
	if cfg.TaskQueue == "" {
		cfg.TaskQueue = temporal.DefaultTaskQueue
	}
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = 4
	}

	w := sdkworker.New(cfg.Client, cfg.TaskQueue, sdkworker.Options{
		MaxConcurrentActivityExecutionSize: cfg.MaxConcurrentScans,
	})
	w.RegisterWorkflow(workflows.DerivationWorkflow)
	w.RegisterActivity(&activities.Activities{Scanner: cfg.Scanner})

	return &Worker{
		cfg:    cfg,
		w:      w,
		logger: logger.With().Str("component", "temporal_worker").Logger(),
	}
}

// Start begins polling without blocking.
func (w *Worker) Start() error {
	w.logger.Info().Str("task_queue", w.cfg.TaskQueue).Msg("Starting Temporal worker...")
	return w.w.Start()
}

func (w *Worker) Stop() {
	w.logger.Info().Msg("Stopping Temporal worker...")
	w.w.Stop()
	w.logger.Info().Msg("Temporal worker stopped.")
}
