package derivation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

type Reason string

const (
	ReasonSchedule Reason = "schedule"
	ReasonLogin    Reason = "login"
	ReasonManual   Reason = "manual"
)

// Request asks for one owner to be scanned.
type Request struct {
	Owner  authz.Identity
	Reason Reason
	At     time.Time
}

// Runner executes a scan, in process or through a workflow engine.
type Runner interface {
	RunScan(ctx context.Context, req Request) error
}

// LocalRunner scans in the calling goroutine.
type LocalRunner struct {
	Engine *Engine
}

func (r LocalRunner) RunScan(ctx context.Context, req Request) error {
	_, err := r.Engine.Scan(ctx, req.Owner)
	return err
}

type OwnerLister interface {
	ListOwners(ctx context.Context) ([]repository.Owner, error)
}

const triggerQueueSize = 64

// Scheduler scans every campaign owner at start and on a fixed interval.
// Triggered scans go through the same loop, so one process runs one scan at a time.
type Scheduler struct {
	owners      OwnerLister
	runner      Runner
	interval    time.Duration
	initialScan bool
	trigger     chan Request
	now         func() time.Time
	logger      zerolog.Logger
}

func NewScheduler(owners OwnerLister, runner Runner, interval time.Duration, initialScan bool, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		owners:      owners,
		runner:      runner,
		interval:    interval,
		initialScan: initialScan,
		trigger:     make(chan Request, triggerQueueSize),
		now:         time.Now,
		logger:      logger.With().Str("component", "derivation_scheduler").Logger(),
	}
}

// Trigger queues a scan for one owner. It never blocks and reports false
// when the queue is full.
func (s *Scheduler) Trigger(owner authz.Identity, reason Reason) bool {
	if !owner.Valid() {
		return false
	}
	select {
	case s.trigger <- Request{Owner: owner, Reason: reason, At: s.now()}:
		return true
	default:
		s.logger.Warn().Str("user_id", owner.UserID).Msg("scan queue full, dropping trigger")
		return false
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("notification scheduler started")

	if s.initialScan {
		s.ScanAll(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification scheduler stopping")
			return
		case <-ticker.C:
			s.ScanAll(ctx)
		case req := <-s.trigger:
			s.run(ctx, req)
		}
	}
}

// ScanAll scans every owner with at least one campaign and returns how many
// scans succeeded.
func (s *Scheduler) ScanAll(ctx context.Context) int {
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list campaign owners")
		return 0
	}

	at := s.now()
	ok := 0
	for _, o := range owners {
		if ctx.Err() != nil {
			break
		}
		if s.run(ctx, Request{Owner: authz.Identity{UserID: o.UserID, Email: o.Email}, Reason: ReasonSchedule, At: at}) {
			ok++
		}
	}
	return ok
}

func (s *Scheduler) run(ctx context.Context, req Request) bool {
	if err := s.runner.RunScan(ctx, req); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", req.Owner.UserID).
			Str("reason", string(req.Reason)).
			Msg("notification scan failed")
		return false
	}
	return true
}
