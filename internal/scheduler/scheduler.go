// Package scheduler runs background maintenance jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultPruneInterval is used when Config.PruneInterval is not positive.
const DefaultPruneInterval = time.Minute

// Pruner removes expired entries from a cache. *secrets.Cache satisfies it.
type Pruner interface {
	// Prune removes entries expired at now and returns how many were removed.
	Prune(now time.Time) int
	// Now returns the cache's notion of the current time.
	Now() time.Time
}

// Config holds the scheduler configuration.
type Config struct {
	Cache         Pruner
	PruneInterval time.Duration
	Logger        *slog.Logger
	// OnPrune is optional. It receives the number of entries removed by each run.
	OnPrune func(removed int)
}

// Scheduler runs the secret-cache janitor using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("scheduler requires a cache")
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = DefaultPruneInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:   cron,
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Start schedules the prune job and starts the gocron scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.PruneInterval),
		gocron.NewTask(s.prune),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling secret cache prune: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "prune_interval", s.cfg.PruneInterval)
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) prune() {
	removed := s.cfg.Cache.Prune(s.cfg.Cache.Now())
	if s.cfg.OnPrune != nil {
		s.cfg.OnPrune(removed)
	}
	if removed > 0 {
		s.logger.Debug("pruned expired secrets", "removed", removed)
	}
}
