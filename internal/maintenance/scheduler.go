// Package maintenance runs the periodic housekeeping jobs: sweeping idle
// unlocker gate sessions and purging published visit outbox entries.
package maintenance

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type GateSweeper interface {
	Sweep() (removed, active int)
}

type OutboxPurger interface {
	PurgeSent(ctx context.Context, cutoff time.Time) (int64, error)
}

type Options struct {
	GateSweepSpec   string
	OutboxPurgeSpec string
	OutboxRetention time.Duration
}

// Scheduler wires the jobs into a five-field cron. A nil sweeper or purger
// disables that job.
type Scheduler struct {
	c       *cron.Cron
	gates   GateSweeper
	outbox  OutboxPurger
	opts    Options
	now     func() time.Time
	timeout time.Duration
}

func NewScheduler(gates GateSweeper, outbox OutboxPurger, opts Options) *Scheduler {
	if opts.OutboxRetention <= 0 {
		opts.OutboxRetention = 7 * 24 * time.Hour
	}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		c:       c,
		gates:   gates,
		outbox:  outbox,
		opts:    opts,
		now:     time.Now,
		timeout: time.Minute,
	}
}

// Start registers the jobs and stops the cron when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.gates != nil && s.opts.GateSweepSpec != "" {
		if _, err := s.c.AddFunc(s.opts.GateSweepSpec, s.SweepGates); err != nil {
			return err
		}
	}
	if s.outbox != nil && s.opts.OutboxPurgeSpec != "" {
		if _, err := s.c.AddFunc(s.opts.OutboxPurgeSpec, func() { s.PurgeOutbox(ctx) }); err != nil {
			return err
		}
	}

	s.c.Start()
	logger.Info("maintenance scheduler started", zap.Int("jobs", len(s.c.Entries())))

	go func() {
		<-ctx.Done()
		<-s.c.Stop().Done()
	}()
	return nil
}

func (s *Scheduler) SweepGates() {
	removed, active := s.gates.Sweep()
	metrics.GateSessionsActive.Set(float64(active))
	if removed > 0 {
		logger.Info("swept idle gate sessions", zap.Int("removed", removed), zap.Int("active", active))
	}
}

func (s *Scheduler) PurgeOutbox(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.opts.OutboxRetention)
	deleted, err := s.outbox.PurgeSent(ctx, cutoff)
	if err != nil {
		logger.Error("outbox purge failed", zap.Error(err))
		return
	}
	metrics.OutboxPurged.Add(float64(deleted))
	logger.Info("purged sent outbox entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
}
