package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultHourlySpec         = "@hourly"
	defaultDailySpec          = "@daily"
)

// SessionExpirer ends sessions whose refresh window has passed.
type SessionExpirer interface {
	ExpireSessions(ctx context.Context) (int64, error)
}

// StaleExpirer marks time-boxed records (invitations, estimates) as expired.
type StaleExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// AuditPruner removes audit rows past the retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Dependencies lists the services the cleaner drives. A nil dependency skips
// the corresponding job.
type Dependencies struct {
	Sessions    SessionExpirer
	Invitations StaleExpirer
	Estimates   StaleExpirer
	Audit       AuditPruner
	Cache       cache.Store
}

// Cleaner coordinates background maintenance: expiring sessions, invitations
// and estimates, pruning audit logs and purging expired cache rows.
type Cleaner struct {
	deps      Dependencies
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	hourlySchedule string
	dailySchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithHourlySchedule overrides the cron expression for session and invitation expiry.
func WithHourlySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.hourlySchedule = spec
		}
	}
}

// WithDailySchedule overrides the cron expression for estimates, audit retention and cache purging.
func WithDailySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.dailySchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(deps Dependencies, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		deps:           deps,
		retention:      defaultAuditRetentionDays,
		hourlySchedule: defaultHourlySpec,
		dailySchedule:  defaultDailySpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.deps.Sessions != nil {
		jobs = append(jobs, job{"sessions", c.hourlySchedule, c.deps.Sessions.ExpireSessions})
	}
	if c.deps.Invitations != nil {
		jobs = append(jobs, job{"invitations", c.hourlySchedule, c.deps.Invitations.ExpireStale})
	}
	if c.deps.Estimates != nil {
		jobs = append(jobs, job{"estimates", c.dailySchedule, c.deps.Estimates.ExpireStale})
	}
	if c.deps.Audit != nil && c.retention > 0 {
		jobs = append(jobs, job{"audit", c.dailySchedule, func(ctx context.Context) (int64, error) {
			return c.deps.Audit.CleanupOlderThan(ctx, c.retention)
		}})
	}
	if purger, ok := c.deps.Cache.(cache.Purger); ok && purger != nil {
		jobs = append(jobs, job{"cache", c.dailySchedule, purger.PurgeExpired})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			affected, err := j.run(context.Background())
			if err != nil {
				c.log.Warn("cleanup failed", zap.String("job", j.name), zap.Error(err))
				return
			}
			if affected > 0 {
				c.log.Info("cleanup completed", zap.String("job", j.name), zap.Int64("affected", affected))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and returns the rows
// affected per job.
func (c *Cleaner) RunOnce(ctx context.Context) (map[string]int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	stats := make(map[string]int64)
	for _, j := range c.jobs() {
		affected, err := j.run(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j.name, err))
			continue
		}
		stats[j.name] = affected
	}
	return stats, errs
}
