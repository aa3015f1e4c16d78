package sweeper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/envutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type Config struct {
	Every        time.Duration
	JobRetention time.Duration
}

// LoadConfig reads SWEEP_INTERVAL_MINUTES and JOB_RETENTION_DAYS.
func LoadConfig() Config {
	return Config{
		Every:        time.Duration(envutil.Int("SWEEP_INTERVAL_MINUTES", 30)) * time.Minute,
		JobRetention: time.Duration(envutil.Int("JOB_RETENTION_DAYS", 14)) * 24 * time.Hour,
	}
}

// Sweeper periodically hard-deletes expired auth tokens and finished job runs.
type Sweeper struct {
	db     *gorm.DB
	log    *logger.Logger
	tokens repos.UserTokenRepo
	jobs   repos.JobRunRepo
	cfg    Config
	now    func() time.Time

	scheduler *gocron.Scheduler
}

func New(db *gorm.DB, baseLog *logger.Logger, tokens repos.UserTokenRepo, jobs repos.JobRunRepo, cfg Config) *Sweeper {
	if cfg.Every <= 0 {
		cfg.Every = 30 * time.Minute
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = 14 * 24 * time.Hour
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Sweeper{
		db:        db,
		log:       baseLog.With("component", "Sweeper"),
		tokens:    tokens,
		jobs:      jobs,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		scheduler: s,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.scheduler.Every(s.cfg.Every).Do(func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Info("sweeper started", "every", s.cfg.Every.String(), "job_retention", s.cfg.JobRetention.String())
	return nil
}

func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// Sweep runs one pass. Failures are logged; the next tick tries again.
func (s *Sweeper) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := s.now()
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}

	if n, err := s.tokens.FullDeleteExpired(dbc, now); err != nil {
		s.log.Warn("expired token sweep failed", "error", err)
	} else if n > 0 {
		s.log.Info("expired tokens removed", "count", n)
	}

	if n, err := s.jobs.DeleteFinishedBefore(dbc, now.Add(-s.cfg.JobRetention)); err != nil {
		s.log.Warn("job run sweep failed", "error", err)
	} else if n > 0 {
		s.log.Info("finished job runs removed", "count", n)
	}
}
