package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/repository"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}

// PurgeJob deletes finished action records that started more than maxAge
// ago. A non-positive maxAge disables the job.
func PurgeJob(repo repository.Repository, maxAge time.Duration, logger *zap.Logger, now func() time.Time) func(context.Context) {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) {
		if repo == nil || maxAge <= 0 {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		cutoff := now().UTC().Add(-maxAge)
		n, err := repo.DeleteActionsBefore(ctx, cutoff)
		if logger == nil {
			return
		}
		if err != nil {
			logger.Warn("purge actions failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged actions", zap.Int64("deleted", n), zap.Time("before", cutoff))
		}
	}
}
