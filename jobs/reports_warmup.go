package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-pos/atlas-pos/internal/observability"
	"github.com/atlas-pos/atlas-pos/internal/sales"
)

// ReportsWarmupJob rebuilds the cached daily and top-product reports so the
// first dashboard request after an invalidation does not pay the query cost.
type ReportsWarmupJob struct {
	Reports *sales.Reports
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports *sales.Reports, logger *slog.Logger, metrics *observability.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	now := j.now()
	logger := j.logger()
	logger.Info("starting reports warmup")

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		_, err := j.Reports.Daily(gctx, now)
		return err
	})
	g.Go(func() error {
		_, err := j.Reports.Daily(gctx, now.AddDate(0, 0, -1))
		return err
	})
	g.Go(func() error {
		_, err := j.Reports.TopProducts(gctx, now.AddDate(0, 0, -30), now, 10)
		return err
	})

	if err := g.Wait(); err != nil {
		j.Metrics.ObserveJob(TaskReportsWarmup, "failure")
		logger.Error("reports warmup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.ObserveJob(TaskReportsWarmup, "success")
	logger.Info("completed reports warmup", slog.Duration("duration", time.Since(now)))
	return nil
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
