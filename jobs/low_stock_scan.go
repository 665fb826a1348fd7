package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atlas-pos/atlas-pos/internal/observability"
	"github.com/atlas-pos/atlas-pos/internal/stock"
)

// LowStockScanJob sweeps the catalog for products at or below the reorder
// threshold and logs each hit so the store owner can restock.
type LowStockScanJob struct {
	Stock     *stock.Service
	Threshold int64
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(stockSvc *stock.Service, threshold int64, logger *slog.Logger, metrics *observability.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Stock: stockSvc, Threshold: threshold, Logger: logger, Metrics: metrics}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = j.Threshold
	}

	logger := j.logger()
	products, err := j.Stock.LowStock(ctx, threshold)
	if err != nil {
		j.Metrics.ObserveJob(TaskLowStockScan, "failure")
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}

	for _, p := range products {
		logger.Warn("product below reorder threshold",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("quantity", p.Quantity),
			slog.Int64("threshold", threshold))
	}

	j.Metrics.ObserveJob(TaskLowStockScan, "success")
	logger.Info("completed low stock scan", slog.Int("flagged", len(products)), slog.Int64("threshold", threshold))
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}
