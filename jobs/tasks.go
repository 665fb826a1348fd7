package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup pre-populates the sales report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskLowStockScan flags products at or below the reorder threshold.
	TaskLowStockScan = "stock:low_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportsWarmupPayload carries scheduling metadata for a warmup run.
type ReportsWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReportsWarmupTask constructs an Asynq task for report warmup.
func NewReportsWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReportsWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload optionally overrides the configured threshold.
type LowStockScanPayload struct {
	Threshold int64 `json:"threshold,omitempty"`
}

// NewLowStockScanTask constructs an Asynq task for a low stock sweep.
func NewLowStockScanTask(threshold int64) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload optionally overrides the configured retention.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key cleanup.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
