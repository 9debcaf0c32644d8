package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueStock is the queue all background jobs run on.
	QueueStock = "stock"
	// TaskLowStockScan walks active products and flags those at or below
	// their reorder threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// TaskStaleAuditReminder flags audits left IN_PROGRESS too long.
	TaskStaleAuditReminder = "audits:stale_reminder"
)

// LowStockScanPayload carries scheduling metadata for the scan.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueStock)), nil
}

// IdempotencyCleanupPayload controls the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask builds a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueStock)), nil
}

// StaleAuditReminderPayload controls how old an open audit may be.
type StaleAuditReminderPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewStaleAuditReminderTask builds a reminder task.
func NewStaleAuditReminderTask(maxAge time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(StaleAuditReminderPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleAuditReminder, body, asynq.Queue(QueueStock)), nil
}
