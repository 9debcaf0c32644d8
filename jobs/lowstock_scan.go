package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/inventory"
	jobmetrics "github.com/greenstock-ops/greenstock/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ActivityPort records timeline entries from background jobs.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// LowStockScanJob flags active products at or below their reorder threshold.
type LowStockScanJob struct {
	Inventory *inventory.Service
	Activity  ActivityPort
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(inv *inventory.Service, act ActivityPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Inventory: inv, Activity: act, Logger: logger, Metrics: metrics}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting low stock scan")

	products, err := j.Inventory.ListLowStock(ctx)
	if err != nil {
		resultErr = err
		logger.Error("list low stock products", slog.Any("error", err))
		return resultErr
	}
	if len(products) == 0 {
		logger.Info("no products below reorder threshold")
		return resultErr
	}

	for _, p := range products {
		logger.Warn("product below reorder threshold",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("quantity", p.Quantity),
			slog.Int64("threshold", p.ReorderThreshold))
		if j.Activity != nil {
			entry := activity.Entry{
				Action:     activity.ActionUpdated,
				Kind:       activity.KindProduct,
				ObjectID:   p.ID,
				ObjectName: p.Name,
				Detail:     fmt.Sprintf("low stock: %d on hand, threshold %d", p.Quantity, p.ReorderThreshold),
				OccurredAt: time.Now(),
			}
			if err := j.Activity.Record(ctx, entry); err != nil {
				logger.Warn("record low stock activity", slog.Int64("product_id", p.ID), slog.Any("error", err))
			}
		}
	}
	j.metrics().AddFlagged(TaskLowStockScan, "low_stock", len(products))

	logger.Info("completed low stock scan", slog.Int("flagged", len(products)))
	return resultErr
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
