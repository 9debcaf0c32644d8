package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/activity"
	jobmetrics "github.com/greenstock-ops/greenstock/internal/jobs"
	"github.com/greenstock-ops/greenstock/internal/stockaudit"
)

// StaleAuditReminderJob flags audits that stayed open past the allowed age.
type StaleAuditReminderJob struct {
	Pool     *pgxpool.Pool
	Activity ActivityPort
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics

	// DefaultMaxAge applies when the payload carries none.
	DefaultMaxAge time.Duration
}

// NewStaleAuditReminderJob wires dependencies for the reminder handler.
func NewStaleAuditReminderJob(pool *pgxpool.Pool, act ActivityPort, logger *slog.Logger, metrics *jobmetrics.Metrics, maxAge time.Duration) *StaleAuditReminderJob {
	return &StaleAuditReminderJob{Pool: pool, Activity: act, Logger: logger, Metrics: metrics, DefaultMaxAge: maxAge}
}

type staleAudit struct {
	ID        int64
	CreatedAt time.Time
	Pending   int64
}

// Handle processes stale-audit reminder tasks.
func (j *StaleAuditReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("stale audit reminder: handler not configured")
	}
	var payload StaleAuditReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	maxAge := payload.MaxAge
	if maxAge <= 0 {
		maxAge = j.DefaultMaxAge
	}
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}

	tracker := j.metrics().Track(TaskStaleAuditReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := time.Now().Add(-maxAge)
	stale, err := j.fetchStale(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("load stale audits", slog.Any("error", err))
		return resultErr
	}
	if len(stale) == 0 {
		j.logger().Info("no stale audits")
		return resultErr
	}

	for _, a := range stale {
		j.logger().Warn("audit still in progress",
			slog.Int64("audit_id", a.ID),
			slog.Time("created_at", a.CreatedAt),
			slog.Int64("pending_details", a.Pending))
		if j.Activity != nil {
			entry := activity.Entry{
				Action:     activity.ActionUpdated,
				Kind:       activity.KindAudit,
				ObjectID:   a.ID,
				ObjectName: fmt.Sprintf("audit #%d", a.ID),
				Detail:     fmt.Sprintf("open since %s with %d products uncounted", a.CreatedAt.Format(time.RFC3339), a.Pending),
				OccurredAt: time.Now(),
			}
			if err := j.Activity.Record(ctx, entry); err != nil {
				j.logger().Warn("record stale audit activity", slog.Int64("audit_id", a.ID), slog.Any("error", err))
			}
		}
	}
	j.metrics().AddFlagged(TaskStaleAuditReminder, "stale", len(stale))

	j.logger().Info("completed stale audit reminder", slog.Int("flagged", len(stale)))
	return resultErr
}

func (j *StaleAuditReminderJob) fetchStale(ctx context.Context, cutoff time.Time) ([]staleAudit, error) {
	rows, err := j.Pool.Query(ctx,
		`SELECT a.id, a.created_at,
			(SELECT COUNT(*) FROM audit_details d WHERE d.audit_id = a.id AND NOT d.reviewed) AS pending
		 FROM audits a
		 WHERE a.status = $1 AND a.created_at < $2
		 ORDER BY a.created_at`,
		string(stockaudit.StatusInProgress), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []staleAudit
	for rows.Next() {
		var a staleAudit
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Pending); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (j *StaleAuditReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StaleAuditReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
