package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder writes entries into activity_log.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a Recorder backed by the given pool.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry. Failures are the caller's to log; history is
// best-effort and never blocks the owning operation.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil {
		return errors.New("activity recorder not initialised")
	}
	if e.Action == "" || e.Kind == "" || e.ObjectName == "" {
		return errors.New("activity entry requires action/kind/object_name")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	occurredAt := e.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_log (id, action, kind, object_id, object_name, detail, actor_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.Kind, e.ObjectID, e.ObjectName, e.Detail, e.ActorID, occurredAt)
	return err
}
