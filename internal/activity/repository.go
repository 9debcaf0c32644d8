package activity

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the activity_log table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	query := `SELECT id, action, kind, object_id, object_name, detail, actor_id, occurred_at FROM activity_log WHERE 1=1`
	args := []any{}
	argCount := 0

	if !filters.From.IsZero() {
		argCount++
		query += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		query += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}
	if filters.ActorID != 0 {
		argCount++
		query += ` AND actor_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.ActorID)
	}
	if filters.Kind != "" {
		argCount++
		query += ` AND kind = $` + strconv.Itoa(argCount)
		args = append(args, string(filters.Kind))
	}
	if filters.Action != "" {
		argCount++
		query += ` AND action = $` + strconv.Itoa(argCount)
		args = append(args, string(filters.Action))
	}

	argCount++
	query += ` ORDER BY occurred_at DESC OFFSET $` + strconv.Itoa(argCount)
	args = append(args, offset)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Kind, &e.ObjectID, &e.ObjectName, &e.Detail, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
