package zones

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/masterdata/shared"
	"github.com/greenstock-ops/greenstock/internal/platform/httpx"
	internalShared "github.com/greenstock-ops/greenstock/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Zone, int, error)
	Get(ctx context.Context, id int64) (Zone, error)
	Create(ctx context.Context, zone Zone) (Zone, error)
	Update(ctx context.Context, id int64, zone Zone) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, name, description, active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Zone, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM zones`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM zones` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Description, &z.Active, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, 0, err
		}
		zones = append(zones, z)
	}
	return zones, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Zone, error) {
	var z Zone
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM zones WHERE id = $1`, id).
		Scan(&z.ID, &z.Name, &z.Description, &z.Active, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Zone{}, internalShared.ErrNotFound
	}
	return z, err
}

func (r *repository) Create(ctx context.Context, zone Zone) (Zone, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO zones (name, description, active, created_at, updated_at)
		 VALUES ($1, $2, TRUE, $3, $3) RETURNING id`,
		zone.Name, zone.Description, now).Scan(&zone.ID)
	if err != nil {
		return Zone{}, mapUniqueError(err)
	}
	zone.Active = true
	zone.CreatedAt = now
	zone.UpdatedAt = now
	return zone, nil
}

func (r *repository) Update(ctx context.Context, id int64, zone Zone) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE zones SET name = $1, description = $2, active = $3, updated_at = $4 WHERE id = $5`,
		zone.Name, zone.Description, zone.Active, time.Now(), id)
	if err != nil {
		return mapUniqueError(err)
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func mapUniqueError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}
