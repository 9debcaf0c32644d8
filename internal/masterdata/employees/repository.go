package employees

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
	List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, employee Employee) (Employee, error)
	Update(ctx context.Context, id int64, employee Employee) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `e.id, e.first_name, e.last_name, e.email, e.phone, e.role_id, COALESCE(r.name, ''),
	e.hire_date, e.salary, e.active, e.created_at, e.updated_at`

const fromClause = ` FROM employees e LEFT JOIN roles r ON r.id = e.role_id`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.RoleID, &e.RoleName,
		&e.HireDate, &e.Salary, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, internalShared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (e.first_name ILIKE $` + strconv.Itoa(argCount) +
			` OR e.last_name ILIKE $` + strconv.Itoa(argCount) +
			` OR e.email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.RoleID != nil {
		argCount++
		where += ` AND e.role_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.RoleID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND e.active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+fromClause+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + fromClause + where + ` ORDER BY e.last_name, e.first_name`
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

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	return scanEmployee(r.db.QueryRow(ctx, `SELECT `+columns+fromClause+` WHERE e.id = $1`, id))
}

func (r *repository) Create(ctx context.Context, employee Employee) (Employee, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO employees (first_name, last_name, email, phone, role_id, hire_date, salary, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8) RETURNING id`,
		employee.FirstName, employee.LastName, employee.Email, employee.Phone, employee.RoleID,
		employee.HireDate, employee.Salary, now).Scan(&employee.ID)
	if err != nil {
		return Employee{}, mapUniqueError(err)
	}
	employee.Active = true
	employee.CreatedAt = now
	employee.UpdatedAt = now
	return employee, nil
}

func (r *repository) Update(ctx context.Context, id int64, employee Employee) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE employees SET first_name = $1, last_name = $2, email = $3, phone = $4, role_id = $5,
			hire_date = $6, salary = $7, active = $8, updated_at = $9
		 WHERE id = $10`,
		employee.FirstName, employee.LastName, employee.Email, employee.Phone, employee.RoleID,
		employee.HireDate, employee.Salary, employee.Active, time.Now(), id)
	if err != nil {
		return mapUniqueError(err)
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
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
