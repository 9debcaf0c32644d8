package catalog

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
	List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, supplier_id, product_id, name, product_code, unit, list_price, purchase_price, active, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var productID *int64
	err := row.Scan(&it.ID, &it.SupplierID, &productID, &it.Name, &it.ProductCode, &it.Unit,
		&it.ListPrice, &it.PurchasePrice, &it.Active, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, internalShared.ErrNotFound
		}
		return Item{}, err
	}
	if productID != nil {
		it.ProductID = *productID
	}
	return it, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR product_code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.SupplierID != nil {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.SupplierID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_catalog`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM supplier_catalog` + where + ` ORDER BY name`
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

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.db.QueryRow(ctx, `SELECT `+columns+` FROM supplier_catalog WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	now := time.Now()
	var productID *int64
	if item.ProductID != 0 {
		productID = &item.ProductID
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO supplier_catalog (supplier_id, product_id, name, product_code, unit, list_price, purchase_price, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8) RETURNING id`,
		item.SupplierID, productID, item.Name, item.ProductCode, item.Unit,
		item.ListPrice, item.PurchasePrice, now).Scan(&item.ID)
	if err != nil {
		return Item{}, mapUniqueError(err)
	}
	item.Active = true
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repository) Update(ctx context.Context, id int64, item Item) error {
	var productID *int64
	if item.ProductID != 0 {
		productID = &item.ProductID
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE supplier_catalog SET supplier_id = $1, product_id = $2, name = $3, product_code = $4,
			unit = $5, list_price = $6, purchase_price = $7, active = $8, updated_at = $9
		 WHERE id = $10`,
		item.SupplierID, productID, item.Name, item.ProductCode, item.Unit,
		item.ListPrice, item.PurchasePrice, item.Active, time.Now(), id)
	if err != nil {
		return mapUniqueError(err)
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM supplier_catalog WHERE id = $1`, id)
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
