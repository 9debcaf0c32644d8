package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const productColumns = `id, name, source_mode, category, quantity, reorder_threshold, price, avg_cost,
	catalog_item_id, supplier_id, zone_id, unit, description, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SourceMode, &p.Category, &p.Quantity, &p.ReorderThreshold,
		&p.Price, &p.AvgCost, &p.CatalogItemID, &p.SupplierID, &p.ZoneID, &p.Unit, &p.Description,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Search != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.SourceMode != "" {
		argCount++
		where += ` AND source_mode = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.SourceMode))
	}
	if filter.ZoneID != 0 {
		argCount++
		where += ` AND zone_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ZoneID)
	}
	if filter.SupplierID != 0 {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.SupplierID)
	}
	if filter.Active != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Active)
	}
	if filter.LowStock {
		where += ` AND quantity < reorder_threshold`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name`
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, source_mode, category, quantity, reorder_threshold, price, avg_cost,
			catalog_item_id, supplier_id, zone_id, unit, description, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14) RETURNING id`,
		p.Name, p.SourceMode, p.Category, p.Quantity, p.ReorderThreshold, p.Price, p.AvgCost,
		nullableID(p.CatalogItemID), nullableID(p.SupplierID), nullableID(p.ZoneID),
		p.Unit, p.Description, p.Active, now).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $1, category = $2, quantity = $3, reorder_threshold = $4, price = $5,
			catalog_item_id = $6, supplier_id = $7, zone_id = $8, unit = $9, description = $10, updated_at = $11
		 WHERE id = $12`,
		p.Name, p.Category, p.Quantity, p.ReorderThreshold, p.Price,
		nullableID(p.CatalogItemID), nullableID(p.SupplierID), nullableID(p.ZoneID),
		p.Unit, p.Description, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) SetProductActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const entryColumns = `id, product_id, supplier_id, quantity, unit_cost, invoice_number, note, received_at, created_by`

func scanEntry(row pgx.Row) (StockEntry, error) {
	var e StockEntry
	err := row.Scan(&e.ID, &e.ProductID, &e.SupplierID, &e.Quantity, &e.UnitCost,
		&e.InvoiceNumber, &e.Note, &e.ReceivedAt, &e.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockEntry{}, shared.ErrNotFound
		}
		return StockEntry{}, err
	}
	return e, nil
}

func (r *Repository) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE id = $1`, id))
}

func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]StockEntry, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.ProductID != 0 {
		argCount++
		where += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if filter.SupplierID != 0 {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.SupplierID)
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND received_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND received_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + entryColumns + ` FROM stock_entries` + where + ` ORDER BY received_at DESC`
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []StockEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (t *txRepository) InsertEntry(ctx context.Context, e StockEntry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO stock_entries (product_id, supplier_id, quantity, unit_cost, invoice_number, note, received_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		e.ProductID, nullableID(e.SupplierID), e.Quantity, e.UnitCost, e.InvoiceNumber, e.Note, e.ReceivedAt, nullableID(e.CreatedBy)).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateEntry(ctx context.Context, e StockEntry) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stock_entries SET quantity = $1, unit_cost = $2, invoice_number = $3, note = $4 WHERE id = $5`,
		e.Quantity, e.UnitCost, e.InvoiceNumber, e.Note, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM stock_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (StockEntry, error) {
	return scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) SumEntryQuantities(ctx context.Context, productID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_entries WHERE product_id = $1`, productID).Scan(&sum)
	return sum, err
}

func (t *txRepository) LedgerCost(ctx context.Context, productID int64) (int64, float64, error) {
	var qty int64
	var cost float64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity * unit_cost), 0) FROM stock_entries WHERE product_id = $1`,
		productID).Scan(&qty, &cost)
	return qty, cost, err
}

func (t *txRepository) UpdateProductQuantity(ctx context.Context, id int64, quantity int64) error {
	// Touches only the quantity column to avoid clobbering concurrent edits
	// to other product fields.
	_, err := t.tx.Exec(ctx, `UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`, quantity, time.Now(), id)
	return err
}

func (t *txRepository) UpdateProductAvgCost(ctx context.Context, id int64, avgCost float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET avg_cost = $1, updated_at = $2 WHERE id = $3`, avgCost, time.Now(), id)
	return err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
