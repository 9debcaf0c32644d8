package procurement

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Repository persists purchase requests in PostgreSQL.
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

const prColumns = `id, product_id, supplier_id, quantity, unit_price, total_cost, status, observations,
	invoice_number, requested_by, requested_at, accepted_at, completed_at, received_qty, final_price,
	received_at, received_by`

func scanPR(row pgx.Row) (PurchaseRequest, error) {
	var pr PurchaseRequest
	var receivedBy *int64
	err := row.Scan(&pr.ID, &pr.ProductID, &pr.SupplierID, &pr.Quantity, &pr.UnitPrice, &pr.TotalCost,
		&pr.Status, &pr.Observations, &pr.InvoiceNumber, &pr.RequestedBy, &pr.RequestedAt,
		&pr.AcceptedAt, &pr.CompletedAt, &pr.ReceivedQty, &pr.FinalPrice, &pr.ReceivedAt, &receivedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequest{}, shared.ErrNotFound
		}
		return PurchaseRequest{}, err
	}
	if receivedBy != nil {
		pr.ReceivedBy = *receivedBy
	}
	return pr, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (PurchaseRequest, error) {
	return scanPR(r.pool.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requests WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]PurchaseRequest, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.SupplierID != 0 {
		argCount++
		where += ` AND supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.SupplierID)
	}
	if filter.ProductID != 0 {
		argCount++
		where += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + prColumns + ` FROM purchase_requests` + where + ` ORDER BY requested_at DESC, id DESC`
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

	var requests []PurchaseRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, pr)
	}
	return requests, total, rows.Err()
}

func (r *Repository) Create(ctx context.Context, pr PurchaseRequest) (PurchaseRequest, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO purchase_requests (product_id, supplier_id, quantity, unit_price, total_cost, status,
			observations, requested_by, requested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		pr.ProductID, pr.SupplierID, pr.Quantity, pr.UnitPrice, pr.TotalCost, pr.Status,
		pr.Observations, pr.RequestedBy, pr.RequestedAt).Scan(&pr.ID)
	if err != nil {
		return PurchaseRequest{}, err
	}
	return pr, nil
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error) {
	return scanPR(t.tx.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requests WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) Update(ctx context.Context, pr PurchaseRequest) error {
	var receivedBy *int64
	if pr.ReceivedBy != 0 {
		receivedBy = &pr.ReceivedBy
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE purchase_requests SET status = $1, observations = $2, invoice_number = $3, accepted_at = $4,
			completed_at = $5, received_qty = $6, final_price = $7, received_at = $8, received_by = $9
		 WHERE id = $10`,
		pr.Status, pr.Observations, pr.InvoiceNumber, pr.AcceptedAt,
		pr.CompletedAt, pr.ReceivedQty, pr.FinalPrice, pr.ReceivedAt, receivedBy, pr.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
