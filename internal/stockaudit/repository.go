package stockaudit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Repository persists audits in PostgreSQL.
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

const auditColumns = `id, status, audit_date, notes, created_by, created_at, completed_at`

func scanAudit(row pgx.Row) (Audit, error) {
	var a Audit
	err := row.Scan(&a.ID, &a.Status, &a.AuditDate, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Audit{}, shared.ErrNotFound
		}
		return Audit{}, err
	}
	return a, nil
}

func (r *Repository) GetAudit(ctx context.Context, id int64) (Audit, error) {
	return scanAudit(r.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = $1`, id))
}

func (r *Repository) ListAudits(ctx context.Context, filter Filter) ([]Audit, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND audit_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND audit_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audits`+where, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + auditColumns + ` FROM audits` + where + ` ORDER BY audit_date DESC, id DESC`
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

	var audits []Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		audits = append(audits, a)
	}
	return audits, total, rows.Err()
}

const detailColumns = `id, audit_id, product_id, product_name, system_quantity, physical_count,
	discrepancy, discrepancy_type, observations, reviewed, reviewed_at`

func scanDetail(row pgx.Row) (AuditDetail, error) {
	var d AuditDetail
	var discType *string
	err := row.Scan(&d.ID, &d.AuditID, &d.ProductID, &d.ProductName, &d.SystemQuantity,
		&d.PhysicalCount, &d.Discrepancy, &discType, &d.Observations, &d.Reviewed, &d.ReviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuditDetail{}, shared.ErrNotFound
		}
		return AuditDetail{}, err
	}
	if discType != nil {
		d.DiscrepancyType = DiscrepancyType(*discType)
	}
	return d, nil
}

func (r *Repository) ListDetails(ctx context.Context, auditID int64) ([]AuditDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+detailColumns+` FROM audit_details WHERE audit_id = $1 ORDER BY product_name`, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *Repository) GetDetail(ctx context.Context, id int64) (AuditDetail, error) {
	return scanDetail(r.pool.QueryRow(ctx, `SELECT `+detailColumns+` FROM audit_details WHERE id = $1`, id))
}

func (r *Repository) Progress(ctx context.Context, auditID int64) (Progress, error) {
	var p Progress
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE reviewed),
			COUNT(*) FILTER (WHERE NOT reviewed),
			COUNT(*) FILTER (WHERE reviewed AND discrepancy <> 0)
		 FROM audit_details WHERE audit_id = $1`, auditID).
		Scan(&p.Total, &p.Reviewed, &p.Pending, &p.WithDiscrepancy)
	return p, err
}

func (t *txRepository) InsertAudit(ctx context.Context, a Audit) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO audits (status, audit_date, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Status, a.AuditDate, a.Notes, a.CreatedBy, a.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepository) InsertDetails(ctx context.Context, details []AuditDetail) error {
	batch := &pgx.Batch{}
	const query = `
INSERT INTO audit_details (audit_id, product_id, product_name, system_quantity, physical_count, discrepancy, reviewed)
VALUES ($1, $2, $3, $4, $5, $6, FALSE)`
	for _, d := range details {
		batch.Queue(query, d.AuditID, d.ProductID, d.ProductName, d.SystemQuantity, d.PhysicalCount, d.Discrepancy)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range details {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return mapDetailError(err)
		}
	}
	return results.Close()
}

func (t *txRepository) GetAuditForUpdate(ctx context.Context, id int64) (Audit, error) {
	return scanAudit(t.tx.QueryRow(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) GetDetailForUpdate(ctx context.Context, id int64) (AuditDetail, error) {
	return scanDetail(t.tx.QueryRow(ctx, `SELECT `+detailColumns+` FROM audit_details WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) UpdateDetail(ctx context.Context, d AuditDetail) error {
	var discType *string
	if d.DiscrepancyType != "" {
		v := string(d.DiscrepancyType)
		discType = &v
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE audit_details SET physical_count = $1, discrepancy = $2, discrepancy_type = $3,
			observations = $4, reviewed = $5, reviewed_at = $6
		 WHERE id = $7`,
		d.PhysicalCount, d.Discrepancy, discType, d.Observations, d.Reviewed, d.ReviewedAt, d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) ListDetailsForUpdate(ctx context.Context, auditID int64) ([]AuditDetail, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+detailColumns+` FROM audit_details WHERE audit_id = $1 ORDER BY id FOR UPDATE`, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (t *txRepository) UpdateAuditStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE audits SET status = $1, completed_at = $2 WHERE id = $3`,
		status, completedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteAudit(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM audit_details WHERE audit_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM audits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) ListActiveProducts(ctx context.Context) ([]ProductSnapshot, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, quantity FROM products WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ProductSnapshot
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (t *txRepository) SetProductQuantity(ctx context.Context, productID, quantity int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, time.Now(), productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectDetails(rows pgx.Rows) ([]AuditDetail, error) {
	var details []AuditDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func mapDetailError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateDetail
	}
	return err
}
