package insights

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository aggregates the dashboard counters straight from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) BuildSummary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM products WHERE active),
			(SELECT COUNT(*) FROM products WHERE active AND quantity < reorder_threshold),
			(SELECT COUNT(*) FROM audits WHERE status = 'IN_PROGRESS'),
			(SELECT COUNT(*) FROM purchase_requests WHERE status NOT IN ('COMPLETED', 'CANCELLED'))`).
		Scan(&s.ActiveProducts, &s.LowStockProducts, &s.OpenAudits, &s.PendingPurchases)
	if err != nil {
		return Summary{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, quantity, reorder_threshold
		 FROM products
		 WHERE active AND quantity < reorder_threshold
		 ORDER BY quantity - reorder_threshold
		 LIMIT 5`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.ReorderThreshold); err != nil {
			return Summary{}, err
		}
		s.WorstOffenders = append(s.WorstOffenders, item)
	}
	return s, rows.Err()
}
