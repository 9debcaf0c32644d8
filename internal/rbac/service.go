package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Service resolves effective permissions and manages roles.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// EffectivePermissions returns the permissions of the employee's role. An
// employee without a role, or with an inactive role, has none.
func (s *Service) EffectivePermissions(ctx context.Context, employeeID int64) ([]string, error) {
	const query = `SELECT r.id, r.name, r.description, r.can_schedule, r.can_manage_inventory,
		r.can_view_purchases, r.can_manage_masterdata, r.active, r.created_at
		FROM roles r JOIN employees e ON e.role_id = r.id
		WHERE e.id = $1 AND e.active AND r.active`
	var role Role
	err := s.pool.QueryRow(ctx, query, employeeID).Scan(
		&role.ID, &role.Name, &role.Description, &role.CanSchedule, &role.CanManageInventory,
		&role.CanViewPurchases, &role.CanManageMasterdata, &role.Active, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role.Permissions(), nil
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, can_schedule, can_manage_inventory,
		can_view_purchases, can_manage_masterdata, active, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CanSchedule, &r.CanManageInventory,
			&r.CanViewPurchases, &r.CanManageMasterdata, &r.Active, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, can_schedule, can_manage_inventory,
		can_view_purchases, can_manage_masterdata, active, created_at FROM roles WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Description, &r.CanSchedule, &r.CanManageInventory,
			&r.CanViewPurchases, &r.CanManageMasterdata, &r.Active, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return r, nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, role Role) (Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role.Active = true
	role.CreatedAt = time.Now()
	err := s.pool.QueryRow(ctx, `INSERT INTO roles (name, description, can_schedule, can_manage_inventory,
		can_view_purchases, can_manage_masterdata, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		role.Name, role.Description, role.CanSchedule, role.CanManageInventory,
		role.CanViewPurchases, role.CanManageMasterdata, role.Active, role.CreatedAt).Scan(&role.ID)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// UpdateRole replaces the mutable role fields.
func (s *Service) UpdateRole(ctx context.Context, id int64, role Role) error {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE roles SET name = $1, description = $2, can_schedule = $3,
		can_manage_inventory = $4, can_view_purchases = $5, can_manage_masterdata = $6, active = $7
		WHERE id = $8`,
		role.Name, role.Description, role.CanSchedule, role.CanManageInventory,
		role.CanViewPurchases, role.CanManageMasterdata, role.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
