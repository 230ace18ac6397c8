package repository

import (
	"context"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, phone, role, is_active, last_lead_assigned, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.IsActive, &u.LastLeadAssigned, &u.CreatedAt)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) NextAssigneeCandidate(ctx context.Context) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'employee' AND is_active
		ORDER BY last_lead_assigned ASC NULLS FIRST, id ASC
		LIMIT 1
	`))
}

func (r *Repository) ClaimAssignee(ctx context.Context, id uuid.UUID, previous *time.Time, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET last_lead_assigned = $3, updated_at = now()
		WHERE id = $1
			AND role = 'employee' AND is_active
			AND last_lead_assigned IS NOT DISTINCT FROM $2
	`, id, previous, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ListActiveEmployees(ctx context.Context) ([]domain.User, error) {
	return r.listActiveByRole(ctx, domain.RoleEmployee)
}

func (r *Repository) ListActiveAdmins(ctx context.Context) ([]domain.User, error) {
	return r.listActiveByRole(ctx, domain.RoleAdmin)
}

func (r *Repository) listActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = $1 AND is_active
		ORDER BY name ASC, id ASC
	`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
