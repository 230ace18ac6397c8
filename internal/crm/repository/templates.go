package repository

import (
	"context"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, name, description, content, category, tags, is_active, created_by, usage_count, created_at, updated_at`

func scanTemplate(row pgx.Row) (domain.WhatsAppTemplate, error) {
	var t domain.WhatsAppTemplate
	var category string
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Content, &category, &t.Tags,
		&t.IsActive, &t.CreatedBy, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.WhatsAppTemplate{}, notFound(err)
	}
	t.Category = domain.TemplateCategory(category)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func (r *Repository) GetTemplate(ctx context.Context, id uuid.UUID) (domain.WhatsAppTemplate, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM whatsapp_templates WHERE id = $1`, id))
}

// ListTemplates returns templates by name, optionally only the active ones.
func (r *Repository) ListTemplates(ctx context.Context, activeOnly bool) ([]domain.WhatsAppTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM whatsapp_templates
		WHERE ($1::boolean = false OR is_active)
		ORDER BY lower(name), id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.WhatsAppTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// CreateTemplate inserts a template. Names are unique ignoring case.
func (r *Repository) CreateTemplate(ctx context.Context, params CreateTemplateParams) (domain.WhatsAppTemplate, error) {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	t, err := scanTemplate(r.pool.QueryRow(ctx, `
		INSERT INTO whatsapp_templates (name, description, content, category, tags, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+templateColumns,
		params.Name, params.Description, params.Content, string(params.Category), tags, params.IsActive, params.CreatedBy,
	))
	if isUniqueViolation(err) {
		return domain.WhatsAppTemplate{}, ErrDuplicate
	}
	return t, err
}

func (r *Repository) UpdateTemplate(ctx context.Context, id uuid.UUID, params UpdateTemplateParams) (domain.WhatsAppTemplate, error) {
	var category *string
	if params.Category != nil {
		c := string(*params.Category)
		category = &c
	}
	t, err := scanTemplate(r.pool.QueryRow(ctx, `
		UPDATE whatsapp_templates
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			content = COALESCE($4, content),
			category = COALESCE($5, category),
			tags = COALESCE($6, tags),
			is_active = COALESCE($7, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+templateColumns,
		id, params.Name, params.Description, params.Content, category, params.Tags, params.IsActive,
	))
	if isUniqueViolation(err) {
		return domain.WhatsAppTemplate{}, ErrDuplicate
	}
	return t, err
}

func (r *Repository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM whatsapp_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) IncrementTemplateUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE whatsapp_templates SET usage_count = usage_count + 1 WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
