package repository

import (
	"context"
	"errors"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, name, phone, email, company, interested_in, message, message_sid, status,
	assigned_to, source, last_contacted, last_contact_method, created_by, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var status, source string
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Company, &l.InterestedIn, &l.Message, &l.MessageSID, &status,
		&l.AssignedTo, &source, &l.LastContacted, &l.LastContactMethod, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, notFound(err)
	}
	l.Status = domain.LeadStatus(status)
	l.Source = domain.LeadSource(source)
	return l, nil
}

func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	status := params.Status
	if status == "" {
		status = domain.LeadStatusNew
	}
	source := params.Source
	if source == "" {
		source = domain.SourceManual
	}

	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, phone, email, company, interested_in, message, message_sid, status, assigned_to, source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Company, params.InterestedIn, params.Message, params.MessageSID,
		string(status), params.AssignedTo, string(source), params.CreatedBy,
	))
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) GetLeadByPhone(ctx context.Context, phone string) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phone))
}

func (r *Repository) UpdateLeadStatus(ctx context.Context, id uuid.UUID, from, to domain.LeadStatus) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns,
		id, string(from), string(to),
	))
	if errors.Is(err, ErrNotFound) {
		return domain.Lead{}, ErrStale
	}
	return lead, err
}

func (r *Repository) AssignLead(ctx context.Context, id uuid.UUID, userID uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET assigned_to = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, userID,
	))
}

func (r *Repository) TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time, method string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET last_contacted = $2, last_contact_method = $3, updated_at = now()
		WHERE id = $1
	`, id, at, method)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendLeadMessage adds an inbound message to the lead's message history.
func (r *Repository) AppendLeadMessage(ctx context.Context, id uuid.UUID, text string) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET message = CASE
				WHEN message IS NULL OR message = '' THEN $2
				ELSE message || E'\n\n' || $2
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, text,
	))
}

func (r *Repository) ClaimInboundMessage(ctx context.Context, sid, fromPhone, body string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbound_messages (message_sid, from_phone, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_sid) DO NOTHING
	`, sid, fromPhone, body)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) LinkInboundMessage(ctx context.Context, sid string, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE inbound_messages SET lead_id = $2 WHERE message_sid = $1`, sid, leadID)
	return err
}
