package repository

import (
	"context"
	"errors"
	"time"

	"salescrm_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const channelColumns = `id, identifier, label, is_active, is_default, message_count, daily_count, daily_limit,
	daily_count_reset_date, last_used, created_at, updated_at`

func scanChannel(row pgx.Row) (domain.Channel, error) {
	var c domain.Channel
	err := row.Scan(
		&c.ID, &c.Identifier, &c.Label, &c.IsActive, &c.IsDefault, &c.MessageCount, &c.DailyCount, &c.DailyLimit,
		&c.DailyCountResetDate, &c.LastUsed, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Channel{}, notFound(err)
	}
	return c, nil
}

func (r *Repository) listChannels(ctx context.Context, where string) ([]domain.Channel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+channelColumns+` FROM outbound_channels `+where+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Channel, 0)
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *Repository) GetChannel(ctx context.Context, id uuid.UUID) (domain.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM outbound_channels WHERE id = $1`, id))
}

func (r *Repository) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return r.listChannels(ctx, "")
}

func (r *Repository) ListActiveChannels(ctx context.Context) ([]domain.Channel, error) {
	return r.listChannels(ctx, "WHERE is_active")
}

func (r *Repository) CreateChannel(ctx context.Context, params CreateChannelParams) (domain.Channel, error) {
	c, err := scanChannel(r.pool.QueryRow(ctx, `
		INSERT INTO outbound_channels (identifier, label, daily_limit, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+channelColumns,
		params.Identifier, params.Label, params.DailyLimit, params.IsActive,
	))
	if isUniqueViolation(err) {
		return domain.Channel{}, ErrDuplicate
	}
	return c, err
}

// UpdateChannel changes the given fields. Lowering the limit clamps today's count.
func (r *Repository) UpdateChannel(ctx context.Context, id uuid.UUID, params UpdateChannelParams) (domain.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx, `
		UPDATE outbound_channels
		SET label = COALESCE($2, label),
			is_active = COALESCE($3, is_active),
			daily_limit = COALESCE($4, daily_limit),
			daily_count = LEAST(daily_count, COALESCE($4, daily_limit)),
			updated_at = now()
		WHERE id = $1
		RETURNING `+channelColumns,
		id, params.Label, params.IsActive, params.DailyLimit,
	))
}

// SetDefaultChannel makes id the only default channel.
func (r *Repository) SetDefaultChannel(ctx context.Context, id uuid.UUID) (domain.Channel, error) {
	var c domain.Channel
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE outbound_channels SET is_default = false, updated_at = now() WHERE is_default AND id <> $1`, id); err != nil {
			return err
		}
		var err error
		c, err = scanChannel(tx.QueryRow(ctx, `
			UPDATE outbound_channels
			SET is_default = true, updated_at = now()
			WHERE id = $1
			RETURNING `+channelColumns,
			id,
		))
		return err
	})
	return c, err
}

func (r *Repository) ResetStaleDailyCounts(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbound_channels
		SET daily_count = 0, daily_count_reset_date = $1::date, updated_at = now()
		WHERE is_active
			AND (daily_count_reset_date IS NULL OR daily_count_reset_date < $1::date)
	`, domain.DateKey(today))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) ResetAllDailyCounts(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbound_channels
		SET daily_count = 0, daily_count_reset_date = $1::date, updated_at = now()
	`, domain.DateKey(today))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementChannelUsage is the quota reservation. A counter still dated before
// today is reset in the same statement, so crossing midnight resets it once.
func (r *Repository) IncrementChannelUsage(ctx context.Context, id uuid.UUID, today, at time.Time) (domain.Channel, error) {
	c, err := scanChannel(r.pool.QueryRow(ctx, `
		UPDATE outbound_channels
		SET daily_count = CASE
				WHEN daily_count_reset_date IS NULL OR daily_count_reset_date < $2::date THEN 1
				ELSE daily_count + 1
			END,
			daily_count_reset_date = $2::date,
			message_count = message_count + 1,
			last_used = $3,
			updated_at = now()
		WHERE id = $1
			AND is_active
			AND (daily_count_reset_date IS NULL OR daily_count_reset_date < $2::date OR daily_count < daily_limit)
		RETURNING `+channelColumns,
		id, domain.DateKey(today), at,
	))
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM outbound_channels WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Channel{}, err
	}
	if !exists {
		return domain.Channel{}, ErrNotFound
	}
	return domain.Channel{}, ErrQuotaExhausted
}

// ReleaseChannelUsage returns one unit reserved today. It never goes below zero
// and does nothing once the counter has rolled over to another day.
func (r *Repository) ReleaseChannelUsage(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outbound_channels
		SET daily_count = daily_count - 1,
			message_count = GREATEST(message_count - 1, 0),
			updated_at = now()
		WHERE id = $1 AND daily_count > 0 AND daily_count_reset_date = $2::date
	`, id, domain.DateKey(today))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
