// Package channels rotates outbound sender numbers under per-number daily caps.
//
// Selection never consumes quota. RecordUsage is the conditional increment
// that actually reserves a send; losing that race sends the caller back to
// SelectChannel, which Reserve does automatically.
package channels

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"
	"salescrm_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	maxReserveAttempts = 3
	defaultDailyLimit  = 1000
)

// SettingsReader exposes the rotation settings.
type SettingsReader interface {
	Get(ctx context.Context) domain.Settings
}

type CreateParams struct {
	Identifier string
	Label      string
	DailyLimit int
	IsActive   *bool
}

type UpdateParams struct {
	Label      *string
	IsActive   *bool
	DailyLimit *int
}

type Service struct {
	store    repository.ChannelStore
	settings SettingsReader
	calendar domain.Calendar
	log      *logger.Logger
	intn     func(n int) int
}

func New(store repository.ChannelStore, settings SettingsReader, calendar domain.Calendar, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		settings: settings,
		calendar: calendar,
		log:      log,
		intn:     rand.IntN,
	}
}

// SelectChannel picks the channel for the next send without consuming quota.
func (s *Service) SelectChannel(ctx context.Context) (domain.Channel, error) {
	const op = "channels.SelectChannel"

	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}

	settings := s.settings.Get(ctx)
	today := s.calendar.Today()

	if _, err := s.store.ResetStaleDailyCounts(ctx, today); err != nil {
		return domain.Channel{}, apperr.Storage(err).WithOp(op)
	}
	active, err := s.store.ListActiveChannels(ctx)
	if err != nil {
		return domain.Channel{}, apperr.Storage(err).WithOp(op)
	}

	eligible := make([]domain.Channel, 0, len(active))
	for _, c := range active {
		if !c.IsActive || !c.HasCapacity(today) {
			continue
		}
		if !settings.NumberRotationEnabled && !c.IsDefault {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		if !settings.NumberRotationEnabled {
			return domain.Channel{}, apperr.NoChannelAvailable("default channel is inactive or at its daily limit").WithOp(op)
		}
		return domain.Channel{}, apperr.NoChannelAvailable("all channels are inactive or at their daily limit").WithOp(op)
	}

	if settings.PreferDefaultNumber {
		for _, c := range eligible {
			if c.IsDefault {
				return c, nil
			}
		}
	}

	return s.pick(settings.RotationStrategy, eligible, today), nil
}

func (s *Service) pick(strategy domain.RotationStrategy, eligible []domain.Channel, today time.Time) domain.Channel {
	if strategy == domain.StrategyRandom {
		return eligible[s.intn(len(eligible))]
	}

	ordered := append([]domain.Channel(nil), eligible...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch strategy {
		case domain.StrategyLeastUsedToday:
			if ca, cb := a.EffectiveDailyCount(today), b.EffectiveDailyCount(today); ca != cb {
				return ca < cb
			}
		case domain.StrategyLeastUsedOverall:
			if a.MessageCount != b.MessageCount {
				return a.MessageCount < b.MessageCount
			}
		}
		return usedBefore(a, b)
	})
	return ordered[0]
}

// usedBefore orders by lastUsed ascending with never-used channels first.
func usedBefore(a, b domain.Channel) bool {
	switch {
	case a.LastUsed == nil && b.LastUsed == nil:
		return a.ID.String() < b.ID.String()
	case a.LastUsed == nil:
		return true
	case b.LastUsed == nil:
		return false
	case a.LastUsed.Equal(*b.LastUsed):
		return a.ID.String() < b.ID.String()
	}
	return a.LastUsed.Before(*b.LastUsed)
}

// RecordUsage consumes one unit of the channel's daily quota. It fails with
// NoChannelAvailable when the channel filled up since it was selected.
func (s *Service) RecordUsage(ctx context.Context, channelID uuid.UUID) (domain.Channel, error) {
	const op = "channels.RecordUsage"

	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}

	now := s.calendar.Now()
	updated, err := s.store.IncrementChannelUsage(ctx, channelID, s.calendar.StartOfDay(now), now.UTC())
	if err != nil {
		return domain.Channel{}, repository.Translate(op, "channel", err)
	}
	return updated, nil
}

// Reserve selects a channel and records its usage, re-selecting when a
// concurrent sender took the last unit first.
func (s *Service) Reserve(ctx context.Context) (domain.Channel, error) {
	const op = "channels.Reserve"

	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		selected, err := s.SelectChannel(ctx)
		if err != nil {
			return domain.Channel{}, err
		}

		reserved, err := s.RecordUsage(ctx, selected.ID)
		if err == nil {
			return reserved, nil
		}
		if !apperr.Is(err, apperr.KindNoChannelAvailable) {
			return domain.Channel{}, err
		}
		s.log.WithContext(ctx).Debug("channel filled up concurrently, reselecting",
			"channelId", selected.ID, "attempt", attempt)
	}
	return domain.Channel{}, apperr.NoChannelAvailable("channels exhausted by concurrent senders").WithOp(op)
}

// Release gives back a unit reserved today after the send failed.
func (s *Service) Release(ctx context.Context, channelID uuid.UUID) error {
	const op = "channels.Release"

	ctx = context.WithoutCancel(ctx)
	released, err := s.store.ReleaseChannelUsage(ctx, channelID, s.calendar.Today())
	if err != nil {
		return apperr.Storage(err).WithOp(op)
	}
	if !released {
		s.log.WithContext(ctx).Info("channel usage not released, counter already rolled over", "channelId", channelID)
	}
	return nil
}

func (s *Service) ResetAllDailyCounts(ctx context.Context) (int64, error) {
	n, err := s.store.ResetAllDailyCounts(ctx, s.calendar.Today())
	if err != nil {
		return 0, apperr.Storage(err).WithOp("channels.ResetAllDailyCounts")
	}
	s.log.WithContext(ctx).Info("daily channel counters reset", "channels", n)
	return n, nil
}

func (s *Service) SetDefault(ctx context.Context, id uuid.UUID) (domain.Channel, error) {
	c, err := s.store.SetDefaultChannel(ctx, id)
	if err != nil {
		return domain.Channel{}, repository.Translate("channels.SetDefault", "channel", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Channel, error) {
	items, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, repository.Translate("channels.List", "channel", err)
	}
	return items, nil
}

// UsageStatistics summarizes lifetime and today's usage across channels.
func (s *Service) UsageStatistics(ctx context.Context) (domain.ChannelUsage, error) {
	items, err := s.List(ctx)
	if err != nil {
		return domain.ChannelUsage{}, err
	}

	today := s.calendar.Today()
	stats := domain.ChannelUsage{TotalChannels: len(items), Channels: items}
	for _, c := range items {
		stats.TotalMessages += c.MessageCount
		stats.SentToday += c.EffectiveDailyCount(today)
		if c.IsActive {
			stats.ActiveChannels++
			stats.CapacityToday += c.DailyLimit - c.EffectiveDailyCount(today)
		}
	}
	return stats, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (domain.Channel, error) {
	const op = "channels.Create"

	if !phone.IsValid(params.Identifier) {
		return domain.Channel{}, apperr.Validation("identifier must be a valid phone number").WithOp(op)
	}
	limit := params.DailyLimit
	if limit == 0 {
		limit = defaultDailyLimit
	}
	if limit < 0 {
		return domain.Channel{}, apperr.Validation("dailyLimit must be positive").WithOp(op)
	}
	active := true
	if params.IsActive != nil {
		active = *params.IsActive
	}

	c, err := s.store.CreateChannel(ctx, repository.CreateChannelParams{
		Identifier: phone.NormalizeE164(params.Identifier),
		Label:      strings.TrimSpace(params.Label),
		DailyLimit: limit,
		IsActive:   active,
	})
	if err != nil {
		return domain.Channel{}, repository.Translate(op, "channel", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (domain.Channel, error) {
	const op = "channels.Update"

	if params.DailyLimit != nil && *params.DailyLimit < 1 {
		return domain.Channel{}, apperr.Validation("dailyLimit must be positive").WithOp(op)
	}
	c, err := s.store.UpdateChannel(ctx, id, repository.UpdateChannelParams{
		Label:      params.Label,
		IsActive:   params.IsActive,
		DailyLimit: params.DailyLimit,
	})
	if err != nil {
		return domain.Channel{}, repository.Translate(op, "channel", err)
	}
	return c, nil
}
