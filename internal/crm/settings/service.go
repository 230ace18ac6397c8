// Package settings serves the company settings row with a short-lived cache.
// A missing row yields the built-in defaults.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL = 30 * time.Second
	loadKey         = "company_settings"
)

// UpdateParams is a partial settings change; nil fields are kept.
type UpdateParams struct {
	RotationStrategy         *domain.RotationStrategy
	DefaultFollowUpIntervals map[domain.LeadStatus]int
	AutoFollowUpEnabled      *bool
	PreferDefaultNumber      *bool
	NumberRotationEnabled    *bool
	LeadRotationEnabled      *bool
	ReminderLeadMinutes      *int
}

type Service struct {
	store repository.SettingsStore
	log   *logger.Logger
	ttl   time.Duration
	now   func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	cached  *domain.Settings
	expires time.Time
}

func New(store repository.SettingsStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log, ttl: defaultCacheTTL, now: time.Now}
}

// Get returns the current settings. Store failures degrade to the last known
// value, or to the defaults when nothing was loaded yet.
func (s *Service) Get(ctx context.Context) domain.Settings {
	s.mu.RLock()
	if s.cached != nil && s.now().Before(s.expires) {
		current := *s.cached
		s.mu.RUnlock()
		return current
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(loadKey, func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("settings unavailable, using fallback", "error", err)
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.cached != nil {
			return *s.cached
		}
		return domain.DefaultSettings()
	}
	return v.(domain.Settings)
}

func (s *Service) load(ctx context.Context) (domain.Settings, error) {
	loaded, err := s.store.GetSettings(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		loaded = domain.DefaultSettings()
	case err != nil:
		return domain.Settings{}, err
	}

	s.remember(loaded)
	return loaded, nil
}

func (s *Service) remember(value domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = &value
	s.expires = s.now().Add(s.ttl)
}

// IntervalDays returns the follow-up interval for a lead status. A status
// missing from the table is a Configuration error; callers pick a fallback.
func (s *Service) IntervalDays(ctx context.Context, status domain.LeadStatus) (int, error) {
	days, err := s.Get(ctx).IntervalDays(status)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindConfiguration, err.Error(), err).WithOp("settings.IntervalDays")
	}
	return days, nil
}

// Update merges params into the stored settings.
func (s *Service) Update(ctx context.Context, params UpdateParams) (domain.Settings, error) {
	const op = "settings.Update"

	// Merge onto the stored row, never onto the degraded fallback Get serves.
	current, err := s.store.GetSettings(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		current = domain.DefaultSettings()
	case err != nil:
		return domain.Settings{}, apperr.Storage(err).WithOp(op)
	}

	if params.RotationStrategy != nil {
		current.RotationStrategy = domain.ParseRotationStrategy(string(*params.RotationStrategy))
	}
	if params.DefaultFollowUpIntervals != nil {
		for status, days := range params.DefaultFollowUpIntervals {
			if days < 1 {
				return domain.Settings{}, apperr.Validation("follow-up intervals must be at least one day").WithOp(op)
			}
			if _, ok := domain.ParseLeadStatus(string(status)); !ok {
				return domain.Settings{}, apperr.Validation("unknown lead status " + string(status)).WithOp(op)
			}
		}
		raw := make(map[string]int, len(params.DefaultFollowUpIntervals))
		for status, days := range params.DefaultFollowUpIntervals {
			raw[string(status)] = days
		}
		current.DefaultFollowUpIntervals = domain.NormalizeIntervals(raw)
	}
	if params.AutoFollowUpEnabled != nil {
		current.AutoFollowUpEnabled = *params.AutoFollowUpEnabled
	}
	if params.PreferDefaultNumber != nil {
		current.PreferDefaultNumber = *params.PreferDefaultNumber
	}
	if params.NumberRotationEnabled != nil {
		current.NumberRotationEnabled = *params.NumberRotationEnabled
	}
	if params.LeadRotationEnabled != nil {
		current.LeadRotationEnabled = *params.LeadRotationEnabled
	}
	if params.ReminderLeadMinutes != nil {
		if *params.ReminderLeadMinutes < 0 {
			return domain.Settings{}, apperr.Validation("reminderLeadMinutes must not be negative").WithOp(op)
		}
		current.ReminderLeadMinutes = *params.ReminderLeadMinutes
	}

	saved, err := s.store.SaveSettings(ctx, current)
	if err != nil {
		return domain.Settings{}, repository.Translate(op, "settings", err)
	}
	s.remember(saved)
	return saved, nil
}
