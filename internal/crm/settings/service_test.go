package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	settings *domain.Settings
	err      error
	reads    atomic.Int32
}

func (f *fakeStore) GetSettings(context.Context) (domain.Settings, error) {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Settings{}, f.err
	}
	if f.settings == nil {
		return domain.Settings{}, repository.ErrNotFound
	}
	return *f.settings, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, s domain.Settings) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = &s
	return s, nil
}

func TestGetFallsBackToDefaultsWhenRowMissing(t *testing.T) {
	svc := New(&fakeStore{}, logger.Discard())

	got := svc.Get(context.Background())

	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestGetDegradesOnStorageFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	svc := New(store, logger.Discard())

	got := svc.Get(context.Background())
	assert.True(t, got.AutoFollowUpEnabled)
	assert.Equal(t, domain.StrategyRoundRobin, got.RotationStrategy)
}

func TestGetCachesWithinTTL(t *testing.T) {
	stored := domain.DefaultSettings()
	stored.RotationStrategy = domain.StrategyRandom
	store := &fakeStore{settings: &stored}
	svc := New(store, logger.Discard())

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.Equal(t, domain.StrategyRandom, svc.Get(context.Background()).RotationStrategy)
	}
	assert.EqualValues(t, 1, store.reads.Load())

	now = now.Add(defaultCacheTTL + time.Second)
	svc.Get(context.Background())
	assert.EqualValues(t, 2, store.reads.Load())
}

func TestIntervalDaysMissingStatusIsConfigurationError(t *testing.T) {
	svc := New(&fakeStore{}, logger.Discard())

	days, err := svc.IntervalDays(context.Background(), domain.LeadStatusQualified)
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	_, err = svc.IntervalDays(context.Background(), domain.LeadStatusOnHold)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestUpdateMergesAndRefreshesCache(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, logger.Discard())

	disabled := false
	strategy := domain.StrategyLeastUsedToday
	saved, err := svc.Update(context.Background(), UpdateParams{
		AutoFollowUpEnabled:      &disabled,
		RotationStrategy:         &strategy,
		DefaultFollowUpIntervals: map[domain.LeadStatus]int{domain.LeadStatusNew: 4},
	})
	require.NoError(t, err)

	assert.False(t, saved.AutoFollowUpEnabled)
	assert.Equal(t, domain.StrategyLeastUsedToday, saved.RotationStrategy)
	assert.Equal(t, map[domain.LeadStatus]int{domain.LeadStatusNew: 4}, saved.DefaultFollowUpIntervals)
	assert.True(t, saved.LeadRotationEnabled, "untouched fields keep their value")
	assert.Equal(t, saved, svc.Get(context.Background()))
}

func TestUpdateRejectsInvalidIntervals(t *testing.T) {
	svc := New(&fakeStore{}, logger.Discard())

	_, err := svc.Update(context.Background(), UpdateParams{
		DefaultFollowUpIntervals: map[domain.LeadStatus]int{domain.LeadStatusNew: 0},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateFailsWhenStoredRowUnreadable(t *testing.T) {
	stored := domain.DefaultSettings()
	stored.RotationStrategy = domain.StrategyRandom
	stored.AutoFollowUpEnabled = false
	stored.LeadRotationEnabled = false
	store := &fakeStore{settings: &stored}
	svc := New(store, logger.Discard())

	store.mu.Lock()
	store.err = errors.New("connection refused")
	store.mu.Unlock()

	minutes := 30
	_, err := svc.Update(context.Background(), UpdateParams{ReminderLeadMinutes: &minutes})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, domain.StrategyRandom, store.settings.RotationStrategy)
	assert.False(t, store.settings.AutoFollowUpEnabled)
	assert.False(t, store.settings.LeadRotationEnabled)
	assert.NotEqual(t, 30, store.settings.ReminderLeadMinutes)
}

func TestUpdateMergesOntoStoredRowNotCache(t *testing.T) {
	stored := domain.DefaultSettings()
	store := &fakeStore{settings: &stored}
	svc := New(store, logger.Discard())
	svc.Get(context.Background())

	// Another instance changes the row while this one still holds a cached copy.
	changed := domain.DefaultSettings()
	changed.RotationStrategy = domain.StrategyRandom
	store.mu.Lock()
	store.settings = &changed
	store.mu.Unlock()

	minutes := 45
	saved, err := svc.Update(context.Background(), UpdateParams{ReminderLeadMinutes: &minutes})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyRandom, saved.RotationStrategy)
	assert.Equal(t, 45, saved.ReminderLeadMinutes)
}
