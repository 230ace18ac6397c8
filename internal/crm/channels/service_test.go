package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mirrors the conditional updates of the SQL store under a mutex.
type fakeStore struct {
	mu       sync.Mutex
	channels map[uuid.UUID]domain.Channel
	resets   int
}

func newFakeStore(channels ...domain.Channel) *fakeStore {
	f := &fakeStore{channels: map[uuid.UUID]domain.Channel{}}
	for _, c := range channels {
		f.channels[c.ID] = c
	}
	return f
}

func (f *fakeStore) get(id uuid.UUID) domain.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[id]
}

func (f *fakeStore) GetChannel(_ context.Context, id uuid.UUID) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return domain.Channel{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListChannels(context.Context) ([]domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Channel, 0, len(f.channels))
	for _, c := range f.channels {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) ListActiveChannels(ctx context.Context) ([]domain.Channel, error) {
	all, _ := f.ListChannels(ctx)
	out := all[:0]
	for _, c := range all {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateChannel(_ context.Context, p repository.CreateChannelParams) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels {
		if c.Identifier == p.Identifier {
			return domain.Channel{}, repository.ErrDuplicate
		}
	}
	c := domain.Channel{ID: uuid.New(), Identifier: p.Identifier, Label: p.Label, DailyLimit: p.DailyLimit, IsActive: p.IsActive}
	f.channels[c.ID] = c
	return c, nil
}

func (f *fakeStore) UpdateChannel(_ context.Context, id uuid.UUID, p repository.UpdateChannelParams) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return domain.Channel{}, repository.ErrNotFound
	}
	if p.DailyLimit != nil {
		c.DailyLimit = *p.DailyLimit
		c.DailyCount = min(c.DailyCount, c.DailyLimit)
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	f.channels[id] = c
	return c, nil
}

func (f *fakeStore) SetDefaultChannel(_ context.Context, id uuid.UUID) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[id]; !ok {
		return domain.Channel{}, repository.ErrNotFound
	}
	for cid, c := range f.channels {
		c.IsDefault = cid == id
		f.channels[cid] = c
	}
	return f.channels[id], nil
}

func stale(c domain.Channel, today time.Time) bool {
	return c.DailyCountResetDate == nil || domain.DateKey(*c.DailyCountResetDate) < domain.DateKey(today)
}

func (f *fakeStore) ResetStaleDailyCounts(_ context.Context, today time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.channels {
		if c.IsActive && stale(c, today) {
			d := today
			c.DailyCount = 0
			c.DailyCountResetDate = &d
			f.channels[id] = c
			n++
		}
	}
	f.resets += int(n)
	return n, nil
}

func (f *fakeStore) ResetAllDailyCounts(_ context.Context, today time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.channels {
		d := today
		c.DailyCount = 0
		c.DailyCountResetDate = &d
		f.channels[id] = c
	}
	return int64(len(f.channels)), nil
}

func (f *fakeStore) IncrementChannelUsage(_ context.Context, id uuid.UUID, today, at time.Time) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return domain.Channel{}, repository.ErrNotFound
	}
	if !c.IsActive || (!stale(c, today) && c.DailyCount >= c.DailyLimit) {
		return domain.Channel{}, repository.ErrQuotaExhausted
	}
	if stale(c, today) {
		c.DailyCount = 0
	}
	d := today
	c.DailyCount++
	c.DailyCountResetDate = &d
	c.MessageCount++
	c.LastUsed = &at
	f.channels[id] = c
	return c, nil
}

func (f *fakeStore) ReleaseChannelUsage(_ context.Context, id uuid.UUID, today time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok || c.DailyCount == 0 || stale(c, today) {
		return false, nil
	}
	c.DailyCount--
	c.MessageCount--
	f.channels[id] = c
	return true, nil
}

type staticSettings struct{ settings domain.Settings }

func (s *staticSettings) Get(context.Context) domain.Settings { return s.settings }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(store *fakeStore, settings domain.Settings) (*Service, *clock) {
	clk := &clock{now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	svc := New(store, &staticSettings{settings: settings}, domain.NewCalendar(time.UTC, clk.Now), logger.Discard())
	return svc, clk
}

func channel(limit int) domain.Channel {
	return domain.Channel{ID: uuid.New(), Identifier: "+12015550123", IsActive: true, DailyLimit: limit}
}

func TestSingleChannelScenario(t *testing.T) {
	c := channel(1)
	store := newFakeStore(c)
	svc, _ := newService(store, domain.DefaultSettings())
	ctx := context.Background()

	selected, err := svc.SelectChannel(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, selected.ID)
	assert.Equal(t, 0, store.get(c.ID).DailyCount, "selection does not consume quota")

	_, err = svc.RecordUsage(ctx, selected.ID)
	require.NoError(t, err)

	_, err = svc.SelectChannel(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNoChannelAvailable))
}

func TestRecordUsageNeverExceedsLimit(t *testing.T) {
	c := channel(2)
	store := newFakeStore(c)
	svc, _ := newService(store, domain.DefaultSettings())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.RecordUsage(ctx, c.ID)
		require.NoError(t, err)
	}
	_, err := svc.RecordUsage(ctx, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNoChannelAvailable))
	assert.Equal(t, 2, store.get(c.ID).DailyCount)

	_, err = svc.RecordUsage(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestConcurrentReservationsRespectQuota(t *testing.T) {
	const limit = 5
	c := channel(limit)
	store := newFakeStore(c)
	svc, _ := newService(store, domain.DefaultSettings())

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, exhausted := 0, 0
	start := make(chan struct{})
	for i := 0; i < 4*limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Reserve(context.Background())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.Is(err, apperr.KindNoChannelAvailable):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, limit, succeeded)
	assert.Equal(t, 3*limit, exhausted)
	assert.Equal(t, limit, store.get(c.ID).DailyCount)

	_, err := svc.Reserve(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNoChannelAvailable))
}

func TestDailyResetIdempotentAndOncePerDay(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	c := channel(3)
	c.DailyCount = 3
	c.DailyCountResetDate = &yesterday
	store := newFakeStore(c)
	svc, clk := newService(store, domain.DefaultSettings())
	ctx := context.Background()

	_, err := svc.SelectChannel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.resets)
	assert.Equal(t, 0, store.get(c.ID).DailyCount)

	_, err = svc.RecordUsage(ctx, c.ID)
	require.NoError(t, err)
	_, err = svc.SelectChannel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.resets, "second check on the same day is a no-op")
	assert.Equal(t, 1, store.get(c.ID).DailyCount)

	clk.advance(12 * time.Hour)
	_, err = svc.SelectChannel(ctx)
	require.NoError(t, err)
	_, err = svc.SelectChannel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.resets, "crossing midnight resets exactly once")
	assert.Equal(t, 0, store.get(c.ID).DailyCount)
}

func TestStrategies(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	early, late := t0.Add(-time.Hour), t0

	a := channel(10)
	a.LastUsed, a.DailyCount, a.DailyCountResetDate, a.MessageCount = &late, 1, &today, 500
	b := channel(10)
	b.LastUsed, b.DailyCount, b.DailyCountResetDate, b.MessageCount = &early, 6, &today, 20

	cases := map[domain.RotationStrategy]uuid.UUID{
		domain.StrategyRoundRobin:       b.ID,
		domain.StrategyLeastUsedToday:   a.ID,
		domain.StrategyLeastUsedOverall: b.ID,
	}
	for strategy, want := range cases {
		settings := domain.DefaultSettings()
		settings.RotationStrategy = strategy
		svc, _ := newService(newFakeStore(a, b), settings)

		got, err := svc.SelectChannel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got.ID, "strategy %s", strategy)
	}

	settings := domain.DefaultSettings()
	settings.RotationStrategy = domain.StrategyRandom
	svc, _ := newService(newFakeStore(a, b), settings)
	svc.intn = func(n int) int { return n - 1 }
	_, err := svc.SelectChannel(context.Background())
	require.NoError(t, err)
}

func TestRoundRobinPrefersNeverUsed(t *testing.T) {
	used := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	a := channel(10)
	a.LastUsed = &used
	fresh := channel(10)
	svc, _ := newService(newFakeStore(a, fresh), domain.DefaultSettings())

	got, err := svc.SelectChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)
}

func TestDefaultChannelPreferenceAndRotationToggle(t *testing.T) {
	used := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	def := channel(10)
	def.IsDefault = true
	def.LastUsed = &used
	other := channel(10)

	settings := domain.DefaultSettings()
	svc, _ := newService(newFakeStore(def, other), settings)
	got, err := svc.SelectChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID, "without preference the strategy decides")

	settings.PreferDefaultNumber = true
	svc, _ = newService(newFakeStore(def, other), settings)
	got, err = svc.SelectChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	full := def
	full.DailyCount = full.DailyLimit
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	full.DailyCountResetDate = &today
	svc, _ = newService(newFakeStore(full, other), settings)
	got, err = svc.SelectChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID, "a full default channel falls back to rotation")

	settings.NumberRotationEnabled = false
	svc, _ = newService(newFakeStore(full, other), settings)
	_, err = svc.SelectChannel(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNoChannelAvailable), "rotation disabled uses only the default channel")
}

func TestReleaseReturnsReservedUnit(t *testing.T) {
	c := channel(1)
	store := newFakeStore(c)
	svc, _ := newService(store, domain.DefaultSettings())
	ctx := context.Background()

	reserved, err := svc.Reserve(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, reserved.ID))
	assert.Equal(t, 0, store.get(c.ID).DailyCount)

	_, err = svc.Reserve(ctx)
	assert.NoError(t, err, "released quota can be reused")
}

func TestUsageStatistics(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	a := channel(10)
	a.DailyCount, a.DailyCountResetDate, a.MessageCount = 4, &today, 40
	b := channel(5)
	b.IsActive = false
	b.MessageCount = 7
	svc, _ := newService(newFakeStore(a, b), domain.DefaultSettings())

	stats, err := svc.UsageStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChannels)
	assert.Equal(t, 1, stats.ActiveChannels)
	assert.EqualValues(t, 47, stats.TotalMessages)
	assert.Equal(t, 4, stats.SentToday)
	assert.Equal(t, 6, stats.CapacityToday)
}

func TestCreateValidatesAndNormalizes(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store, domain.DefaultSettings())

	_, err := svc.Create(context.Background(), CreateParams{Identifier: "not a number"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	c, err := svc.Create(context.Background(), CreateParams{Identifier: "whatsapp:+1 201-555-0123", Label: " Sales "})
	require.NoError(t, err)
	assert.Equal(t, "+12015550123", c.Identifier)
	assert.Equal(t, "Sales", c.Label)
	assert.Equal(t, defaultDailyLimit, c.DailyLimit)
	assert.True(t, c.IsActive)

	_, err = svc.Create(context.Background(), CreateParams{Identifier: "+12015550123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
