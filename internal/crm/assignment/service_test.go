package assignment

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
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

// fakeUsers keeps the rotation cursor in memory with the same compare-and-set
// semantics as the SQL store.
type fakeUsers struct {
	mu    sync.Mutex
	users []domain.User
	// lose makes the next n claims fail as if another caller won.
	lose int
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (f *fakeUsers) NextAssigneeCandidate(context.Context) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	eligible := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		if u.Role == domain.RoleEmployee && u.IsActive {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return domain.User{}, repository.ErrNotFound
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i].LastLeadAssigned, eligible[j].LastLeadAssigned
		switch {
		case a == nil && b == nil:
			return eligible[i].ID.String() < eligible[j].ID.String()
		case a == nil:
			return true
		case b == nil:
			return false
		case a.Equal(*b):
			return eligible[i].ID.String() < eligible[j].ID.String()
		}
		return a.Before(*b)
	})
	return eligible[0], nil
}

func (f *fakeUsers) ClaimAssignee(_ context.Context, id uuid.UUID, previous *time.Time, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lose > 0 {
		f.lose--
		return false, nil
	}
	for i, u := range f.users {
		if u.ID != id {
			continue
		}
		same := (u.LastLeadAssigned == nil && previous == nil) ||
			(u.LastLeadAssigned != nil && previous != nil && u.LastLeadAssigned.Equal(*previous))
		if !same {
			return false, nil
		}
		f.users[i].LastLeadAssigned = &at
		return true, nil
	}
	return false, nil
}

func (f *fakeUsers) ListActiveEmployees(context.Context) ([]domain.User, error) {
	return f.users, nil
}

func (f *fakeUsers) ListActiveAdmins(context.Context) ([]domain.User, error) { return nil, nil }

func employee(lastAssigned *time.Time) domain.User {
	return domain.User{ID: uuid.New(), Role: domain.RoleEmployee, IsActive: true, LastLeadAssigned: lastAssigned}
}

func at(t time.Time) *time.Time { return &t }

func tickingClock(start time.Time) func() time.Time {
	var ticks atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}

func TestAssignNextRoundRobinFairness(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e1 := employee(at(t0.Add(-24 * time.Hour)))
	e2 := employee(at(t0.Add(-72 * time.Hour)))
	e3 := employee(at(t0.Add(-48 * time.Hour)))
	admin := domain.User{ID: uuid.New(), Role: domain.RoleAdmin, IsActive: true}

	store := &fakeUsers{users: []domain.User{e1, e2, e3, admin}}
	svc := New(store, logger.Discard())
	svc.now = tickingClock(t0)

	var got []uuid.UUID
	for i := 0; i < 3; i++ {
		u, err := svc.AssignNext(context.Background())
		require.NoError(t, err)
		got = append(got, u.ID)
	}

	assert.Equal(t, []uuid.UUID{e2.ID, e3.ID, e1.ID}, got)

	u, err := svc.AssignNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, e2.ID, u.ID, "rotation wraps around")
}

func TestAssignNextPrefersNeverAssigned(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	veteran := employee(at(t0.Add(-time.Hour)))
	newcomer := employee(nil)
	svc := New(&fakeUsers{users: []domain.User{veteran, newcomer}}, logger.Discard())
	svc.now = tickingClock(t0)

	u, err := svc.AssignNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newcomer.ID, u.ID)
	require.NotNil(t, u.LastLeadAssigned)
}

func TestAssignNextScenarioOldestCursorWins(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e1 := employee(at(t0))
	e2 := employee(at(t0.Add(-24 * time.Hour)))
	svc := New(&fakeUsers{users: []domain.User{e1, e2}}, logger.Discard())
	svc.now = tickingClock(t0)

	u, err := svc.AssignNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, e2.ID, u.ID)
}

func TestAssignNextConcurrentCallersGetDistinctEmployees(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	const n = 4
	users := make([]domain.User, n)
	for i := range users {
		users[i] = employee(at(t0.Add(-time.Duration(i+1) * time.Hour)))
	}
	svc := New(&fakeUsers{users: users}, logger.Discard())
	svc.now = tickingClock(t0)

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan uuid.UUID, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			u, err := svc.AssignNext(context.Background())
			if err != nil {
				errs <- err
				return
			}
			results <- u.ID
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[uuid.UUID]bool{}
	for id := range results {
		assert.False(t, seen[id], "employee %s assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestAssignNextNoEligibleEmployee(t *testing.T) {
	admin := domain.User{ID: uuid.New(), Role: domain.RoleAdmin, IsActive: true}
	inactive := domain.User{ID: uuid.New(), Role: domain.RoleEmployee}
	svc := New(&fakeUsers{users: []domain.User{admin, inactive}}, logger.Discard())

	_, err := svc.AssignNext(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNoEligibleAssignee))
}

func TestAssignNextGivesUpAfterRepeatedLostRaces(t *testing.T) {
	store := &fakeUsers{users: []domain.User{employee(nil)}, lose: maxClaimAttempts}
	svc := New(store, logger.Discard())

	_, err := svc.AssignNext(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestAssignNextRetriesAfterLostRace(t *testing.T) {
	store := &fakeUsers{users: []domain.User{employee(nil)}, lose: 2}
	svc := New(store, logger.Discard())

	_, err := svc.AssignNext(context.Background())
	assert.NoError(t, err)
}

func TestAssignNextHonoursCancelledContext(t *testing.T) {
	store := &fakeUsers{users: []domain.User{employee(nil)}}
	svc := New(store, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AssignNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, store.users[0].LastLeadAssigned, "no mutation after cancellation")
}
