package reminders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/followups"
	"salescrm_backend/internal/crm/ports"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/internal/email"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeClaimer struct {
	pending   []domain.FollowUp
	dueBefore time.Time
}

func (f *fakeClaimer) ClaimDueReminders(_ context.Context, dueBefore time.Time, _ int) ([]domain.FollowUp, error) {
	f.dueBefore = dueBefore
	var claimed, rest []domain.FollowUp
	for _, fu := range f.pending {
		if !fu.Scheduled.After(dueBefore) {
			claimed = append(claimed, fu)
		} else {
			rest = append(rest, fu)
		}
	}
	f.pending = rest
	return claimed, nil
}

type fakeLister struct {
	today   map[uuid.UUID][]domain.FollowUp
	overdue map[uuid.UUID][]domain.FollowUp
	// failures is the number of transient errors returned before succeeding.
	failures int
	calls    int
}

func (f *fakeLister) ListToday(_ context.Context, p followups.ListParams) ([]domain.FollowUp, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.today[*p.AssigneeID], nil
}

func (f *fakeLister) ListOverdue(_ context.Context, p followups.ListParams) ([]domain.FollowUp, error) {
	return f.overdue[*p.AssigneeID], nil
}

type fakeLeads map[uuid.UUID]domain.Lead

func (f fakeLeads) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := f[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

type fakeEmployees []domain.User

func (f fakeEmployees) ListActiveEmployees(context.Context) ([]domain.User, error) { return f, nil }

type staticSettings struct{ settings domain.Settings }

func (s staticSettings) Get(context.Context) domain.Settings { return s.settings }

type recordingSink struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (r *recordingSink) Notify(_ context.Context, n ports.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

type recordingMailer struct {
	digests map[string]email.DigestData
}

func (m *recordingMailer) SendDailyDigest(_ context.Context, to string, d email.DigestData) error {
	m.digests[to] = d
	return nil
}

func (m *recordingMailer) SendCustomEmail(context.Context, string, string, string) error { return nil }

type harness struct {
	svc     *Service
	claimer *fakeClaimer
	lister  *fakeLister
	leads   fakeLeads
	sink    *recordingSink
	mailer  *recordingMailer
	redis   *miniredis.Miniredis
	now     time.Time
}

func newHarness(t *testing.T, employees ...domain.User) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		claimer: &fakeClaimer{},
		lister:  &fakeLister{today: map[uuid.UUID][]domain.FollowUp{}, overdue: map[uuid.UUID][]domain.FollowUp{}},
		leads:   fakeLeads{},
		sink:    &recordingSink{},
		mailer:  &recordingMailer{digests: map[string]email.DigestData{}},
		redis:   mr,
		now:     testNow,
	}
	h.svc = New(Dependencies{
		Reminders: h.claimer,
		FollowUps: h.lister,
		Leads:     h.leads,
		Employees: fakeEmployees(employees),
		Settings:  staticSettings{settings: domain.DefaultSettings()},
		Notifier:  h.sink,
		Email:     h.mailer,
		Lock:      NewRedisLock(client),
		Calendar:  domain.NewCalendar(time.UTC, func() time.Time { return h.now }),
		Log:       logger.Discard(),
		Backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
		},
	})
	return h
}

func (h *harness) addLead(name string) domain.Lead {
	lead := domain.Lead{ID: uuid.New(), Name: name, Phone: "+12015550123"}
	h.leads[lead.ID] = lead
	return lead
}

func TestSweepRemindsOnceWithinLeadTime(t *testing.T) {
	h := newHarness(t)
	lead := h.addLead("Bob")
	assignee := uuid.New()
	soon := domain.FollowUp{ID: uuid.New(), LeadID: lead.ID, AssignedTo: assignee, Type: domain.FollowUpCall, Scheduled: testNow.Add(10 * time.Minute)}
	later := domain.FollowUp{ID: uuid.New(), LeadID: lead.ID, AssignedTo: assignee, Type: domain.FollowUpCall, Scheduled: testNow.Add(2 * time.Hour)}
	h.claimer.pending = []domain.FollowUp{soon, later}

	sent, err := h.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.True(t, h.claimer.dueBefore.Equal(testNow.Add(15*time.Minute)))

	require.Len(t, h.sink.sent, 1)
	n := h.sink.sent[0]
	assert.Equal(t, assignee, n.UserID)
	assert.Equal(t, ports.CategoryFollowUpReminder, n.Category)
	assert.Contains(t, n.Message, "in 10 minutes")
	assert.Contains(t, n.Message, "Name: Bob")
	assert.Contains(t, n.Channels, ports.DeliverWhatsApp)

	sent, err = h.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "claimed follow-ups are not reminded twice")
}

func TestSweepSkipsMissingLead(t *testing.T) {
	h := newHarness(t)
	h.claimer.pending = []domain.FollowUp{{ID: uuid.New(), LeadID: uuid.New(), Scheduled: testNow}}

	sent, err := h.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, h.sink.sent)
}

func TestDailyDigestOncePerDay(t *testing.T) {
	alice := domain.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}
	idle := domain.User{ID: uuid.New(), Name: "Idle"}
	h := newHarness(t, alice, idle)
	lead := h.addLead("Bob")
	h.lister.today[alice.ID] = []domain.FollowUp{{LeadID: lead.ID, Type: domain.FollowUpCall, Scheduled: testNow.Add(2 * time.Hour)}}
	h.lister.overdue[alice.ID] = []domain.FollowUp{{LeadID: uuid.New(), Type: domain.FollowUpEmail, Scheduled: testNow.Add(-30 * time.Hour)}}
	ctx := context.Background()

	sent, err := h.svc.SendDailyDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, h.sink.sent, 1)
	assert.Equal(t, alice.ID, h.sink.sent[0].UserID)
	assert.Equal(t, ports.CategoryDailyDigest, h.sink.sent[0].Category)
	assert.True(t, strings.Contains(h.sink.sent[0].Message, "(overdue)"))

	digest, ok := h.mailer.digests[alice.Email]
	require.True(t, ok)
	assert.Equal(t, "2026-03-10", digest.Day)
	require.Len(t, digest.Items, 2)
	assert.True(t, digest.Items[0].Overdue)
	assert.Equal(t, "(unknown lead)", digest.Items[0].LeadName)
	assert.Equal(t, "Bob", digest.Items[1].LeadName)

	sent, err = h.svc.SendDailyDigest(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "second run on the same day is a no-op")
	assert.Len(t, h.sink.sent, 1)

	h.now = testNow.Add(24 * time.Hour)
	sent, err = h.svc.SendDailyDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "next day sends again")
}

func TestDailyDigestRetriesTransientReads(t *testing.T) {
	alice := domain.User{ID: uuid.New(), Name: "Alice"}
	h := newHarness(t, alice)
	lead := h.addLead("Bob")
	h.lister.today[alice.ID] = []domain.FollowUp{{LeadID: lead.ID, Scheduled: testNow}}
	h.lister.failures = 2

	sent, err := h.svc.SendDailyDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 3, h.lister.calls)
}

func TestDailyDigestStoreOutageKeepsDayOpen(t *testing.T) {
	alice := domain.User{ID: uuid.New(), Name: "Alice"}
	h := newHarness(t, alice)
	lead := h.addLead("Bob")
	h.lister.today[alice.ID] = []domain.FollowUp{{LeadID: lead.ID, Scheduled: testNow}}
	h.lister.failures = 10
	ctx := context.Background()

	sent, err := h.svc.SendDailyDigest(ctx)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	assert.Zero(t, sent)
	assert.False(t, h.redis.Exists(digestLockPrefix+"2026-03-10"))

	h.lister.failures = 0
	sent, err = h.svc.SendDailyDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, h.sink.sent, 1)
}

func TestDailyDigestReleasesDayWhenNothingDelivered(t *testing.T) {
	alice := domain.User{ID: uuid.New(), Name: "Alice"}
	h := newHarness(t, alice)
	lead := h.addLead("Bob")
	h.lister.today[alice.ID] = []domain.FollowUp{{LeadID: lead.ID, Scheduled: testNow}}
	h.sink.err = errors.New("outbox unavailable")
	ctx := context.Background()

	sent, err := h.svc.SendDailyDigest(ctx)
	require.Error(t, err)
	assert.Zero(t, sent)
	assert.False(t, h.redis.Exists(digestLockPrefix+"2026-03-10"))

	h.sink.err = nil
	sent, err = h.svc.SendDailyDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.True(t, h.redis.Exists(digestLockPrefix+"2026-03-10"))
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	lock := NewRedisLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Hour + time.Second)
	ok, err = lock.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Release(ctx, "k"))
	ok, err = lock.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
