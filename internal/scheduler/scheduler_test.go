package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"salescrm_backend/internal/events"
	"salescrm_backend/internal/notification/outbox"
	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClientOptTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	opt, err = redisClientOpt("redis://localhost:6379/0", false)
	require.NoError(t, err)
	assert.Nil(t, opt.TLSConfig)
}

func TestPeriodicEntriesDefaults(t *testing.T) {
	entries := periodicEntries(&config.Config{}, "crm")
	require.Len(t, entries, 3)

	crons := map[string]string{}
	for _, e := range entries {
		crons[e.task.Type()] = e.cron
	}
	assert.Equal(t, "@every 1m", crons[TaskReminderSweep])
	assert.Equal(t, "0 8 * * *", crons[TaskDailyDigest])
	assert.Equal(t, channelResetCron, crons[TaskChannelDailyReset])

	entries = periodicEntries(&config.Config{ReminderSweepCron: "@every 30s"}, "crm")
	assert.Equal(t, "@every 30s", entries[0].cron)
}

type fakeReminders struct {
	sweeps, digests int
	err             error
}

func (f *fakeReminders) Sweep(context.Context) (int, error) {
	f.sweeps++
	return 0, f.err
}

func (f *fakeReminders) SendDailyDigest(context.Context) (int, error) {
	f.digests++
	return 0, f.err
}

type fakeResetter struct{ calls int }

func (f *fakeResetter) ResetAllDailyCounts(context.Context) (int64, error) {
	f.calls++
	return 2, nil
}

func TestWorkerRoutesTasks(t *testing.T) {
	reminders := &fakeReminders{}
	resetter := &fakeResetter{}
	bus := events.NewInMemoryBus(logger.Discard())

	var delivered uuid.UUID
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		delivered = e.(events.NotificationOutboxDue).OutboxID
		return nil
	}))

	w := newWorker(Handlers{Reminders: reminders, Channels: resetter, Bus: bus}, logger.Discard())
	ctx := context.Background()

	require.NoError(t, w.mux.ProcessTask(ctx, NewReminderSweepTask()))
	require.NoError(t, w.mux.ProcessTask(ctx, NewDailyDigestTask()))
	require.NoError(t, w.mux.ProcessTask(ctx, NewChannelDailyResetTask()))

	id := uuid.New()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: id.String()})
	require.NoError(t, err)
	require.NoError(t, w.mux.ProcessTask(ctx, task))

	assert.Equal(t, 1, reminders.sweeps)
	assert.Equal(t, 1, reminders.digests)
	assert.Equal(t, 1, resetter.calls)
	assert.Equal(t, id, delivered)
}

func TestWorkerSkipsRetryOnBadPayload(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Discard())
	w := newWorker(Handlers{Bus: bus}, logger.Discard())

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: "not-a-uuid"})
	require.NoError(t, err)

	err = w.mux.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorkerPropagatesJobErrors(t *testing.T) {
	w := newWorker(Handlers{Reminders: &fakeReminders{err: errors.New("db down")}}, logger.Discard())
	assert.Error(t, w.mux.ProcessTask(context.Background(), NewDailyDigestTask()))
}

type fakeClaimer struct {
	records  []outbox.Record
	requeued map[uuid.UUID]time.Time
}

func (f *fakeClaimer) ClaimPending(context.Context, int) ([]outbox.Record, error) {
	claimed := f.records
	f.records = nil
	return claimed, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, runAt time.Time, _ *string) error {
	f.requeued[id] = runAt
	return nil
}

type fakeEnqueuer struct {
	fail  map[string]bool
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return nil, err
	}
	if f.fail[payload.OutboxID] {
		return nil, errors.New("redis unavailable")
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestDispatcherRequeuesFailedEnqueues(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ok, broken := uuid.New(), uuid.New()
	claimer := &fakeClaimer{
		records:  []outbox.Record{{ID: ok, RunAt: now}, {ID: broken, RunAt: now}},
		requeued: map[uuid.UUID]time.Time{},
	}
	enq := &fakeEnqueuer{fail: map[string]bool{broken.String(): true}}
	d := &NotificationOutboxDispatcher{
		enq:   enq,
		queue: "crm",
		repo:  claimer,
		log:   logger.Discard(),
		now:   func() time.Time { return now },
	}

	assert.Equal(t, 1, d.dispatch(context.Background()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskNotificationOutboxDue, enq.tasks[0].Type())

	require.Contains(t, claimer.requeued, broken)
	assert.Equal(t, now.Add(outboxEnqueueRetryDelay), claimer.requeued[broken])
	assert.NotContains(t, claimer.requeued, ok)

	assert.Zero(t, d.dispatch(context.Background()))
}
