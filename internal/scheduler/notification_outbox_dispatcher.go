package scheduler

import (
	"context"
	"time"

	"salescrm_backend/internal/notification/outbox"
	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	outboxPollInterval = 2 * time.Second
	outboxClaimBatch   = 50
	// enqueue failures are retried by the next poll after this delay.
	outboxEnqueueRetryDelay = 30 * time.Second
)

type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationOutboxDispatcher moves due outbox records onto the asynq queue.
type NotificationOutboxDispatcher struct {
	client *asynq.Client
	enq    taskEnqueuer
	queue  string
	repo   OutboxClaimer
	log    *logger.Logger
	now    func() time.Time
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &NotificationOutboxDispatcher{
		client: client,
		enq:    client,
		queue:  queueName(cfg),
		repo:   outbox.New(pool),
		log:    log,
		now:    time.Now,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.enq == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatch(ctx)
	}
}

// dispatch claims one batch and enqueues it, returning how many were enqueued.
func (d *NotificationOutboxDispatcher) dispatch(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		if err := d.enqueue(ctx, rec); err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, d.now().Add(outboxEnqueueRetryDelay), &msg); markErr != nil {
				d.log.Warn("outbox requeue failed", "outboxId", rec.ID, "error", markErr)
			}
			continue
		}
		enqueued++
	}
	return enqueued
}

func (d *NotificationOutboxDispatcher) enqueue(ctx context.Context, rec outbox.Record) error {
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: rec.ID.String()})
	if err != nil {
		return err
	}
	// Delivery retries are tracked on the outbox record, not by asynq.
	_, err = d.enq.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue), asynq.MaxRetry(0))
	return err
}
