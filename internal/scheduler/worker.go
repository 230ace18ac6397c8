package scheduler

import (
	"context"
	"fmt"

	"salescrm_backend/internal/events"
	"salescrm_backend/platform/config"
	"salescrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ReminderRunner runs the follow-up reminder jobs.
type ReminderRunner interface {
	Sweep(ctx context.Context) (int, error)
	SendDailyDigest(ctx context.Context) (int, error)
}

type ChannelResetter interface {
	ResetAllDailyCounts(ctx context.Context) (int64, error)
}

// Handlers are the services the worker dispatches tasks to.
type Handlers struct {
	Reminders ReminderRunner
	Channels  ChannelResetter
	Bus       events.Bus
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	handlers Handlers
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers Handlers, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: newAsynqLogger(log),
	})

	w := newWorker(handlers, log)
	w.server = server
	return w, nil
}

func newWorker(handlers Handlers, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, handlers: handlers, log: log}

	mux.HandleFunc(TaskReminderSweep, w.handleReminderSweep)
	mux.HandleFunc(TaskDailyDigest, w.handleDailyDigest)
	mux.HandleFunc(TaskChannelDailyReset, w.handleChannelDailyReset)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleReminderSweep(ctx context.Context, _ *asynq.Task) error {
	if w.handlers.Reminders == nil {
		return nil
	}
	_, err := w.handlers.Reminders.Sweep(withTaskID(ctx))
	return err
}

func (w *Worker) handleDailyDigest(ctx context.Context, _ *asynq.Task) error {
	if w.handlers.Reminders == nil {
		return nil
	}
	_, err := w.handlers.Reminders.SendDailyDigest(withTaskID(ctx))
	return err
}

func (w *Worker) handleChannelDailyReset(ctx context.Context, _ *asynq.Task) error {
	if w.handlers.Channels == nil {
		return nil
	}
	ctx = withTaskID(ctx)
	reset, err := w.handlers.Channels.ResetAllDailyCounts(ctx)
	if err != nil {
		return err
	}
	w.log.WithContext(ctx).Info("channel daily counts reset", "channels", reset)
	return nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.handlers.Bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := payload.outboxID()
	if err != nil {
		return err
	}

	return w.handlers.Bus.PublishSync(withTaskID(ctx), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

// withTaskID copies the asynq task id into the logging context.
func withTaskID(ctx context.Context) context.Context {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return context.WithValue(ctx, logger.TaskIDKey, id)
	}
	return ctx
}
