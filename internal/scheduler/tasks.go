package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Periodic tasks carry no payload; the handler works from the clock.
const (
	TaskReminderSweep     = "crm.reminders.sweep"
	TaskDailyDigest       = "crm.reminders.daily_digest"
	TaskChannelDailyReset = "crm.channels.daily_reset"
)

// TaskNotificationOutboxDue fires when a scheduled outbox row reaches run_at.
const TaskNotificationOutboxDue = "notification.outbox.due"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewReminderSweepTask() *asynq.Task     { return asynq.NewTask(TaskReminderSweep, nil) }
func NewDailyDigestTask() *asynq.Task       { return asynq.NewTask(TaskDailyDigest, nil) }
func NewChannelDailyResetTask() *asynq.Task { return asynq.NewTask(TaskChannelDailyReset, nil) }

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

// outboxID is the parsed row id; malformed ids are never retried.
func (p NotificationOutboxDuePayload) outboxID() (uuid.UUID, error) {
	id, err := uuid.Parse(p.OutboxID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("outbox id %q: %w", p.OutboxID, asynq.SkipRetry)
	}
	return id, nil
}
