// Package activity is the append-only interaction log of a lead.
package activity

import (
	"context"
	"strings"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// LeadReader is the lead lookup used for access checks.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

type RecordParams struct {
	LeadID          uuid.UUID
	UserID          *uuid.UUID
	Type            domain.ActivityType
	Status          domain.ActivityStatus
	Notes           string
	DurationSeconds *int
	TemplateUsed    *string
}

type Recorder struct {
	store repository.ActivityStore
	leads LeadReader
}

func New(store repository.ActivityStore, leads LeadReader) *Recorder {
	return &Recorder{store: store, leads: leads}
}

// Record appends one activity. Storage failures are returned as-is to the
// caller and never retried here.
func (r *Recorder) Record(ctx context.Context, params RecordParams) (domain.Activity, error) {
	const op = "activity.Record"

	if params.LeadID == uuid.Nil {
		return domain.Activity{}, apperr.Validation("leadId is required").WithOp(op)
	}
	if !domain.ValidActivity(params.Type, params.Status) {
		return domain.Activity{}, apperr.Validation("unknown activity type or status").WithOp(op)
	}
	if params.DurationSeconds != nil {
		if params.Type != domain.ActivityCall {
			return domain.Activity{}, apperr.Validation("duration is only recorded for calls").WithOp(op)
		}
		if *params.DurationSeconds < 0 {
			return domain.Activity{}, apperr.Validation("duration must not be negative").WithOp(op)
		}
	}

	created, err := r.store.CreateActivity(ctx, repository.CreateActivityParams{
		LeadID:          params.LeadID,
		UserID:          params.UserID,
		Type:            params.Type,
		Status:          params.Status,
		DurationSeconds: params.DurationSeconds,
		Notes:           optional(params.Notes),
		TemplateUsed:    params.TemplateUsed,
	})
	if err != nil {
		return domain.Activity{}, repository.Translate(op, "lead", err)
	}
	return created, nil
}

// RecordFor is Record on behalf of actor, checking that actor may touch the lead.
func (r *Recorder) RecordFor(ctx context.Context, actor domain.Actor, params RecordParams) (domain.Activity, error) {
	const op = "activity.RecordFor"

	lead, err := r.leads.GetLead(ctx, params.LeadID)
	if err != nil {
		return domain.Activity{}, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return domain.Activity{}, apperr.Forbidden("not allowed to log activity on this lead").WithOp(op)
	}
	if !actor.System {
		id := actor.UserID
		params.UserID = &id
	}
	return r.Record(ctx, params)
}

func (r *Recorder) ListForLead(ctx context.Context, actor domain.Actor, leadID uuid.UUID) ([]domain.Activity, error) {
	const op = "activity.ListForLead"

	lead, err := r.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, repository.Translate(op, "lead", err)
	}
	if !actor.CanAccess(lead.AssignedTo) {
		return nil, apperr.Forbidden("not allowed to view this lead").WithOp(op)
	}

	items, err := r.store.ListActivitiesForLead(ctx, leadID)
	if err != nil {
		return nil, repository.Translate(op, "lead", err)
	}
	return items, nil
}

// TypeForFollowUp maps a follow-up type onto the activity log vocabulary.
func TypeForFollowUp(t domain.FollowUpType) domain.ActivityType {
	switch t {
	case domain.FollowUpCall:
		return domain.ActivityCall
	case domain.FollowUpWhatsApp:
		return domain.ActivityWhatsApp
	case domain.FollowUpEmail:
		return domain.ActivityEmail
	case domain.FollowUpMeeting:
		return domain.ActivityMeeting
	default:
		return domain.ActivityNote
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
