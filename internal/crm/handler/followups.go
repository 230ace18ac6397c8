package handler

import (
	"context"
	"net/http"
	"strconv"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/followups"
	"salescrm_backend/internal/crm/transport"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) ScheduleFollowUp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req transport.ScheduleFollowUpRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.svc.FollowUps.Schedule(c.Request.Context(), followups.ScheduleParams{
		Actor:        caller,
		LeadID:       req.LeadID,
		AssigneeID:   req.AssigneeID,
		Type:         req.Type,
		IntervalDays: req.IntervalDays,
		Notes:        req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, created)
}

func (h *Handler) GetFollowUp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.svc.FollowUps.Get(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, item)
}

func (h *Handler) CompleteFollowUp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.CompleteFollowUpRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.FollowUps.Complete(c.Request.Context(), caller, id, followups.CompleteParams{
		Outcome: req.Outcome,
		Notes:   req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) RescheduleFollowUp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.RescheduleFollowUpRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.svc.FollowUps.Reschedule(c.Request.Context(), caller, id, req.NewDate)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) SnoozeFollowUp(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.SnoozeFollowUpRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.svc.FollowUps.Snooze(c.Request.Context(), caller, id, req.SnoozeUntil)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) UpdateFollowUpStatus(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateFollowUpStatusRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.FollowUps.UpdateStatus(c.Request.Context(), caller, id, followups.UpdateStatusParams{
		Status:  req.Status,
		Outcome: req.Outcome,
		Notes:   req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListOverdue(c *gin.Context) {
	h.listFollowUps(c, h.svc.FollowUps.ListOverdue)
}

func (h *Handler) ListToday(c *gin.Context) {
	h.listFollowUps(c, h.svc.FollowUps.ListToday)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	h.listFollowUps(c, h.svc.FollowUps.ListUpcoming)
}

type listFunc func(ctx context.Context, params followups.ListParams) ([]domain.FollowUp, error)

// listFollowUps reads the optional assignedTo and days query parameters.
// Employees are always scoped to their own follow-ups by the service.
func (h *Handler) listFollowUps(c *gin.Context, list listFunc) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	params := followups.ListParams{Actor: caller}
	if raw := c.Query("assignedTo"); raw != "" {
		assignee, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, gin.H{"assignedTo": "uuid"})
			return
		}
		params.AssigneeID = &assignee
	}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, gin.H{"days": "min"})
			return
		}
		params.Days = days
	}

	items, err := list(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": len(items)})
}
