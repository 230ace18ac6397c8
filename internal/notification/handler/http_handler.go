// Package handler exposes the caller's in-app inbox: reminders, digests and
// assignment notices written by the notification module.
package handler

import (
	"net/http"

	"salescrm_backend/internal/notification/inapp"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

type listQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1"`
	UnreadOnly bool   `form:"unread"`
	Category   string `form:"category" binding:"omitempty,max=64"`
}

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.DELETE("/:id", h.Delete)
}

// List supports ?page, ?limit (capped at 50), ?unread=true and ?category=.
func (h *HTTPHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query").WithDetails(err.Error()))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}
	q.Limit = min(q.Limit, maxListLimit)

	filter := inapp.ListFilter{UnreadOnly: q.UnreadOnly, Category: q.Category}
	items, total, err := h.svc.List(c.Request.Context(), userID, filter, q.Page, q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	userID, id, ok := callerAndPathID(c)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), userID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.MarkAllRead(c.Request.Context(), userID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	userID, id, ok := callerAndPathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return identity.UserID(), true
}

func callerAndPathID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := callerID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
