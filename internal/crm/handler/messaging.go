package handler

import (
	"net/http"

	"salescrm_backend/internal/crm/templates"
	"salescrm_backend/internal/crm/transport"
	"salescrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) WhatsAppHistory(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	items, err := h.svc.Messaging.History(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) InitiateCall(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.Messaging.InitiateCall(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) MessageStats(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query transport.MessageStatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	stats, err := h.svc.Messaging.Stats(c.Request.Context(), caller, query.Days)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, stats)
}

// Templates

func (h *Handler) ListTemplates(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.Templates.List(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tpl, err := h.svc.Templates.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, tpl)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req transport.CreateTemplateRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.svc.Templates.Create(c.Request.Context(), caller, templates.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		Tags:        req.Tags,
		IsActive:    req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, created)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateTemplateRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.svc.Templates.Update(c.Request.Context(), caller, id, templates.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		Tags:        req.Tags,
		IsActive:    req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, updated)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Templates.Delete(c.Request.Context(), caller, id)) {
		return
	}

	c.Status(http.StatusNoContent)
}
