package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/catalogtools/importer/internal/api/dto"
	"github.com/catalogtools/importer/internal/webhook"
	"github.com/gin-gonic/gin"
)

// ListWebhooks handles GET /api/v1/webhooks
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	hooks, err := h.webhooks.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list webhooks", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list webhooks",
		})
		return
	}

	response := make([]dto.WebhookDTO, len(hooks))
	for i := range hooks {
		response[i] = toWebhookDTO(&hooks[i])
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": response})
}

// CreateWebhook handles POST /api/v1/webhooks
func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req dto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !webhook.KnownEvent(req.EventType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown event type: " + req.EventType,
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	hook, err := h.webhooks.Create(c.Request.Context(), req.URL, req.EventType, isActive)
	if err != nil {
		h.logger.Error("Failed to create webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create webhook",
		})
		return
	}

	c.JSON(http.StatusCreated, toWebhookDTO(hook))
}

// UpdateWebhook handles PUT /api/v1/webhooks/:id
func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, ok := parseWebhookID(c)
	if !ok {
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !webhook.KnownEvent(req.EventType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown event type: " + req.EventType,
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	hook, err := h.webhooks.Update(c.Request.Context(), id, req.URL, req.EventType, isActive)
	if err != nil {
		if errors.Is(err, webhook.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Webhook not found",
			})
			return
		}
		h.logger.Error("Failed to update webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update webhook",
		})
		return
	}

	c.JSON(http.StatusOK, toWebhookDTO(hook))
}

// DeleteWebhook handles DELETE /api/v1/webhooks/:id
func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, ok := parseWebhookID(c)
	if !ok {
		return
	}

	if err := h.webhooks.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, webhook.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Webhook not found",
			})
			return
		}
		h.logger.Error("Failed to delete webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete webhook",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// TestWebhook handles POST /api/v1/webhooks/:id/test
// Delivers a probe event synchronously and reports the outcome.
func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	id, ok := parseWebhookID(c)
	if !ok {
		return
	}

	hook, err := h.webhooks.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, webhook.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Webhook not found",
			})
			return
		}
		h.logger.Error("Failed to get webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get webhook",
		})
		return
	}

	result := h.dispatcher.Deliver(c.Request.Context(), hook, "test", map[string]any{
		"message": "This is a test webhook",
	})

	if err := h.webhooks.RecordDelivery(c.Request.Context(), hook.ID, result); err != nil {
		h.logger.Warn("Failed to record webhook test delivery",
			slog.Int64("webhook_id", hook.ID),
			slog.String("error", err.Error()),
		)
	}

	response := dto.TestWebhookResponse{
		Success:        result.Success,
		ResponseCode:   result.ResponseCode,
		ResponseTimeMs: result.ResponseTimeMs,
	}
	if result.Err != nil {
		response.Error = result.Err.Error()
	} else if !result.Success {
		response.Error = "HTTP " + strconv.Itoa(result.ResponseCode)
	}

	c.JSON(http.StatusOK, response)
}

func parseWebhookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func toWebhookDTO(hook *webhook.Webhook) dto.WebhookDTO {
	d := dto.WebhookDTO{
		ID:        hook.ID,
		URL:       hook.URL,
		EventType: hook.EventType,
		IsActive:  hook.IsActive,
		CreatedAt: hook.CreatedAt.Format(time.RFC3339),
		UpdatedAt: hook.UpdatedAt.Format(time.RFC3339),
	}
	if hook.LastTriggeredAt.Valid {
		d.LastTriggeredAt = hook.LastTriggeredAt.Time.Format(time.RFC3339)
	}
	if hook.LastResponseCode.Valid {
		code := hook.LastResponseCode.Int64
		d.LastResponseCode = &code
	}
	if hook.LastResponseTimeMs.Valid {
		ms := hook.LastResponseTimeMs.Int64
		d.LastResponseTimeMs = &ms
	}
	return d
}
