package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/webhooks"
)

type WebhooksHandler struct {
	repo       *repository.CatalogRepository
	dispatcher *webhooks.Dispatcher
}

func NewWebhooksHandler(repo *repository.CatalogRepository, dispatcher *webhooks.Dispatcher) *WebhooksHandler {
	return &WebhooksHandler{repo: repo, dispatcher: dispatcher}
}

// CreateWebhook registers a webhook subscription
// POST /api/v1/webhooks
func (h *WebhooksHandler) CreateWebhook(c *gin.Context) {
	var req models.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	webhook := models.Webhook{
		URL:       req.URL,
		EventType: req.EventType,
		IsActive:  true,
	}
	if req.IsActive != nil {
		webhook.IsActive = *req.IsActive
	}

	if err := h.repo.CreateWebhook(&webhook); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to create webhook",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, webhook)
}

// GetWebhooks lists registered webhooks
// GET /api/v1/webhooks
func (h *WebhooksHandler) GetWebhooks(c *gin.Context) {
	hooks, err := h.repo.GetWebhooks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to fetch webhooks",
			},
		})
		return
	}

	c.JSON(http.StatusOK, hooks)
}

// DeleteWebhook removes a webhook subscription
// DELETE /api/v1/webhooks/:id
func (h *WebhooksHandler) DeleteWebhook(c *gin.Context) {
	webhookID, ok := h.parseID(c)
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteWebhook(webhookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to delete webhook",
			},
		})
		return
	}
	if !deleted {
		h.notFound(c)
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleWebhook flips a webhook's active flag
// PATCH /api/v1/webhooks/:id
func (h *WebhooksHandler) ToggleWebhook(c *gin.Context) {
	webhookID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req models.ToggleWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	webhook, err := h.repo.SetWebhookActive(webhookID, req.IsActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.notFound(c)
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to update webhook",
			},
		})
		return
	}

	c.JSON(http.StatusOK, webhook)
}

// TestWebhook synchronously delivers a probe event to the webhook's endpoint
// POST /api/v1/webhooks/:id/test
func (h *WebhooksHandler) TestWebhook(c *gin.Context) {
	webhookID, ok := h.parseID(c)
	if !ok {
		return
	}

	webhook, err := h.repo.GetWebhookByID(webhookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to fetch webhook",
			},
		})
		return
	}
	if webhook == nil {
		h.notFound(c)
		return
	}

	result, err := h.dispatcher.Test(c.Request.Context(), webhook)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELIVERY_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WebhooksHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	webhookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid webhook ID format",
			},
		})
		return uuid.Nil, false
	}
	return webhookID, true
}

func (h *WebhooksHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: "Webhook not found",
		},
	})
}
