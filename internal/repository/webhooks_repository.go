package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"catalog-import-service/internal/models"
	"gorm.io/gorm"
)

// Webhook Operations

// CreateWebhook registers a new webhook subscription
func (r *CatalogRepository) CreateWebhook(webhook *models.Webhook) error {
	webhook.CreatedAt = time.Now()
	if webhook.ID == uuid.Nil {
		webhook.ID = uuid.New()
	}
	return r.db.Create(webhook).Error
}

// GetWebhooks retrieves all registered webhooks
func (r *CatalogRepository) GetWebhooks() ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Order("created_at ASC").Find(&webhooks).Error
	return webhooks, err
}

// GetWebhookByID retrieves a webhook by ID
func (r *CatalogRepository) GetWebhookByID(webhookID uuid.UUID) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := r.db.Where("id = ?", webhookID).First(&webhook).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &webhook, nil
}

// DeleteWebhook removes a webhook by ID
func (r *CatalogRepository) DeleteWebhook(webhookID uuid.UUID) (bool, error) {
	result := r.db.Where("id = ?", webhookID).Delete(&models.Webhook{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetWebhookActive flips a webhook's active flag
func (r *CatalogRepository) SetWebhookActive(webhookID uuid.UUID, isActive bool) (*models.Webhook, error) {
	result := r.db.Model(&models.Webhook{}).Where("id = ?", webhookID).Update("is_active", isActive)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetWebhookByID(webhookID)
}

// ActiveWebhooksForEvent returns active webhooks whose filter matches the event type
func (r *CatalogRepository) ActiveWebhooksForEvent(eventType string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Where("event_type = ? AND is_active = ?", eventType, true).Find(&webhooks).Error
	return webhooks, err
}
