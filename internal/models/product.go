package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product. SKU uniqueness is case-insensitive:
// every write path stores the canonical (upper-cased, trimmed) form, and the
// unique index on sku enforces the invariant in storage.
type Product struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SKU         string     `json:"sku" gorm:"size:255;not null;uniqueIndex:idx_products_sku"`
	Name        string     `json:"name" gorm:"size:500;not null"`
	Description *string    `json:"description,omitempty" gorm:"type:text"`
	Price       *string    `json:"price,omitempty" gorm:"type:numeric(10,2)"`
	IsActive    bool       `json:"isActive" gorm:"not null;default:true"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// CanonicalSKU returns the canonical form of a SKU used for all uniqueness
// comparisons: upper-cased with surrounding whitespace stripped.
func CanonicalSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// Webhook represents a registered subscription: an endpoint interested in a
// named event type. Consulted, never mutated, by the notification dispatcher.
type Webhook struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	URL       string    `json:"url" gorm:"size:2048;not null"`
	EventType string    `json:"eventType" gorm:"size:255;not null;index"`
	IsActive  bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for the Webhook model
func (Webhook) TableName() string {
	return "webhooks"
}

// Event types emitted by the import pipeline and accepted by webhook filters.
const (
	EventProductBulkImport = "product.bulk_import"
	EventWebhookTest       = "test"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU         string  `json:"sku" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	SKU         *string `json:"sku,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// CreateWebhookRequest represents a request to register a webhook
type CreateWebhookRequest struct {
	URL       string `json:"url" binding:"required,url"`
	EventType string `json:"eventType" binding:"required"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

// ToggleWebhookRequest flips a webhook's active flag
type ToggleWebhookRequest struct {
	IsActive bool `json:"isActive"`
}

// ProductListResponse is the paginated product list payload
type ProductListResponse struct {
	Total int64     `json:"total"`
	Skip  int       `json:"skip"`
	Limit int       `json:"limit"`
	Items []Product `json:"items"`
}

// WebhookTestResult is returned by the synchronous webhook test endpoint
type WebhookTestResult struct {
	StatusCode     int   `json:"statusCode"`
	ResponseTimeMs int64 `json:"responseTimeMs"`
	Success        bool  `json:"success"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
