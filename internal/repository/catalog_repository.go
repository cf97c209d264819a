package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"catalog-import-service/internal/models"
	"gorm.io/gorm"
)

// CatalogRepository owns product and webhook durability.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// stagingProduct mirrors the transaction-scoped staging table used by MergeBatch.
// Description and price travel as text; the merge statement casts on the way out.
type stagingProduct struct {
	SKU         string
	Name        string
	Description string
	Price       string
}

// MergeBatch atomically merges a normalized batch into the product table and
// returns the number of rows created or updated.
//
// Strategy: bulk-load the batch into a temp staging table, then run one
// set-based INSERT ... ON CONFLICT merge keyed on the canonical SKU. The whole
// batch commits or rolls back as a unit; previously committed batches are
// unaffected. On key collision the merge overwrites name, description and
// price and refreshes updated_at only; created_at and is_active are preserved.
func (r *CatalogRepository) MergeBatch(ctx context.Context, rows []models.ProductRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	staged := make([]stagingProduct, 0, len(rows))
	for _, row := range rows {
		staged = append(staged, stagingProduct{
			SKU:         row.SKU,
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
		})
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			CREATE TEMP TABLE staging_products (
				sku         VARCHAR(255),
				name        VARCHAR(500),
				description TEXT,
				price       TEXT
			) ON COMMIT DROP
		`).Error; err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		if err := tx.Table("staging_products").CreateInBatches(staged, 1000).Error; err != nil {
			return fmt.Errorf("failed to load staging table: %w", err)
		}

		result := tx.Exec(`
			INSERT INTO products (sku, name, description, price, is_active, created_at)
			SELECT sku, name, NULLIF(description, ''), NULLIF(price, '')::numeric(10,2), TRUE, NOW()
			FROM staging_products
			ON CONFLICT (sku) DO UPDATE SET
				name        = EXCLUDED.name,
				description = EXCLUDED.description,
				price       = EXCLUDED.price,
				updated_at  = NOW()
		`)
		if result.Error != nil {
			return fmt.Errorf("failed to merge staging rows: %w", result.Error)
		}

		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// Product CRUD Operations

// CreateProduct creates a new product, storing the canonical SKU
func (r *CatalogRepository) CreateProduct(product *models.Product) error {
	product.SKU = models.CanonicalSKU(product.SKU)
	product.CreatedAt = time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.Create(product).Error
}

// GetProductByID retrieves a product by ID
func (r *CatalogRepository) GetProductByID(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU, case-insensitively
func (r *CatalogRepository) GetProductBySKU(sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("sku = ?", models.CanonicalSKU(sku)).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves products with optional search and active filters
func (r *CatalogRepository) GetProducts(skip, limit int, search string, isActive *bool) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.Model(&models.Product{})

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ? OR description ILIKE ?", pattern, pattern, pattern)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Offset(skip).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// UpdateProduct applies a partial update to a product
func (r *CatalogRepository) UpdateProduct(productID uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if req.SKU != nil {
		updates["sku"] = models.CanonicalSKU(*req.SKU)
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	result := r.db.Model(&models.Product{}).Where("id = ?", productID).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return r.GetProductByID(productID)
}

// DeleteProduct deletes a product by ID
func (r *CatalogRepository) DeleteProduct(productID uuid.UUID) (bool, error) {
	result := r.db.Where("id = ?", productID).Delete(&models.Product{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAllProducts removes every product and returns the deleted count
func (r *CatalogRepository) DeleteAllProducts() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

// CountProducts returns the total number of products
func (r *CatalogRepository) CountProducts() (int64, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Count(&count).Error
	return count, err
}
