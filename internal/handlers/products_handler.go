package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

type ProductsHandler struct {
	repo *repository.CatalogRepository
	cfg  *config.Config
}

func NewProductsHandler(repo *repository.CatalogRepository, cfg *config.Config) *ProductsHandler {
	return &ProductsHandler{repo: repo, cfg: cfg}
}

// CreateProduct creates a new product
// POST /api/v1/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
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

	sku := models.CanonicalSKU(req.SKU)
	if sku == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "SKU cannot be empty",
			},
		})
		return
	}

	if existing, err := h.repo.GetProductBySKU(sku); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to check existing product",
			},
		})
		return
	} else if existing != nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_SKU",
				Message: fmt.Sprintf("A product with SKU %s already exists", sku),
			},
		})
		return
	}

	product := models.Product{
		SKU:         sku,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.repo.CreateProduct(&product); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to create product",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProducts lists products with pagination, search and active filtering
// GET /api/v1/products
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.DefaultPageSize)))
	if err != nil || limit <= 0 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	var isActive *bool
	if raw := c.Query("isActive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "isActive must be true or false",
				},
			})
			return
		}
		isActive = &parsed
	}

	products, total, err := h.repo.GetProducts(skip, limit, c.Query("search"), isActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to fetch products",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Items: products,
	})
}

// GetProduct fetches a single product by ID
// GET /api/v1/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	productID, ok := h.parseID(c)
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to fetch product",
			},
		})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Product not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct applies a partial update to a product
// PATCH /api/v1/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	productID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req models.UpdateProductRequest
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

	if req.SKU != nil {
		canonical := models.CanonicalSKU(*req.SKU)
		if canonical == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "SKU cannot be empty",
				},
			})
			return
		}
		if existing, err := h.repo.GetProductBySKU(canonical); err == nil && existing != nil && existing.ID != productID {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "DUPLICATE_SKU",
					Message: fmt.Sprintf("A product with SKU %s already exists", canonical),
				},
			})
			return
		}
		req.SKU = &canonical
	}

	product, err := h.repo.UpdateProduct(productID, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to update product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a single product
// DELETE /api/v1/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	productID, ok := h.parseID(c)
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteProduct(productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to delete product",
			},
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Product not found",
			},
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteAllProducts clears the catalog
// DELETE /api/v1/products
func (h *ProductsHandler) DeleteAllProducts(c *gin.Context) {
	deleted, err := h.repo.DeleteAllProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DATABASE_ERROR",
				Message: "Failed to delete products",
			},
		})
		return
	}

	message := fmt.Sprintf("Deleted %d products", deleted)
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: &message,
	})
}

func (h *ProductsHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID format",
			},
		})
		return uuid.Nil, false
	}
	return productID, true
}
