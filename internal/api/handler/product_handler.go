package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/catalogtools/importer/internal/api/dto"
	"github.com/catalogtools/importer/internal/api/model"
	"github.com/catalogtools/importer/internal/api/storage"
	"github.com/catalogtools/importer/internal/importer/domain"
	"github.com/gin-gonic/gin"
)

// ListProducts handles GET /api/v1/products
// Lists products with filtering, search, and cursor pagination.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeProductCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.ProductFilter{
		SKU:      req.SKU,
		Name:     req.Name,
		Search:   req.Search,
		IsActive: req.IsActive,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	products, err := h.storage.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list products",
		})
		return
	}

	hasMore := len(products) > req.PageSize
	if hasMore {
		products = products[:req.PageSize]
	}

	productResponse := make([]dto.ProductDTO, len(products))
	for i := range products {
		productResponse[i] = toProductDTO(&products[i])
	}

	var nextCursor string
	if hasMore {
		last := products[len(products)-1]
		nextCursor = EncodeProductCursor(&storage.ProductCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListProductsResponse{
		Products:   productResponse,
		NextCursor: nextCursor,
	})
}

// GetProduct handles GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := h.storage.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		h.logger.Error("Failed to get product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get product",
		})
		return
	}

	c.JSON(http.StatusOK, toProductDTO(product))
}

// CreateProduct handles POST /api/v1/products
// The SKU is normalized (trimmed, lower-cased) before storage.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sku := normalizeSKU(req.SKU)
	if sku == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sku must not be empty",
		})
		return
	}

	product := &model.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       sanitizePrice(req.Price),
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	created, err := h.storage.CreateProduct(c.Request.Context(), product)
	if err != nil {
		if errors.Is(err, storage.ErrSKUConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "A product with this SKU already exists",
			})
			return
		}
		h.logger.Error("Failed to create product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create product",
		})
		return
	}

	c.JSON(http.StatusCreated, toProductDTO(created))
}

// UpdateProduct handles PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sku := normalizeSKU(req.SKU)
	if sku == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sku must not be empty",
		})
		return
	}

	product := &model.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       sanitizePrice(req.Price),
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	updated, err := h.storage.UpdateProduct(c.Request.Context(), id, product)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
		case errors.Is(err, storage.ErrSKUConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error": "A product with this SKU already exists",
			})
		default:
			h.logger.Error("Failed to update product", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update product",
			})
		}
		return
	}

	c.JSON(http.StatusOK, toProductDTO(updated))
}

// DeleteProduct handles DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := h.storage.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		h.logger.Error("Failed to delete product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete product",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats handles GET /api/v1/products/stats
func (h *ProductHandler) GetStats(c *gin.Context) {
	stats, err := h.storage.GetProductStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get product stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get product stats",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ProductStatsResponse{
		Total:    stats.Total,
		Active:   stats.Active,
		Inactive: stats.Inactive,
	})
}

// BulkDelete handles DELETE /api/v1/products
// Queues the deletion of every product and responds 202.
func (h *ProductHandler) BulkDelete(c *gin.Context) {
	msg := domain.JobMessage{JobType: domain.JobTypeBulkDelete}
	if err := h.runner.Dispatch(c.Request.Context(), msg); err != nil {
		h.logger.Error("Failed to dispatch bulk delete", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to schedule bulk delete",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Bulk delete initiated. All products will be deleted.",
	})
}

func parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func normalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}

// sanitizePrice drops negative prices the same way ingestion does.
func sanitizePrice(price *float64) *float64 {
	if price != nil && *price < 0 {
		return nil
	}
	return price
}

func toProductDTO(p *model.Product) dto.ProductDTO {
	return dto.ProductDTO{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
