package dto

// CreateProductRequest is the body for POST /api/v1/products.
type CreateProductRequest struct {
	SKU         string   `json:"sku" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateProductRequest is the body for PUT /api/v1/products/:id.
type UpdateProductRequest struct {
	SKU         string   `json:"sku" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

// ListProductsRequest carries the list query parameters.
type ListProductsRequest struct {
	SKU      string `form:"sku"`
	Name     string `form:"name"`
	Search   string `form:"search"`
	IsActive *bool  `form:"is_active"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ProductDTO is the wire shape of one product.
type ProductDTO struct {
	ID          int64    `json:"id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ListProductsResponse is the paginated product list.
type ListProductsResponse struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ProductStatsResponse is the catalog stats summary.
type ProductStatsResponse struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}
