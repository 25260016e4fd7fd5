package model

import "time"

// Product is the catalog row as stored. SKU is kept normalized (trimmed,
// lower-cased) and is unique under that normalization.
type Product struct {
	ID          int64     `db:"id"`
	SKU         string    `db:"sku"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       *float64  `db:"price"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
