package catalog

import "time"

// Product is a sellable item. Quantity is the on-hand stock count and is only
// ever mutated through the stock and sales engines. ReorderLevel is the
// per-product restock threshold shown on the product card; the low-stock
// report uses the store-wide threshold.
type Product struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Barcode        string     `json:"barcode"`
	Category       string     `json:"category,omitempty"`
	Price          float64    `json:"price"`
	Cost           float64    `json:"cost"`
	WholesalePrice float64    `json:"wholesalePrice,omitempty"`
	Quantity       int64      `json:"quantity"`
	ReorderLevel   int64      `json:"reorderLevel"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name           string     `json:"name" validate:"required,min=1,max=200"`
	Barcode        string     `json:"barcode" validate:"required,max=64"`
	Category       string     `json:"category" validate:"omitempty,max=100"`
	Price          float64    `json:"price" validate:"gte=0"`
	Cost           float64    `json:"cost" validate:"gte=0"`
	WholesalePrice float64    `json:"wholesalePrice" validate:"gte=0"`
	Quantity       int64      `json:"quantity" validate:"gte=0"`
	ReorderLevel   int64      `json:"reorderLevel" validate:"gte=0"`
	ExpiryDate     *time.Time `json:"expiryDate"`
}

// UpdateProductInput carries updatable fields. Quantity is deliberately
// absent: stock changes go through adjustments, purchases and sales.
type UpdateProductInput struct {
	Name           string     `json:"name" validate:"required,min=1,max=200"`
	Barcode        string     `json:"barcode" validate:"required,max=64"`
	Category       string     `json:"category" validate:"omitempty,max=100"`
	Price          float64    `json:"price" validate:"gte=0"`
	Cost           float64    `json:"cost" validate:"gte=0"`
	WholesalePrice float64    `json:"wholesalePrice" validate:"gte=0"`
	ReorderLevel   int64      `json:"reorderLevel" validate:"gte=0"`
	ExpiryDate     *time.Time `json:"expiryDate"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search        string
	Category      string
	IncludeHidden bool
	LowStockBelow int64
	Page          int
	PerPage       int
}
