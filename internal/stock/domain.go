package stock

import (
	"time"
)

// Reason classifies a ledger movement.
type Reason string

const (
	ReasonRestock      Reason = "restock"
	ReasonDamage       Reason = "damage"
	ReasonExpired      Reason = "expired"
	ReasonManualAdjust Reason = "manual_adjust"
	ReasonPurchase     Reason = "purchase"
	ReasonReturn       Reason = "return"
	ReasonSale         Reason = "sale"
)

// Valid reports whether the reason is one of the known movement reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonRestock, ReasonDamage, ReasonExpired, ReasonManualAdjust, ReasonPurchase, ReasonReturn, ReasonSale:
		return true
	}
	return false
}

// adjustmentReasons are the reasons an operator may use on the manual
// adjustment endpoint. Purchase and sale entries are written by their own
// engines.
var adjustmentReasons = map[Reason]bool{
	ReasonRestock:      true,
	ReasonDamage:       true,
	ReasonExpired:      true,
	ReasonManualAdjust: true,
	ReasonReturn:       true,
}

// LedgerEntry is one append-only stock movement. Product name and barcode are
// denormalised at write time so history survives product renames. The
// before/after pair satisfies quantityAfter = quantityBefore + delta.
type LedgerEntry struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"productId"`
	ProductName    string    `json:"productName"`
	Barcode        string    `json:"barcode,omitempty"`
	Delta          int64     `json:"delta"`
	QuantityBefore int64     `json:"quantityBefore"`
	QuantityAfter  int64     `json:"quantityAfter"`
	Reason         Reason    `json:"reason"`
	RefDoc         string    `json:"refDoc,omitempty"`
	Note           string    `json:"note,omitempty"`
	CostImpact     float64   `json:"costImpact,omitempty"`
	ActorID        int64     `json:"actorId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProductState is the snapshot of a product row taken under lock inside a
// transaction.
type ProductState struct {
	ID       int64
	Name     string
	Barcode  string
	Price    float64
	Cost     float64
	Quantity int64
	Active   bool
}

// ExpiringProduct is an active product whose expiry date falls within the
// queried window.
type ExpiringProduct struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Barcode    string    `json:"barcode,omitempty"`
	Quantity   int64     `json:"quantity"`
	ExpiryDate time.Time `json:"expiryDate"`
}

// InventoryValue summarises the stock holding of active products at cost.
type InventoryValue struct {
	Products   int64   `json:"products"`
	Units      int64   `json:"units"`
	TotalCost  float64 `json:"totalCost"`
	TotalPrice float64 `json:"totalPrice"`
}

// AdjustInput describes a manual stock adjustment.
type AdjustInput struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Delta     int64  `json:"delta" validate:"required"`
	Reason    Reason `json:"reason" validate:"required"`
	Note      string `json:"note" validate:"omitempty,max=500"`
	ActorID   int64  `json:"-"`
}

// PaymentStatus tracks how much of a supplier invoice has been settled.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether the payment status is known.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// DeliveryStatus tracks how much of an ordered purchase has arrived.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryPartial   DeliveryStatus = "partial"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// Valid reports whether the delivery status is known.
func (d DeliveryStatus) Valid() bool {
	switch d {
	case DeliveryPending, DeliveryPartial, DeliveryDelivered:
		return true
	}
	return false
}

// PurchaseLineInput is one received line on a supplier invoice.
type PurchaseLineInput struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitCost  float64 `json:"unitCost" validate:"required,gt=0"`
}

// PurchaseInput describes goods received from a supplier. Payment status
// defaults to pending; delivery is recorded as delivered because a receipt
// puts the goods on the shelf immediately.
type PurchaseInput struct {
	Supplier         string              `json:"supplier" validate:"required,min=1,max=200"`
	InvoiceNumber    string              `json:"invoiceNumber" validate:"omitempty,max=64"`
	Note             string              `json:"note" validate:"omitempty,max=500"`
	Lines            []PurchaseLineInput `json:"lines" validate:"required,min=1,dive"`
	PaymentStatus    PaymentStatus       `json:"paymentStatus" validate:"omitempty,oneof=pending partial paid"`
	ExpectedDelivery *time.Time          `json:"expectedDelivery"`
	ActorID          int64               `json:"-"`
	IdempotencyKey   string              `json:"-"`
}

// PurchaseLine is a stored invoice line with its denormalised product
// name and barcode.
type PurchaseLine struct {
	ID          int64   `json:"id"`
	PurchaseID  int64   `json:"purchaseId"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Barcode     string  `json:"barcode,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitCost    float64 `json:"unitCost"`
	LineTotal   float64 `json:"lineTotal"`
}

// Purchase is a stored supplier invoice.
type Purchase struct {
	ID               int64          `json:"id"`
	InvoiceNumber    string         `json:"invoiceNumber"`
	Supplier         string         `json:"supplier"`
	Note             string         `json:"note,omitempty"`
	Subtotal         float64        `json:"subtotal"`
	Tax              float64        `json:"tax"`
	Total            float64        `json:"total"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus   DeliveryStatus `json:"deliveryStatus"`
	ExpectedDelivery *time.Time     `json:"expectedDelivery,omitempty"`
	DeliveredDate    *time.Time     `json:"deliveredDate,omitempty"`
	CreatedBy        int64          `json:"createdBy"`
	CreatedAt        time.Time      `json:"createdAt"`
	Lines            []PurchaseLine `json:"lines,omitempty"`
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	ProductID int64
	Reason    Reason
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}

// PurchaseFilter narrows purchase listings.
type PurchaseFilter struct {
	Supplier string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}
