package sales

import "time"

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentQR     PaymentMethod = "qr"
	PaymentCheque PaymentMethod = "cheque"
	PaymentCredit PaymentMethod = "credit"
)

// Valid reports whether the payment method is accepted.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentQR, PaymentCheque, PaymentCredit:
		return true
	}
	return false
}

// SaleStatus tracks the lifecycle of a sale. Only completed sales are
// created today; refunded and cancelled are reserved for a future returns
// workflow.
type SaleStatus string

const (
	StatusCompleted SaleStatus = "completed"
	StatusRefunded  SaleStatus = "refunded"
	StatusCancelled SaleStatus = "cancelled"
)

// SaleLine is one sold item with its price snapshot.
type SaleLine struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"saleId"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Barcode     string  `json:"barcode,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// Sale is a completed checkout transaction. Discounts and tax are applied as
// absolute amounts; the percent columns are carried for receipts and exports
// and stay zero until percentage pricing is introduced.
type Sale struct {
	ID              int64         `json:"id"`
	BillNumber      string        `json:"billNumber"`
	Subtotal        float64       `json:"subtotal"`
	DiscountPercent float64       `json:"discountPercent"`
	Discount        float64       `json:"discount"`
	TaxPercent      float64       `json:"taxPercent"`
	Tax             float64       `json:"tax"`
	Total           float64       `json:"total"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	CashReceived    float64       `json:"cashReceived,omitempty"`
	ChangeDue       float64       `json:"changeDue,omitempty"`
	CustomerName    string        `json:"customerName,omitempty"`
	Status          SaleStatus    `json:"status"`
	CashierID       int64         `json:"cashierId"`
	CreatedAt       time.Time     `json:"createdAt"`
	Lines           []SaleLine    `json:"lines,omitempty"`
}

// SaleLineInput is one requested line at checkout.
type SaleLineInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// CreateSaleInput describes a checkout request.
type CreateSaleInput struct {
	Lines          []SaleLineInput `json:"lines" validate:"required,min=1,dive"`
	Discount       float64         `json:"discount" validate:"gte=0"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod" validate:"required"`
	CashReceived   float64         `json:"cashReceived" validate:"gte=0"`
	CustomerName   string          `json:"customerName" validate:"omitempty,max=200"`
	CashierID      int64           `json:"-"`
	IdempotencyKey string          `json:"-"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	BillNumber string
	CashierID  int64
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// DailyReport aggregates one day of sales. Bill statistics are zero on days
// with no sales.
type DailyReport struct {
	Date          string             `json:"date"`
	SaleCount     int64              `json:"saleCount"`
	ItemsSold     int64              `json:"itemsSold"`
	GrossSales    float64            `json:"grossSales"`
	DiscountTotal float64            `json:"discountTotal"`
	NetSales      float64            `json:"netSales"`
	AverageBill   float64            `json:"averageBill"`
	MinBill       float64            `json:"minBill"`
	MaxBill       float64            `json:"maxBill"`
	ByPayment     map[string]float64 `json:"byPayment"`
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	Barcode      string  `json:"barcode,omitempty"`
	QuantitySold int64   `json:"quantitySold"`
	Revenue      float64 `json:"revenue"`
	AveragePrice float64 `json:"averagePrice"`
}
