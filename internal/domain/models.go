package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	RoleAdmin      = "ADMIN"
	RoleCashier    = "CASHIER"
	RoleStockClerk = "STOCK_CLERK"
)

const (
	PaymentCash = "Cash"
	PaymentCard = "Card"
	PaymentUPI  = "UPI"
)

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Barcode           string          `json:"barcode"`
	Category          string          `json:"category"`
	SellingPrice      decimal.Decimal `json:"sellingPrice"`
	CostPrice         decimal.Decimal `json:"costPrice"`
	Stock             int             `json:"stock"`
	MinStock          int             `json:"minStock"`
	Unit              string          `json:"unit"`
	GSTRate           decimal.Decimal `json:"gstRate"`
	ManufacturingDate string          `json:"manufacturingDate,omitempty"`
	ExpiryDate        string          `json:"expiryDate,omitempty"`
	Supplier          string          `json:"supplier"`
	BatchNo           string          `json:"batchNo"`
	Section           string          `json:"section"`
	LastUpdated       time.Time       `json:"lastUpdated"`
}

type ProductCreateRequest struct {
	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	Barcode           string           `json:"barcode"`
	Category          string           `json:"category"`
	SellingPrice      decimal.Decimal  `json:"sellingPrice"`
	CostPrice         decimal.Decimal  `json:"costPrice"`
	Stock             int              `json:"stock"`
	MinStock          int              `json:"minStock"`
	Unit              string           `json:"unit"`
	GSTRate           *decimal.Decimal `json:"gstRate,omitempty"`
	ManufacturingDate string           `json:"manufacturingDate"`
	ExpiryDate        string           `json:"expiryDate"`
	Supplier          string           `json:"supplier"`
	BatchNo           string           `json:"batchNo"`
	Section           string           `json:"section"`
}

// ProductUpdateRequest carries a partial edit. Stock is deliberately absent:
// stock only moves through restock and checkout.
type ProductUpdateRequest struct {
	Name              *string          `json:"name,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	Barcode           *string          `json:"barcode,omitempty"`
	Category          *string          `json:"category,omitempty"`
	SellingPrice      *decimal.Decimal `json:"sellingPrice,omitempty"`
	CostPrice         *decimal.Decimal `json:"costPrice,omitempty"`
	MinStock          *int             `json:"minStock,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	GSTRate           *decimal.Decimal `json:"gstRate,omitempty"`
	ManufacturingDate *string          `json:"manufacturingDate,omitempty"`
	ExpiryDate        *string          `json:"expiryDate,omitempty"`
	Supplier          *string          `json:"supplier,omitempty"`
	BatchNo           *string          `json:"batchNo,omitempty"`
	Section           *string          `json:"section,omitempty"`
	ConfirmLoss       bool             `json:"confirmLoss"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type StockAdjustmentRequest struct {
	Delta int `json:"delta"`
}

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items         []CartLine       `json:"items"`
	PaymentMethod string           `json:"paymentMethod"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	CashierID     string           `json:"cashierId,omitempty"`
	CashierName   string           `json:"cashierName,omitempty"`
}

type TransactionItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	GSTRate     decimal.Decimal `json:"gstRate"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type Transaction struct {
	ID            string            `json:"id"`
	InvoiceNo     string            `json:"invoiceNo"`
	Items         []TransactionItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Discount      decimal.Decimal   `json:"discount"`
	GSTAmount     decimal.Decimal   `json:"gstAmount"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod string            `json:"paymentMethod"`
	CustomerPhone string            `json:"customerPhone,omitempty"`
	CashierID     string            `json:"cashierId"`
	CashierName   string            `json:"cashierName"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// SaleDraft is what the service hands to the store for an atomic commit.
// Pricing happens inside the store's critical section, against the
// snapshot it locked.
type SaleDraft struct {
	ID            string
	Lines         []CartLine
	Discount      decimal.Decimal
	PaymentMethod string
	CustomerPhone string
	CashierID     string
	CashierName   string
	InvoiceYear   int
	CreatedAt     time.Time
}

type ActivityLogEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	ActorRole string    `json:"actorRole"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

type Actor struct {
	ID   string
	Name string
	Role string
}
