// Package checkout holds the pure parts of turning a cart into a sale:
// request checks, stock validation against a snapshot, pricing and
// invoice numbering. Stores call into it from inside their atomic commit.
package checkout

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/store"
)

// MaxQuantity bounds a single line, a product's combined demand in one cart
// and a single stock movement. It matches the INTEGER stock column.
const MaxQuantity = math.MaxInt32

type Pricing struct {
	Items     []domain.TransactionItem
	Subtotal  decimal.Decimal
	GSTExact  decimal.Decimal
	GSTAmount decimal.Decimal
	Total     decimal.Decimal
}

// NormalizePaymentMethod maps user input onto Cash, Card or UPI.
// An empty method is treated as Cash.
func NormalizePaymentMethod(method string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", "cash":
		return domain.PaymentCash, nil
	case "card":
		return domain.PaymentCard, nil
	case "upi":
		return domain.PaymentUPI, nil
	default:
		return "", store.Validationf("unsupported payment method %q", method)
	}
}

// ValidateRequest checks the shape of a checkout request before any store
// access. An empty cart is reported ahead of everything else.
func ValidateRequest(req domain.CheckoutRequest) error {
	if len(req.Items) == 0 {
		return store.ErrEmptyCart
	}
	combined := make(map[string]int, len(req.Items))
	for i, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			return store.Validationf("item %d has no productId", i+1)
		}
		if line.Quantity < 1 {
			return store.Validationf("quantity must be positive for %s", line.ProductID)
		}
		if line.Quantity > MaxQuantity-combined[line.ProductID] {
			return store.Validationf("quantity for %s must not exceed %d", line.ProductID, MaxQuantity)
		}
		combined[line.ProductID] += line.Quantity
	}
	if req.Discount != nil {
		if req.Discount.IsNegative() {
			return store.Validationf("discount must not be negative")
		}
		if !domain.HasAtMostTwoDecimals(*req.Discount) {
			return store.Validationf("discount must have at most 2 decimal places")
		}
	}
	if _, err := NormalizePaymentMethod(req.PaymentMethod); err != nil {
		return err
	}
	return nil
}

// Demand sums requested quantity per product across all lines. Callers run
// Validate first, which keeps every sum within MaxQuantity.
func Demand(lines []domain.CartLine) map[string]int {
	demand := make(map[string]int, len(lines))
	for _, line := range lines {
		demand[line.ProductID] += line.Quantity
	}
	return demand
}

// ProductIDs returns the distinct product ids of a cart in sorted order,
// which is also the lock order used by row-locking stores.
func ProductIDs(lines []domain.CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks every line against one snapshot of the catalog.
// Repeated lines for the same product are checked against their combined
// quantity, so two lines of 3 against a stock of 5 fail.
func Validate(lines []domain.CartLine, products map[string]domain.Product) error {
	demand := make(map[string]int, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return store.ProductNotFound(line.ProductID)
		}
		if line.Quantity < 1 || line.Quantity > MaxQuantity-demand[line.ProductID] {
			return store.Validationf("quantity for %s must be between 1 and %d", line.ProductID, MaxQuantity)
		}
		demand[line.ProductID] += line.Quantity
		if demand[line.ProductID] > product.Stock {
			return &store.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   demand[line.ProductID],
			}
		}
	}
	return nil
}

// Price snapshots unit price and GST rate per line. GST is summed at full
// precision; only the stored gstAmount and the final total are rounded.
func Price(lines []domain.CartLine, products map[string]domain.Product, discount decimal.Decimal) Pricing {
	items := make([]domain.TransactionItem, 0, len(lines))
	subtotal := decimal.Zero
	gst := decimal.Zero
	for _, line := range lines {
		product := products[line.ProductID]
		lineTotal := product.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, domain.TransactionItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.SellingPrice,
			GSTRate:     product.GSTRate,
			LineTotal:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
		gst = gst.Add(domain.PercentOf(lineTotal, product.GSTRate))
	}

	return Pricing{
		Items:     items,
		Subtotal:  subtotal,
		GSTExact:  gst,
		GSTAmount: domain.Round2(gst),
		Total:     domain.Round2(subtotal.Sub(discount).Add(gst)),
	}
}

// BuildTransaction assembles the ledger record for a priced draft.
func BuildTransaction(draft domain.SaleDraft, pricing Pricing, seq int) domain.Transaction {
	return domain.Transaction{
		ID:            draft.ID,
		InvoiceNo:     FormatInvoice(draft.InvoiceYear, seq),
		Items:         pricing.Items,
		Subtotal:      pricing.Subtotal,
		Discount:      draft.Discount,
		GSTAmount:     pricing.GSTAmount,
		Total:         pricing.Total,
		PaymentMethod: draft.PaymentMethod,
		CustomerPhone: draft.CustomerPhone,
		CashierID:     draft.CashierID,
		CashierName:   draft.CashierName,
		CreatedAt:     draft.CreatedAt,
	}
}

func FormatInvoice(year int, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

// Summary renders the activity line for a sale, e.g. "Sold 2x Tata Salt (1kg), 1x Amul Butter".
func Summary(items []domain.TransactionItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
	}
	return "Sold " + strings.Join(parts, ", ")
}
