package store

import (
	"context"
	"errors"
	"fmt"

	"retailpro/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrEmptyCart           = errors.New("no items in cart")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMarginWarning       = errors.New("selling price is below cost price")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)

// InsufficientStockError names the product and what was left when the
// request could not be served. It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Validationf wraps ErrValidation with a caller-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func ProductNotFound(id string) error {
	return fmt.Errorf("product %s %w", id, ErrNotFound)
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// UpdateProduct replaces every field except stock, which only moves
	// through AdjustStock and CommitSale.
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
}

type Ledger interface {
	// CommitSale validates, prices and records a sale in one atomic step.
	CommitSale(ctx context.Context, draft domain.SaleDraft) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetTransactionByInvoice(ctx context.Context, invoiceNo string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

type ActivityLog interface {
	AppendActivity(ctx context.Context, entry domain.ActivityLogEntry) error
	ListActivity(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error)
}

// Snapshot is a consistent view of catalog and ledger for read-side work.
type Snapshot struct {
	Products     []domain.Product
	Transactions []domain.Transaction
}

type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type Repository interface {
	Catalog
	Ledger
	ActivityLog
	Snapshotter
}
