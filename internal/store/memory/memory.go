package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"retailpro/backend/internal/checkout"
	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/xid"
)

// Store keeps catalog, ledger and activity log in process memory. One
// RWMutex guards everything, so a sale's validate and commit run as a
// single critical section.
type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	productOrder []string
	transactions []domain.Transaction
	txByID       map[string]int
	txByInvoice  map[string]int
	activity     []domain.ActivityLogEntry
	now          func() time.Time
}

func New() *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		productOrder: make([]string, 0, 64),
		transactions: make([]domain.Transaction, 0, 256),
		txByID:       make(map[string]int),
		txByInvoice:  make(map[string]int),
		activity:     make([]domain.ActivityLogEntry, 0, 128),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock swaps the time source used for lastUpdated stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ProductNotFound(id)
	}
	return &product, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.productsLocked(), nil
}

func (s *Store) productsLocked() []domain.Product {
	products := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		products = append(products, s.products[id])
	}
	return products
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("P")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.Validationf("product %s already exists", product.ID)
	}
	if product.Stock < 0 {
		return nil, store.Validationf("stock must not be negative")
	}
	product.LastUpdated = s.now()
	s.products[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ProductNotFound(product.ID)
	}
	product.Stock = existing.Stock
	product.LastUpdated = s.now()
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.adjustLocked(id, delta)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) adjustLocked(id string, delta int) (domain.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, store.ProductNotFound(id)
	}
	if product.Stock+delta < 0 {
		return domain.Product{}, &store.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   -delta,
		}
	}
	if delta > 0 && product.Stock > checkout.MaxQuantity-delta {
		return domain.Product{}, store.Validationf("stock for %s would exceed %d", product.ID, checkout.MaxQuantity)
	}
	product.Stock += delta
	product.LastUpdated = s.now()
	s.products[id] = product
	return product, nil
}

func (s *Store) CommitSale(_ context.Context, draft domain.SaleDraft) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(draft.Lines) == 0 {
		return nil, store.ErrEmptyCart
	}
	if draft.ID == "" {
		draft.ID = xid.New("tx")
	}
	if _, exists := s.txByID[draft.ID]; exists {
		return nil, fmt.Errorf("transaction %s already recorded", draft.ID)
	}

	ids := checkout.ProductIDs(draft.Lines)
	snapshot := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			snapshot[id] = product
		}
	}
	if err := checkout.Validate(draft.Lines, snapshot); err != nil {
		return nil, err
	}
	pricing := checkout.Price(draft.Lines, snapshot, draft.Discount)

	demand := checkout.Demand(draft.Lines)
	applied := make([]domain.Product, 0, len(ids))
	rollback := func() {
		for _, previous := range applied {
			s.products[previous.ID] = previous
		}
	}
	for _, id := range ids {
		previous := s.products[id]
		if _, err := s.adjustLocked(id, -demand[id]); err != nil {
			rollback()
			return nil, err
		}
		applied = append(applied, previous)
	}

	tx := checkout.BuildTransaction(draft, pricing, len(s.transactions)+1)
	if _, taken := s.txByInvoice[tx.InvoiceNo]; taken {
		rollback()
		return nil, fmt.Errorf("invoice %s already issued: %w", tx.InvoiceNo, store.ErrConcurrencyConflict)
	}

	s.transactions = append(s.transactions, cloneTransaction(tx))
	s.txByID[tx.ID] = len(s.transactions) - 1
	s.txByInvoice[tx.InvoiceNo] = len(s.transactions) - 1
	return &tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.txByID[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s %w", id, store.ErrNotFound)
	}
	tx := cloneTransaction(s.transactions[idx])
	return &tx, nil
}

func (s *Store) GetTransactionByInvoice(_ context.Context, invoiceNo string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.txByInvoice[invoiceNo]
	if !ok {
		return nil, fmt.Errorf("invoice %s %w", invoiceNo, store.ErrNotFound)
	}
	tx := cloneTransaction(s.transactions[idx])
	return &tx, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.transactionsLocked(), nil
}

func (s *Store) transactionsLocked() []domain.Transaction {
	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		result = append(result, cloneTransaction(tx))
	}
	slices.SortStableFunc(result, func(a, b domain.Transaction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result
}

func (s *Store) AppendActivity(_ context.Context, entry domain.ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.activity = append(s.activity, entry)
	return nil
}

func (s *Store) ListActivity(_ context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ActivityLogEntry, 0, len(s.activity))
	for i := len(s.activity) - 1; i >= 0; i-- {
		result = append(result, s.activity[i])
	}
	slices.SortStableFunc(result, func(a, b domain.ActivityLogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) Snapshot(_ context.Context) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Snapshot{
		Products:     s.productsLocked(),
		Transactions: s.transactionsLocked(),
	}, nil
}

func (s *Store) Close() error {
	return nil
}

func cloneTransaction(src domain.Transaction) domain.Transaction {
	dup := src
	dup.Items = make([]domain.TransactionItem, len(src.Items))
	copy(dup.Items, src.Items)
	return dup
}
