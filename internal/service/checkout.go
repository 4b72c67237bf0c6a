package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retailpro/backend/internal/checkout"
	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/logger"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/xid"
)

// Checkout turns a cart into a committed sale. Stock validation, pricing,
// stock decrement and the ledger append happen in one atomic store call;
// a store that reports a concurrency conflict gets the whole call replayed.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Transaction, error) {
	started := s.now()
	tx, err := s.checkout(ctx, req)
	s.metrics.ObserveCheckout(checkoutOutcome(err), s.now().Sub(started))
	if err != nil {
		return domain.Transaction{}, err
	}

	units := 0
	for _, item := range tx.Items {
		units += item.Quantity
	}
	s.metrics.StockMoved("out", units)

	s.activity.Record(ctx, domain.Actor{ID: tx.CashierID, Name: tx.CashierName, Role: cashierRole(ctx)},
		checkout.Summary(tx.Items),
		fmt.Sprintf("Invoice %s - Total: Rs.%s", tx.InvoiceNo, tx.Total.StringFixed(2)))
	return tx, nil
}

func (s *Service) checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Transaction, error) {
	if err := checkout.ValidateRequest(req); err != nil {
		return domain.Transaction{}, err
	}
	method, err := checkout.NormalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return domain.Transaction{}, err
	}

	discount := decimal.Zero
	if req.Discount != nil {
		discount = *req.Discount
	}
	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, domain.CartLine{ProductID: strings.TrimSpace(line.ProductID), Quantity: line.Quantity})
	}

	cashierID, cashierName := s.cashier(ctx, req)
	createdAt := s.now().UTC()
	draft := domain.SaleDraft{
		ID:            xid.New("tx"),
		Lines:         lines,
		Discount:      discount,
		PaymentMethod: method,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CashierID:     cashierID,
		CashierName:   cashierName,
		InvoiceYear:   createdAt.In(s.loc).Year(),
		CreatedAt:     createdAt,
	}

	zl := logger.FromContext(ctx, s.logger)
	for attempt := 0; ; attempt++ {
		tx, err := s.repo.CommitSale(ctx, draft)
		if err == nil {
			zl.Info("sale committed",
				zap.String("invoice_no", tx.InvoiceNo),
				zap.String("total", tx.Total.StringFixed(2)),
				zap.Int("lines", len(tx.Items)),
				zap.Int("attempt", attempt+1))
			return *tx, nil
		}
		if !errors.Is(err, store.ErrConcurrencyConflict) || attempt >= s.maxRetries || ctx.Err() != nil {
			return domain.Transaction{}, err
		}
		s.metrics.CheckoutRetried()
		zl.Debug("retrying checkout after conflict", zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

// cashier resolves who the sale is attributed to. An authenticated cashier
// always sells as themselves; other callers may name the cashier in the
// request, then fall back to their own identity, then to SYSTEM.
func (s *Service) cashier(ctx context.Context, req domain.CheckoutRequest) (string, string) {
	actor, authenticated := ActorFromContext(ctx)
	if authenticated && actor.Role == domain.RoleCashier && actor.ID != "" {
		return actor.ID, defaultString(actor.Name, actor.ID)
	}

	id := strings.TrimSpace(req.CashierID)
	name := strings.TrimSpace(req.CashierName)
	if id == "" && authenticated && actor.ID != "" {
		id = actor.ID
		if name == "" {
			name = actor.Name
		}
	}
	if id == "" {
		return systemActorID, defaultString(name, systemActorName)
	}
	return id, defaultString(name, id)
}

func cashierRole(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Role != "" {
		return actor.Role
	}
	return domain.RoleCashier
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, store.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, store.ErrValidation):
		return "invalid"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
