package service

import (
	"context"
	"strings"

	"retailpro/backend/internal/domain"
)

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) GetTransactionByInvoice(ctx context.Context, invoiceNo string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransactionByInvoice(ctx, strings.ToUpper(strings.TrimSpace(invoiceNo)))
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

// ListTransactions returns the ledger oldest first.
func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// RecentTransactions returns at most limit transactions, newest first.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > len(txs) {
		limit = len(txs)
	}
	recent := make([]domain.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, txs[i])
	}
	return recent, nil
}
