package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpro/backend/internal/checkout"
	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/xid"
)

const (
	defaultCategory = "Groceries"
	defaultUnit     = "pcs"
)

var maxGSTRate = decimal.NewFromInt(100)

var defaultGSTRate = decimal.NewFromInt(5)

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStockClerk)
	if err != nil {
		return domain.Product{}, err
	}

	gst := defaultGSTRate
	if req.GSTRate != nil {
		gst = *req.GSTRate
	}

	product := domain.Product{
		ID:                xid.New("P"),
		Name:              strings.TrimSpace(req.Name),
		SKU:               strings.TrimSpace(req.SKU),
		Barcode:           strings.TrimSpace(req.Barcode),
		Category:          defaultString(req.Category, defaultCategory),
		SellingPrice:      req.SellingPrice,
		CostPrice:         req.CostPrice,
		Stock:             req.Stock,
		MinStock:          req.MinStock,
		Unit:              defaultString(req.Unit, defaultUnit),
		GSTRate:           gst,
		ManufacturingDate: strings.TrimSpace(req.ManufacturingDate),
		ExpiryDate:        strings.TrimSpace(req.ExpiryDate),
		Supplier:          strings.TrimSpace(req.Supplier),
		BatchNo:           strings.TrimSpace(req.BatchNo),
		Section:           strings.TrimSpace(req.Section),
	}
	if product.Stock < 0 {
		return domain.Product{}, store.Validationf("stock must not be negative")
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.activity.Record(ctx, actor, "Added new product: "+created.Name,
		fmt.Sprintf("Stock: %d %s, Price: Rs.%s", created.Stock, created.Unit, created.SellingPrice.StringFixed(2)))
	s.metrics.StockMoved("in", created.Stock)
	return *created, nil
}

// UpdateProduct merges a partial edit into the stored product. An edit that
// touches either price and leaves the product selling below cost fails with
// store.ErrMarginWarning unless req.ConfirmLoss is set.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStockClerk)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		updated.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Category != nil {
		updated.Category = defaultString(*req.Category, defaultCategory)
	}
	if req.SellingPrice != nil {
		updated.SellingPrice = *req.SellingPrice
	}
	if req.CostPrice != nil {
		updated.CostPrice = *req.CostPrice
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	if req.Unit != nil {
		updated.Unit = defaultString(*req.Unit, defaultUnit)
	}
	if req.GSTRate != nil {
		updated.GSTRate = *req.GSTRate
	}
	if req.ManufacturingDate != nil {
		updated.ManufacturingDate = strings.TrimSpace(*req.ManufacturingDate)
	}
	if req.ExpiryDate != nil {
		updated.ExpiryDate = strings.TrimSpace(*req.ExpiryDate)
	}
	if req.Supplier != nil {
		updated.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.BatchNo != nil {
		updated.BatchNo = strings.TrimSpace(*req.BatchNo)
	}
	if req.Section != nil {
		updated.Section = strings.TrimSpace(*req.Section)
	}

	if err := validateProduct(updated); err != nil {
		return domain.Product{}, err
	}
	pricesTouched := req.SellingPrice != nil || req.CostPrice != nil
	if pricesTouched && !req.ConfirmLoss && updated.SellingPrice.LessThan(updated.CostPrice) {
		return domain.Product{}, fmt.Errorf("%w: selling at Rs.%s against cost Rs.%s",
			store.ErrMarginWarning, updated.SellingPrice.StringFixed(2), updated.CostPrice.StringFixed(2))
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	details := fmt.Sprintf("Price: Rs.%s, Cost: Rs.%s", saved.SellingPrice.StringFixed(2), saved.CostPrice.StringFixed(2))
	if saved.SellingPrice.LessThan(saved.CostPrice) {
		details += " (sold at a loss)"
	}
	s.activity.Record(ctx, actor, "Updated product: "+saved.Name, details)
	return *saved, nil
}

// AdjustStock moves stock by delta in either direction. A delta that would
// take stock below zero fails with store.ErrInsufficientStock and changes
// nothing.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStockClerk)
	if err != nil {
		return domain.Product{}, err
	}
	if delta == 0 {
		return domain.Product{}, store.Validationf("delta must not be zero")
	}
	if delta > checkout.MaxQuantity || delta < -checkout.MaxQuantity {
		return domain.Product{}, store.Validationf("delta must be within +/-%d", checkout.MaxQuantity)
	}

	p, err := s.repo.AdjustStock(ctx, strings.TrimSpace(id), delta)
	if err != nil {
		return domain.Product{}, err
	}

	direction := "in"
	units := delta
	if delta < 0 {
		direction = "out"
		units = -delta
	}
	s.metrics.StockMoved(direction, units)
	s.activity.Record(ctx, actor, fmt.Sprintf("Adjusted Stock: %s (%+d)", p.Name, delta),
		fmt.Sprintf("Stock updated to %d", p.Stock))
	return *p, nil
}

func (s *Service) RestockProduct(ctx context.Context, id string, quantity int) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStockClerk)
	if err != nil {
		return domain.Product{}, err
	}
	if quantity <= 0 || quantity > checkout.MaxQuantity {
		return domain.Product{}, store.Validationf("restock quantity must be between 1 and %d", checkout.MaxQuantity)
	}

	p, err := s.repo.AdjustStock(ctx, strings.TrimSpace(id), quantity)
	if err != nil {
		return domain.Product{}, err
	}

	s.metrics.StockMoved("in", quantity)
	s.activity.Record(ctx, actor, fmt.Sprintf("Updated Stock: %s (+%d)", p.Name, quantity),
		fmt.Sprintf("Stock updated to %d", p.Stock))
	return *p, nil
}

func validateProduct(p domain.Product) error {
	if p.Name == "" {
		return store.Validationf("name is required")
	}
	if p.SellingPrice.IsNegative() || p.CostPrice.IsNegative() {
		return store.Validationf("prices must not be negative")
	}
	if !domain.HasAtMostTwoDecimals(p.SellingPrice) || !domain.HasAtMostTwoDecimals(p.CostPrice) {
		return store.Validationf("prices must have at most 2 decimal places")
	}
	if p.MinStock < 0 {
		return store.Validationf("minStock must not be negative")
	}
	if p.Stock > checkout.MaxQuantity || p.MinStock > checkout.MaxQuantity {
		return store.Validationf("stock and minStock must not exceed %d", checkout.MaxQuantity)
	}
	if p.GSTRate.IsNegative() {
		return store.Validationf("gstRate must not be negative")
	}
	if p.GSTRate.GreaterThan(maxGSTRate) {
		return store.Validationf("gstRate must not exceed %s", maxGSTRate)
	}
	if !domain.HasAtMostTwoDecimals(p.GSTRate) {
		return store.Validationf("gstRate must have at most 2 decimal places")
	}

	var mfg, expiry time.Time
	var err error
	if p.ManufacturingDate != "" {
		if mfg, err = time.Parse(domain.DateLayout, p.ManufacturingDate); err != nil {
			return store.Validationf("manufacturingDate must be YYYY-MM-DD")
		}
	}
	if p.ExpiryDate != "" {
		if expiry, err = time.Parse(domain.DateLayout, p.ExpiryDate); err != nil {
			return store.Validationf("expiryDate must be YYYY-MM-DD")
		}
	}
	if !mfg.IsZero() && !expiry.IsZero() && mfg.After(expiry) {
		return store.Validationf("manufacturingDate must not be after expiryDate")
	}
	return nil
}
