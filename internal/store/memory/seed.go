package memory

import (
	"github.com/shopspring/decimal"

	"retailpro/backend/internal/domain"
)

type seedProduct struct {
	id, name, sku, barcode, category string
	selling, cost                    int64
	stock, minStock                  int
	unit                             string
	gst                              int64
	mfg                              string
	expiresIn                        int
	supplier, batch, section         string
}

var seedCatalog = []seedProduct{
	{"P001", "Tata Salt (1kg)", "TS001", "8901234567890", "Groceries", 28, 22, 450, 50, "kg", 5, "2025-06-01", 180, "Tata Consumer", "B2024-001", "Aisle 1"},
	{"P002", "Fortune Sunflower Oil (1L)", "FS001", "8901234567891", "Groceries", 155, 130, 200, 30, "L", 5, "2025-05-15", 25, "Adani Wilmar", "B2024-002", "Aisle 1"},
	{"P003", "Surf Excel Matic (2kg)", "SE001", "8901234567892", "Household", 480, 380, 120, 20, "kg", 18, "2025-04-01", 365, "Hindustan Unilever", "B2024-003", "Aisle 3"},
	{"P004", "Colgate MaxFresh (150g)", "CM001", "8901234567893", "Personal Care", 95, 75, 340, 40, "pcs", 18, "2025-03-01", 300, "Colgate-Palmolive", "B2024-004", "Aisle 2"},
	{"P005", "Amul Butter (500g)", "AB001", "8901234567894", "Dairy", 270, 230, 85, 20, "pcs", 12, "2025-08-01", 45, "Gujarat Co-op", "B2024-005", "Aisle 4"},
	{"P006", "Lays Classic Salted (52g)", "LC001", "8901234567895", "Snacks", 20, 15, 600, 100, "pcs", 12, "2025-07-01", 90, "PepsiCo India", "B2024-006", "Aisle 5"},
	{"P007", "Coca Cola (750ml)", "CC001", "8901234567896", "Beverages", 40, 32, 500, 80, "pcs", 28, "2025-06-15", 120, "Hindustan Coca-Cola", "B2024-007", "Aisle 5"},
	{"P008", "Aashirvaad Atta (5kg)", "AA001", "8901234567897", "Groceries", 295, 250, 200, 30, "kg", 5, "2025-05-01", 180, "ITC Limited", "B2024-008", "Aisle 1"},
	{"P009", "Dettol Handwash (250ml)", "DH001", "8901234567898", "Personal Care", 99, 75, 25, 30, "pcs", 18, "2025-04-01", 5, "Reckitt Benckiser", "B2024-009", "Aisle 2"},
	{"P010", "Maggi Noodles (Pack of 12)", "MN001", "8901234567899", "Snacks", 168, 140, 18, 25, "pcs", 12, "2025-03-01", 150, "Nestle India", "B2024-010", "Aisle 5"},
	{"P011", "Vim Dishwash Bar (300g)", "VD001", "8901234567900", "Household", 32, 24, 380, 50, "pcs", 18, "2025-05-01", 365, "Hindustan Unilever", "B2024-011", "Aisle 3"},
	{"P012", "Mother Dairy Milk (1L)", "MD001", "8901234567901", "Dairy", 66, 56, 180, 40, "L", 5, "2025-09-01", 10, "Mother Dairy", "B2024-012", "Aisle 4"},
	{"P013", "McCain French Fries (450g)", "MF001", "8901234567902", "Frozen Foods", 199, 155, 65, 15, "pcs", 12, "2025-04-01", 200, "McCain Foods", "B2024-013", "Aisle 6"},
	{"P014", "Red Bull Energy Drink (250ml)", "RB001", "8901234567903", "Beverages", 115, 90, 200, 30, "pcs", 28, "2025-06-01", 365, "Red Bull India", "B2024-014", "Aisle 5"},
	{"P015", "Dove Shampoo (340ml)", "DS001", "8901234567904", "Personal Care", 320, 260, 90, 20, "pcs", 18, "2025-05-01", 400, "Hindustan Unilever", "B2024-015", "Aisle 2"},
	{"P016", "Amul Taza Milk 500ml", "AM001", "8901234567905", "Dairy", 25, 20, 5, 20, "pcs", 5, "2025-09-10", 3, "Gujarat Co-op", "B2024-016", "Aisle 4"},
}

// NewSeeded returns a store preloaded with the demo catalog. Expiry dates
// are relative to now so the dashboard always has something expiring.
func NewSeeded() *Store {
	s := New()
	now := s.now()
	for _, p := range seedCatalog {
		product := domain.Product{
			ID:                p.id,
			Name:              p.name,
			SKU:               p.sku,
			Barcode:           p.barcode,
			Category:          p.category,
			SellingPrice:      decimal.NewFromInt(p.selling),
			CostPrice:         decimal.NewFromInt(p.cost),
			Stock:             p.stock,
			MinStock:          p.minStock,
			Unit:              p.unit,
			GSTRate:           decimal.NewFromInt(p.gst),
			ManufacturingDate: p.mfg,
			ExpiryDate:        now.AddDate(0, 0, p.expiresIn).Format(domain.DateLayout),
			Supplier:          p.supplier,
			BatchNo:           p.batch,
			Section:           p.section,
			LastUpdated:       now,
		}
		s.products[product.ID] = product
		s.productOrder = append(s.productOrder, product.ID)
	}
	return s
}
