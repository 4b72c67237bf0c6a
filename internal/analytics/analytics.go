// Package analytics derives dashboard and report figures from a snapshot of
// the catalog and the ledger. Nothing here writes; every call recomputes
// from scratch.
//
// Profit is revenue minus quantity × the product's current cost price, not
// the cost at the time of sale, so historical profit moves when costs are
// edited.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/store"
)

const (
	expiryWindowDays = 30
	trendDays        = 7
	topProductLimit  = 10
	reorderFactor    = 3
)

type Aggregator struct {
	source store.Snapshotter
	loc    *time.Location
	now    func() time.Time
}

// New returns an aggregator that buckets days in loc (UTC when nil).
func New(source store.Snapshotter, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{source: source, loc: loc, now: time.Now}
}

func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func (a *Aggregator) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	snap, err := a.source.Snapshot(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return ComputeDashboard(snap, a.now(), a.loc), nil
}

func (a *Aggregator) Report(ctx context.Context) (domain.Report, error) {
	snap, err := a.source.Snapshot(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	return ComputeReport(snap), nil
}

type costBook map[string]decimal.Decimal

func newCostBook(products []domain.Product) costBook {
	book := make(costBook, len(products))
	for _, p := range products {
		book[p.ID] = p.CostPrice
	}
	return book
}

// cost prices a transaction's items at current cost. Items whose product
// no longer resolves contribute nothing.
func (b costBook) cost(tx domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, item := range tx.Items {
		if price, ok := b[item.ProductID]; ok {
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return total
}

func ComputeDashboard(snap store.Snapshot, now time.Time, loc *time.Location) domain.DashboardStats {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := now.Format(domain.DateLayout)
	costs := newCostBook(snap.Products)
	categories := make(map[string]string, len(snap.Products))
	for _, p := range snap.Products {
		categories[p.ID] = p.Category
	}

	stats := domain.DashboardStats{
		TotalTransactions: len(snap.Transactions),
		TotalProducts:     len(snap.Products),
		CategoryRevenue:   map[string]decimal.Decimal{},
		PaymentMethods:    map[string]domain.PaymentSummary{},
	}

	revenue, todayRevenue, totalCost, totalGST := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	dayRevenue := make(map[string]decimal.Decimal, trendDays)
	dayCost := make(map[string]decimal.Decimal, trendDays)
	for _, tx := range snap.Transactions {
		day := tx.CreatedAt.In(loc).Format(domain.DateLayout)
		txCost := costs.cost(tx)

		revenue = revenue.Add(tx.Total)
		totalCost = totalCost.Add(txCost)
		totalGST = totalGST.Add(tx.GSTAmount)
		if day == today {
			todayRevenue = todayRevenue.Add(tx.Total)
			stats.TodayTransactions++
		}
		dayRevenue[day] = dayRevenue[day].Add(tx.Total)
		dayCost[day] = dayCost[day].Add(txCost)

		for _, item := range tx.Items {
			if category, ok := categories[item.ProductID]; ok {
				stats.CategoryRevenue[category] = stats.CategoryRevenue[category].Add(item.LineTotal)
			}
		}
		summary := stats.PaymentMethods[tx.PaymentMethod]
		summary.Count++
		summary.Total = summary.Total.Add(tx.Total)
		stats.PaymentMethods[tx.PaymentMethod] = summary
	}

	stats.TotalRevenue = domain.Round2(revenue)
	stats.TodayRevenue = domain.Round2(todayRevenue)
	stats.NetProfit = domain.Round2(revenue.Sub(totalCost))
	stats.AvgTransaction = average(revenue, len(snap.Transactions))
	stats.TotalGST = domain.Round2(totalGST)
	for category, amount := range stats.CategoryRevenue {
		stats.CategoryRevenue[category] = domain.Round2(amount)
	}
	for method, summary := range stats.PaymentMethods {
		summary.Total = domain.Round2(summary.Total)
		stats.PaymentMethods[method] = summary
	}

	stats.Last7Days = make([]domain.DailyTrend, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(domain.DateLayout)
		stats.Last7Days = append(stats.Last7Days, domain.DailyTrend{
			Date:    day,
			Revenue: domain.Round2(dayRevenue[day]),
			Profit:  domain.Round2(dayRevenue[day].Sub(dayCost[day])),
		})
	}

	inventory := decimal.Zero
	for _, p := range snap.Products {
		inventory = inventory.Add(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	stats.InventoryValue = domain.Round2(inventory)

	stats.LowStockProducts = LowStock(snap.Products)
	stats.ExpiringProducts = Expiring(snap.Products, now, loc)
	stats.LowStockCount = len(stats.LowStockProducts)
	stats.ExpiringCount = len(stats.ExpiringProducts)
	return stats
}

// LowStock lists products at or under their minimum, zero stock included.
func LowStock(products []domain.Product) []domain.LowStockAlert {
	alerts := make([]domain.LowStockAlert, 0)
	for _, p := range products {
		if p.Stock <= p.MinStock {
			alerts = append(alerts, domain.LowStockAlert{ID: p.ID, Name: p.Name, Stock: p.Stock, MinStock: p.MinStock})
		}
	}
	return alerts
}

// Expiring lists products whose expiry date is between 1 and 30 days
// away. Days are counted by rounding the remaining time up, with the expiry
// date taken as midnight in loc.
func Expiring(products []domain.Product, now time.Time, loc *time.Location) []domain.ExpiryAlert {
	if loc == nil {
		loc = time.UTC
	}
	alerts := make([]domain.ExpiryAlert, 0)
	for _, p := range products {
		if p.ExpiryDate == "" {
			continue
		}
		expiry, err := time.ParseInLocation(domain.DateLayout, p.ExpiryDate, loc)
		if err != nil {
			continue
		}
		remaining := expiry.Sub(now)
		if remaining <= 0 {
			continue
		}
		daysLeft := int(math.Ceil(remaining.Hours() / 24))
		if daysLeft > expiryWindowDays {
			continue
		}
		alerts = append(alerts, domain.ExpiryAlert{
			ID:            p.ID,
			Name:          p.Name,
			ExpiryDate:    p.ExpiryDate,
			DaysLeft:      daysLeft,
			Stock:         p.Stock,
			CostPrice:     p.CostPrice,
			PotentialLoss: domain.Round2(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Stock)))),
		})
	}
	return alerts
}

func ComputeReport(snap store.Snapshot) domain.Report {
	costs := newCostBook(snap.Products)
	report := domain.Report{
		TotalTransactions: len(snap.Transactions),
		PaymentBreakdown:  map[string]domain.PaymentSummary{},
	}

	revenue, totalCost, discount, gst := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	sales := make([]domain.ProductSales, 0)
	salesIndex := make(map[string]int)
	cashiers := make([]domain.CashierPerformance, 0)
	cashierIndex := make(map[string]int)

	for _, tx := range snap.Transactions {
		revenue = revenue.Add(tx.Total)
		totalCost = totalCost.Add(costs.cost(tx))
		discount = discount.Add(tx.Discount)
		gst = gst.Add(tx.GSTAmount)

		for _, item := range tx.Items {
			report.ItemsSold += item.Quantity
			idx, ok := salesIndex[item.ProductID]
			if !ok {
				idx = len(sales)
				salesIndex[item.ProductID] = idx
				sales = append(sales, domain.ProductSales{Name: item.ProductName, Revenue: decimal.Zero})
			}
			sales[idx].Quantity += item.Quantity
			sales[idx].Revenue = sales[idx].Revenue.Add(item.LineTotal)
		}

		idx, ok := cashierIndex[tx.CashierID]
		if !ok {
			idx = len(cashiers)
			cashierIndex[tx.CashierID] = idx
			cashiers = append(cashiers, domain.CashierPerformance{CashierID: tx.CashierID, Name: tx.CashierName, Revenue: decimal.Zero})
		}
		cashiers[idx].Transactions++
		cashiers[idx].Revenue = cashiers[idx].Revenue.Add(tx.Total)

		summary := report.PaymentBreakdown[tx.PaymentMethod]
		summary.Count++
		summary.Total = summary.Total.Add(tx.Total)
		report.PaymentBreakdown[tx.PaymentMethod] = summary
	}

	report.TotalRevenue = domain.Round2(revenue)
	report.NetProfit = domain.Round2(revenue.Sub(totalCost))
	report.AvgTransaction = average(revenue, len(snap.Transactions))
	report.TotalDiscount = domain.Round2(discount)
	report.TotalGST = domain.Round2(gst)

	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Revenue.GreaterThan(sales[j].Revenue)
	})
	if len(sales) > topProductLimit {
		sales = sales[:topProductLimit]
	}
	for i := range sales {
		sales[i].Revenue = domain.Round2(sales[i].Revenue)
	}
	report.TopProducts = sales

	for i := range cashiers {
		cashiers[i].Revenue = domain.Round2(cashiers[i].Revenue)
	}
	report.CashierPerformance = cashiers

	for method, summary := range report.PaymentBreakdown {
		summary.Total = domain.Round2(summary.Total)
		report.PaymentBreakdown[method] = summary
	}

	report.ReorderSuggestions = make([]domain.ReorderSuggestion, 0)
	for _, p := range snap.Products {
		if p.Stock > p.MinStock {
			continue
		}
		suggested := p.MinStock * reorderFactor
		report.ReorderSuggestions = append(report.ReorderSuggestions, domain.ReorderSuggestion{
			ID:             p.ID,
			Name:           p.Name,
			Stock:          p.Stock,
			MinStock:       p.MinStock,
			SuggestedOrder: suggested,
			EstimatedCost:  domain.Round2(p.CostPrice.Mul(decimal.NewFromInt(int64(suggested)))),
		})
	}
	return report
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return domain.Round2(total.Div(decimal.NewFromInt(int64(n))))
}
