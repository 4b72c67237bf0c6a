package domain

import "github.com/shopspring/decimal"

type PaymentSummary struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type DailyTrend struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type LowStockAlert struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"minStock"`
}

type ExpiryAlert struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ExpiryDate    string          `json:"expiryDate"`
	DaysLeft      int             `json:"daysLeft"`
	Stock         int             `json:"stock"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	PotentialLoss decimal.Decimal `json:"potentialLoss"`
}

type DashboardStats struct {
	TotalRevenue      decimal.Decimal            `json:"totalRevenue"`
	TodayRevenue      decimal.Decimal            `json:"todayRevenue"`
	NetProfit         decimal.Decimal            `json:"netProfit"`
	TotalTransactions int                        `json:"totalTransactions"`
	TodayTransactions int                        `json:"todayTransactions"`
	AvgTransaction    decimal.Decimal            `json:"avgTransaction"`
	TotalProducts     int                        `json:"totalProducts"`
	LowStockCount     int                        `json:"lowStockCount"`
	ExpiringCount     int                        `json:"expiringCount"`
	InventoryValue    decimal.Decimal            `json:"inventoryValue"`
	TotalGST          decimal.Decimal            `json:"totalGst"`
	CategoryRevenue   map[string]decimal.Decimal `json:"categoryRevenue"`
	PaymentMethods    map[string]PaymentSummary  `json:"paymentMethods"`
	Last7Days         []DailyTrend               `json:"last7Days"`
	LowStockProducts  []LowStockAlert            `json:"lowStockProducts"`
	ExpiringProducts  []ExpiryAlert              `json:"expiringProducts"`
}

type ProductSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"qty"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CashierPerformance struct {
	CashierID    string          `json:"cashierId"`
	Name         string          `json:"name"`
	Transactions int             `json:"transactions"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type ReorderSuggestion struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Stock          int             `json:"stock"`
	MinStock       int             `json:"minStock"`
	SuggestedOrder int             `json:"suggestedOrder"`
	EstimatedCost  decimal.Decimal `json:"estimatedCost"`
}

type Report struct {
	TotalRevenue       decimal.Decimal           `json:"totalRevenue"`
	NetProfit          decimal.Decimal           `json:"netProfit"`
	TotalTransactions  int                       `json:"totalTransactions"`
	AvgTransaction     decimal.Decimal           `json:"avgTransaction"`
	TotalDiscount      decimal.Decimal           `json:"totalDiscount"`
	TotalGST           decimal.Decimal           `json:"totalGst"`
	ItemsSold          int                       `json:"itemsSold"`
	TopProducts        []ProductSales            `json:"topProducts"`
	CashierPerformance []CashierPerformance      `json:"cashierPerformance"`
	PaymentBreakdown   map[string]PaymentSummary `json:"paymentBreakdown"`
	ReorderSuggestions []ReorderSuggestion       `json:"reorderSuggestions"`
}
