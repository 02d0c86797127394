package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Aggregator rolls committed sales up into daily totals. It only reads;
// all coordination concerns live in the sale path.
type Aggregator struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Aggregator {
	return &Aggregator{db: db}
}

type DailySales struct {
	Date       string          `json:"date"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Count      int64           `json:"count"`
}

type SalesReport struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	DailySales   []DailySales    `json:"daily_sales"`
}

// SalesBetween reports per-day revenue and sale counts for the inclusive
// date range [start, end]. Totals are summed as decimals in Go; SQLite
// would coerce the stored amounts to floats.
func (a *Aggregator) SalesBetween(ctx context.Context, start, end time.Time) (*SalesReport, error) {
	type row struct {
		Day         string          `db:"day"`
		TotalAmount decimal.Decimal `db:"total_amount"`
	}

	var rows []row
	err := a.db.SelectContext(ctx, &rows, `SELECT DATE(created_at) AS day, total_amount
                FROM sales
                WHERE DATE(created_at) >= DATE($1) AND DATE(created_at) <= DATE($2)
                ORDER BY created_at`, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("load sales for report: %w", err)
	}

	report := &SalesReport{
		StartDate:    start.Format("2006-01-02"),
		EndDate:      end.Format("2006-01-02"),
		TotalRevenue: decimal.Zero,
		DailySales:   []DailySales{},
	}
	byDay := make(map[string]int)
	for _, r := range rows {
		idx, ok := byDay[r.Day]
		if !ok {
			idx = len(report.DailySales)
			byDay[r.Day] = idx
			report.DailySales = append(report.DailySales, DailySales{Date: r.Day, TotalSales: decimal.Zero})
		}
		report.DailySales[idx].TotalSales = report.DailySales[idx].TotalSales.Add(r.TotalAmount)
		report.DailySales[idx].Count++
		report.TotalRevenue = report.TotalRevenue.Add(r.TotalAmount)
	}
	return report, nil
}
