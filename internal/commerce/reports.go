package commerce

import (
	"context"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// SalesSummary aggregates the store's headline numbers. Amount statistics
// are computed over completed payments only.
type SalesSummary struct {
	Products      int64  `json:"products"`
	Customers     int64  `json:"customers"`
	Orders        int64  `json:"orders"`
	PaidOrders    int64  `json:"paid_orders"`
	Payments      int64  `json:"payments"`
	Revenue       string `json:"revenue"`
	AveragePaid   string `json:"average_paid"`
	MedianPaid    string `json:"median_paid"`
	P90Paid       string `json:"p90_paid"`
	PendingOrders int64  `json:"pending_orders"`
}

// CategorySales is one catalog category revenue rollup row.
type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

// DailySalesReport covers one UTC day for the scheduled sales email.
type DailySalesReport struct {
	Date      string `json:"date"`
	Orders    int64  `json:"orders"`
	Completed int64  `json:"completed"`
	Revenue   string `json:"revenue"`
}

// ReportService computes sales aggregates for the admin dashboard and the
// scheduled reports.
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a report service.
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Summary returns the dashboard headline numbers.
func (s *ReportService) Summary(ctx context.Context) (*SalesSummary, error) {
	db := s.db.WithContext(ctx)
	summary := &SalesSummary{
		Revenue:     "0.00",
		AveragePaid: "0.00",
		MedianPaid:  "0.00",
		P90Paid:     "0.00",
	}

	db.Model(&domain.Product{}).Count(&summary.Products)
	db.Model(&domain.Customer{}).Count(&summary.Customers)
	db.Model(&domain.Order{}).Count(&summary.Orders)
	db.Model(&domain.Order{}).Where("status = ?", OrderStatusPaid).Count(&summary.PaidOrders)
	db.Model(&domain.Order{}).Where("status = ?", OrderStatusPaymentPending).Count(&summary.PendingOrders)
	db.Model(&domain.Payment{}).Count(&summary.Payments)

	var amounts []decimal.Decimal
	err := db.Model(&domain.Payment{}).
		Where("status = ?", PaymentStatusCompleted).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, errors.Wrap(err, "query completed amounts")
	}
	if len(amounts) == 0 {
		return summary, nil
	}

	summary.Revenue = decimal.Sum(amounts[0], amounts[1:]...).StringFixed(2)

	values := make([]float64, 0, len(amounts))
	for _, a := range amounts {
		values = append(values, a.InexactFloat64())
	}
	if mean, err := stats.Mean(values); err == nil {
		summary.AveragePaid = decimal.NewFromFloat(mean).StringFixed(2)
	}
	if median, err := stats.Median(values); err == nil {
		summary.MedianPaid = decimal.NewFromFloat(median).StringFixed(2)
	}
	if p90, err := stats.Percentile(values, 90); err == nil {
		summary.P90Paid = decimal.NewFromFloat(p90).StringFixed(2)
	}
	return summary, nil
}

type categoryRevenueRow struct {
	Category string
	Revenue  float64
}

// CategorySales rolls up line-item revenue of paid and later orders by
// product category. Uncategorized products group under "uncategorized".
func (s *ReportService) CategorySales(ctx context.Context) ([]CategorySales, error) {
	var rows []categoryRevenueRow
	err := s.db.WithContext(ctx).
		Table("order_items").
		Select("products.category AS category, order_items.total_price AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.status IN ?", []string{
			OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		}).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query category revenue")
	}
	if len(rows) == 0 {
		return []CategorySales{}, nil
	}
	for i := range rows {
		if rows[i].Category == "" {
			rows[i].Category = "uncategorized"
		}
	}

	df := dataframe.LoadStructs(rows)
	agg := df.GroupBy("Category").
		Aggregation([]dataframe.AggregationType{dataframe.Aggregation_SUM}, []string{"Revenue"})
	if agg.Err != nil {
		return nil, errors.Wrap(agg.Err, "aggregate category revenue")
	}

	result := make([]CategorySales, 0, agg.Nrow())
	for _, m := range agg.Maps() {
		result = append(result, CategorySales{
			Category: cast.ToString(m["Category"]),
			Revenue:  cast.ToFloat64(m["Revenue_SUM"]),
		})
	}
	return result, nil
}

// DailySales reports order and completion volume for the civil day of the
// given time, in that time's location.
func (s *ReportService) DailySales(ctx context.Context, day time.Time) (*DailySalesReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	db := s.db.WithContext(ctx)

	report := &DailySalesReport{
		Date:    start.Format("2006-01-02"),
		Revenue: "0.00",
	}
	db.Model(&domain.Order{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&report.Orders)

	var amounts []decimal.Decimal
	err := db.Model(&domain.Payment{}).
		Where("status = ? AND completed_at >= ? AND completed_at < ?", PaymentStatusCompleted, start, end).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, errors.Wrap(err, "query daily completed amounts")
	}
	report.Completed = int64(len(amounts))
	if len(amounts) > 0 {
		report.Revenue = decimal.Sum(amounts[0], amounts[1:]...).StringFixed(2)
	}
	return report, nil
}
