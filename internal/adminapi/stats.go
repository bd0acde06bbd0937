package adminapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/elbrussoft/webstore/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cast"
)

func registerStatsRoutes() {
	webserver.ApiGET("/stats/summary", getSalesSummary)
	webserver.ApiGET("/stats/category-sales", getCategorySales)
	webserver.ApiGET("/stats/daily", getDailySales)
	webserver.ApiGET("/stats/system", getSystemStats)
	webserver.ApiGET("/stats/metrics", queryMetrics)
}

// getSalesSummary returns the dashboard headline numbers.
func getSalesSummary(c echo.Context) error {
	summary, err := GetAppContext(c).Reports().Summary(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build sales summary", err.Error())
	}
	return ok(c, summary)
}

// getCategorySales returns revenue grouped by product category.
func getCategorySales(c echo.Context) error {
	rows, err := GetAppContext(c).Reports().CategorySales(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build category sales", err.Error())
	}
	return ok(c, rows)
}

// getDailySales builds the per-day report, defaulting to today.
func getDailySales(c echo.Context) error {
	day := time.Now()
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		parsed, err := dateparse.ParseIn(raw, time.Local)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse date", err.Error())
		}
		day = parsed
	}

	report, err := GetAppContext(c).Reports().DailySales(c.Request().Context(), day)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build daily sales", err.Error())
	}
	return ok(c, report)
}

// getSystemStats samples host and process usage plus the store counters.
func getSystemStats(c echo.Context) error {
	result := map[string]interface{}{
		"orders_created_total":     metrics.GetCounter(metrics.OrdersCreatedTotal),
		"payments_created_total":   metrics.GetCounter(metrics.PaymentsCreatedTotal),
		"payments_completed_total": metrics.GetCounter(metrics.PaymentsCompletedTotal),
		"payments_cancelled_total": metrics.GetCounter(metrics.PaymentsCancelledTotal),
		"payments_failed_total":    metrics.GetCounter(metrics.PaymentsFailedTotal),
		"checkout_rejected_total":  metrics.GetCounter(metrics.CheckoutRejectedTotal),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		result["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		result["mem_used_mb"] = vm.Used / 1024 / 1024
		result["mem_percent"] = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := p.MemoryInfo(); err == nil {
			result["process_rss_mb"] = rss.RSS / 1024 / 1024
		}
	}

	return ok(c, result)
}

// queryMetrics reads gauge history from the local metric store. Without a
// name it lists the known series instead.
func queryMetrics(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return ok(c, map[string]interface{}{"names": metrics.ListNames()})
	}

	hours := cast.ToInt(c.QueryParam("hours"))
	if hours < 1 {
		hours = 24
	}
	if hours > 168 {
		hours = 168
	}

	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)
	points := metrics.RangeQuery(name, start.Unix(), end.Unix())

	return ok(c, map[string]interface{}{
		"name":   name,
		"points": points,
	})
}
