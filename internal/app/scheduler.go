package app

import (
	"context"
	"fmt"
	"time"

	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/metrics"
	"go.uber.org/zap"
)

// SchedulerService runs enabled schedulers periodically
func (a *Application) StartSchedulerService(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runSchedulers()
			}
		}
	}()
}

// runSchedulers executes enabled schedulers
func (a *Application) runSchedulers() {
	var schedulers []domain.StoreScheduler
	a.gormDB.Where("status = ?", "enabled").Find(&schedulers)
	now := time.Now()
	for _, sched := range schedulers {
		// Only run if now >= next_run_at
		if sched.NextRunAt.IsZero() || now.After(sched.NextRunAt) || now.Equal(sched.NextRunAt) {
			switch sched.TaskType {
			case "daily_sales_report":
				a.runDailySalesReportScheduler(&sched)
			case "database_backup":
				a.runDatabaseBackupScheduler(&sched)
			case "metrics_snapshot":
				a.runMetricsSnapshotScheduler(&sched)
			// Add more task types here
			}
			// Update next_run_at
			a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).Update("next_run_at", now.Add(time.Duration(sched.Interval)*time.Second))
		}
	}
}

// finishSchedulerRun records the outcome of a scheduler execution
func (a *Application) finishSchedulerRun(sched *domain.StoreScheduler, result, message string) {
	a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at":  time.Now(),
		"last_result":  result,
		"last_message": message,
	})
}

// runDailySalesReportScheduler builds yesterday's sales report and mails it
// to the configured recipient
func (a *Application) runDailySalesReportScheduler(sched *domain.StoreScheduler) {
	zap.L().Info("runDailySalesReportScheduler invoked", zap.Int64("scheduler_id", sched.ID), zap.String("name", sched.Name))

	yesterday := time.Now().AddDate(0, 0, -1)
	report, err := a.reports.DailySales(context.Background(), yesterday)
	if err != nil {
		zap.L().Error("daily sales report failed", zap.Error(err))
		a.finishSchedulerRun(sched, "failed", err.Error())
		return
	}

	recipient := a.GetSettingsStringValue("system", "report_email")
	if recipient == "" || !a.GetSettingsBoolValue("notify", "email_enabled") {
		zap.L().Info("daily sales report built, mail delivery disabled",
			zap.String("date", report.Date),
			zap.Int64("orders", report.Orders),
			zap.String("revenue", report.Revenue))
		a.finishSchedulerRun(sched, "success", "report built, mail delivery disabled")
		return
	}

	if a.notifier == nil {
		a.finishSchedulerRun(sched, "failed", "notifier not initialized")
		return
	}

	if err := a.notifier.SendDailySalesReport(recipient, *report); err != nil {
		zap.L().Error("failed to send daily sales report", zap.String("to", recipient), zap.Error(err))
		a.finishSchedulerRun(sched, "failed", err.Error())
		return
	}

	a.finishSchedulerRun(sched, "success", fmt.Sprintf("report for %s sent to %s", report.Date, recipient))
}

// runDatabaseBackupScheduler exports the store tables and uploads the dump
// when an SFTP target is configured
func (a *Application) runDatabaseBackupScheduler(sched *domain.StoreScheduler) {
	zap.L().Info("runDatabaseBackupScheduler invoked", zap.Int64("scheduler_id", sched.ID), zap.String("name", sched.Name))

	backupDir, err := a.BackupDatabase()
	if err != nil {
		zap.L().Error("database backup failed", zap.Error(err))
		a.finishSchedulerRun(sched, "failed", err.Error())
		return
	}

	a.finishSchedulerRun(sched, "success", fmt.Sprintf("backup written to %s", backupDir))
}

// runMetricsSnapshotScheduler samples store row counts into the metrics store
func (a *Application) runMetricsSnapshotScheduler(sched *domain.StoreScheduler) {
	var (
		productsActive int64
		customers      int64
		orders         int64
		ordersPending  int64
		payments       int64
	)

	a.gormDB.Model(&domain.Product{}).Where("is_active = ?", true).Count(&productsActive)
	a.gormDB.Model(&domain.Customer{}).Count(&customers)
	a.gormDB.Model(&domain.Order{}).Count(&orders)
	a.gormDB.Model(&domain.Order{}).Where("status IN ?", []string{
		commerce.OrderStatusCreated, commerce.OrderStatusPaymentPending,
	}).Count(&ordersPending)
	a.gormDB.Model(&domain.Payment{}).Count(&payments)

	metrics.SetGauge("store_products_active", productsActive)
	metrics.SetGauge("store_customers", customers)
	metrics.SetGauge("store_orders", orders)
	metrics.SetGauge("store_orders_pending", ordersPending)
	metrics.SetGauge("store_payments", payments)

	a.finishSchedulerRun(sched, "success", "store metrics sampled")
}
