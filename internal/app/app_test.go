package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elbrussoft/webstore/config"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "webstore_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cfg := &config.AppConfig{}
	*cfg = *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false

	a := NewApplication(cfg)
	a.OverrideDB(db)
	require.NoError(t, a.MigrateDB(false))
	return a
}

func TestBootstrapSeeding(t *testing.T) {
	a := newTestApp(t)

	a.checkSuper()
	a.checkSettings()
	a.checkSchedulers()
	a.checkProducts()

	var opr domain.SysOpr
	require.NoError(t, a.gormDB.Where("username = ?", "admin").First(&opr).Error)
	assert.Equal(t, common.Sha256HashWithSalt("webstore", common.GetSecretSalt()), opr.Password)
	assert.Equal(t, "super", opr.Level)
	assert.Equal(t, common.ENABLED, opr.Status)

	var settingCount int64
	a.gormDB.Model(&domain.SysConfig{}).Count(&settingCount)
	assert.EqualValues(t, 21, settingCount)
	assert.Equal(t, "https://sandbox.paypal.com", a.GetSettingsStringValue("payment", "sandbox_endpoint"))

	var schedCount int64
	a.gormDB.Model(&domain.StoreScheduler{}).Count(&schedCount)
	assert.EqualValues(t, 3, schedCount)

	var products []domain.Product
	require.NoError(t, a.gormDB.Find(&products).Error)
	assert.Len(t, products, 8)

	var flagship domain.Product
	require.NoError(t, a.gormDB.Where("sku = ?", "WEB-DEV-PRO").First(&flagship).Error)
	assert.True(t, flagship.Price.Equal(decimal.RequireFromString("1299.99")))
	assert.True(t, flagship.IsActive)

	// Seeding is idempotent
	a.checkSuper()
	a.checkSettings()
	a.checkSchedulers()
	a.checkProducts()

	a.gormDB.Model(&domain.SysConfig{}).Count(&settingCount)
	assert.EqualValues(t, 21, settingCount)
	var productCount int64
	a.gormDB.Model(&domain.Product{}).Count(&productCount)
	assert.EqualValues(t, 8, productCount)
}

func TestSettingsManager(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.settings.Set("system", "title", "My Store"))
	assert.Equal(t, "My Store", a.GetSettingsStringValue("system", "title"))

	// Update through cache invalidation
	require.NoError(t, a.settings.Set("system", "title", "Another Store"))
	assert.Equal(t, "Another Store", a.GetSettingsStringValue("system", "title"))

	require.NoError(t, a.settings.Set("notify", "smtp_port", "587"))
	assert.EqualValues(t, 587, a.GetSettingsInt64Value("notify", "smtp_port"))

	require.NoError(t, a.settings.Set("notify", "email_enabled", "enabled"))
	assert.True(t, a.GetSettingsBoolValue("notify", "email_enabled"))
	require.NoError(t, a.settings.Set("notify", "email_enabled", "disabled"))
	assert.False(t, a.GetSettingsBoolValue("notify", "email_enabled"))

	assert.Equal(t, "", a.GetSettingsStringValue("ghost", "missing"))
}

func TestSaveSettingsKeyFormat(t *testing.T) {
	a := newTestApp(t)

	err := a.SaveSettings(map[string]interface{}{
		"payment.sandbox_endpoint": "https://sandbox.example.org",
		"backup.sftp_port":         2222,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.example.org", a.GetSettingsStringValue("payment", "sandbox_endpoint"))
	assert.EqualValues(t, 2222, a.GetSettingsInt64Value("backup", "sftp_port"))

	assert.Error(t, a.SaveSettings(map[string]interface{}{"malformed": "x"}))
}

func TestBackupDatabaseWritesCsv(t *testing.T) {
	a := newTestApp(t)
	a.checkProducts()

	dir, err := a.BackupDatabase()
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "products.csv")
	assert.Contains(t, names, "customers.csv")
	assert.Contains(t, names, "orders.csv")
	assert.Contains(t, names, "order_items.csv")
	assert.Contains(t, names, "payments.csv")

	data, err := os.ReadFile(filepath.Join(dir, "products.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "WEB-DEV-PRO")
}

func TestRunSchedulerNow(t *testing.T) {
	a := newTestApp(t)
	a.checkSchedulers()

	var sched domain.StoreScheduler
	require.NoError(t, a.gormDB.Where("task_type = ?", "metrics_snapshot").First(&sched).Error)

	require.NoError(t, a.RunSchedulerNow(sched.ID))

	var after domain.StoreScheduler
	require.NoError(t, a.gormDB.First(&after, sched.ID).Error)
	assert.Equal(t, "success", after.LastResult)
	assert.False(t, after.LastRunAt.IsZero())
	assert.True(t, after.NextRunAt.After(after.LastRunAt))
}

func TestRunDailyReportWithoutRecipient(t *testing.T) {
	a := newTestApp(t)
	a.checkSchedulers()

	var sched domain.StoreScheduler
	require.NoError(t, a.gormDB.Where("task_type = ?", "daily_sales_report").First(&sched).Error)

	require.NoError(t, a.RunSchedulerNow(sched.ID))

	var after domain.StoreScheduler
	require.NoError(t, a.gormDB.First(&after, sched.ID).Error)
	assert.Equal(t, "success", after.LastResult)
	assert.Contains(t, after.LastMessage, "disabled")
}

func TestRunSchedulerNowUnknownID(t *testing.T) {
	a := newTestApp(t)
	assert.Error(t, a.RunSchedulerNow(424242))
}
