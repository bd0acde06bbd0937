package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/config"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]interface{}) error
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BusProvider provides the application event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// CommerceProvider provides the storefront services
type CommerceProvider interface {
	Catalog() *commerce.CatalogService
	Customers() *commerce.CustomerService
	Orders() *commerce.OrderService
	Payments() *commerce.PaymentService
	Checkout() *commerce.CheckoutService
	Reports() *commerce.ReportService
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	BusProvider
	CommerceProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// RunSchedulerNow triggers a scheduler execution immediately by ID
	RunSchedulerNow(id int64) error
}
