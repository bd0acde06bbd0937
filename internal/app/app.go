package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/config"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/commerce/provider"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/notify"
	"github.com/elbrussoft/webstore/pkg/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	settings  *SettingsManager
	notifier  *notify.Notifier
	gateway   provider.Client

	catalog   *commerce.CatalogService
	customers *commerce.CustomerService
	orders    *commerce.OrderService
	payments  *commerce.PaymentService
	checkout  *commerce.CheckoutService
	reports   *commerce.ReportService
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SettingsProvider  = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ BusProvider       = (*Application)(nil)
	_ CommerceProvider  = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// OverrideDB replaces the application's database handle and rebuilds the
// services bound to it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	if a.bus == nil {
		a.bus = EventBus.New()
	}
	a.settings = NewSettingsManager(db)
	a.initCommerce()
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Configure output paths
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logger.Filename)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	// Ensure database schema is migrated before loading configs
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	// wait for database initialization to complete
	go func() {
		time.Sleep(3 * time.Second)
		a.checkSuper()
		a.checkSettings()
		a.checkSchedulers()
		a.checkProducts()
	}()

	a.bus = EventBus.New()
	a.settings = NewSettingsManager(a.gormDB)
	a.initCommerce()

	a.notifier = notify.NewNotifier(a, a.bus)
	a.notifier.Start()

	a.initJob()
}

// initCommerce wires the storefront services against the current database
// handle and payment gateway.
func (a *Application) initCommerce() {
	endpoint := a.settings.GetString("payment", "sandbox_endpoint")
	a.gateway = provider.NewSandboxClient(endpoint)

	productRepo := commerce.NewGormProductRepository(a.gormDB)
	customerRepo := commerce.NewGormCustomerRepository(a.gormDB)
	orderRepo := commerce.NewGormOrderRepository(a.gormDB)
	paymentRepo := commerce.NewGormPaymentRepository(a.gormDB)

	a.catalog = commerce.NewCatalogService(productRepo, orderRepo)
	a.customers = commerce.NewCustomerService(customerRepo)
	a.orders = commerce.NewOrderService(a.gormDB, orderRepo, a.bus)
	a.payments = commerce.NewPaymentService(a.gormDB, paymentRepo, orderRepo, a.gateway, a.bus)
	a.checkout = commerce.NewCheckoutService(a.catalog, a.customers, a.orders, a.payments)
	a.reports = commerce.NewReportService(a.gormDB)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.settings.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.settings.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.settings.GetBool(category, key)
}

// SaveSettings saves configuration settings keyed as "category.name"
func (a *Application) SaveSettings(settings map[string]interface{}) error {
	return a.settings.SaveSettings(settings)
}

// Catalog returns the product catalog service
func (a *Application) Catalog() *commerce.CatalogService {
	return a.catalog
}

// Customers returns the customer directory service
func (a *Application) Customers() *commerce.CustomerService {
	return a.customers
}

// Orders returns the order ledger service
func (a *Application) Orders() *commerce.OrderService {
	return a.orders
}

// Payments returns the payment gateway service
func (a *Application) Payments() *commerce.PaymentService {
	return a.payments
}

// Checkout returns the checkout orchestrator
func (a *Application) Checkout() *commerce.CheckoutService {
	return a.checkout
}

// Reports returns the sales report service
func (a *Application) Reports() *commerce.ReportService {
	return a.reports
}

// Start scheduler job runner
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.StartSchedulerService(ctx)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}

	if a.notifier != nil {
		a.notifier.Stop()
	}

	if a.gateway != nil {
		_ = a.gateway.Close()
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.StoreScheduler
	if err := a.gormDB.First(&sched, id).Error; err != nil {
		return err
	}

	switch sched.TaskType {
	case "daily_sales_report":
		a.runDailySalesReportScheduler(&sched)
	case "database_backup":
		a.runDatabaseBackupScheduler(&sched)
	case "metrics_snapshot":
		a.runMetricsSnapshotScheduler(&sched)
	default:
		// unsupported task type
	}

	// update last and next run
	now := time.Now()
	a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at": now,
		"next_run_at": now.Add(time.Duration(sched.Interval) * time.Second),
	})
	return nil
}
