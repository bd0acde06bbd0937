package app

import (
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed config_schemas.json
var configSchemasData []byte

type ConfigSchemaJSON struct {
	Key         string `json:"key"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

type ConfigSchemasJSON struct {
	Schemas []ConfigSchemaJSON `json:"schemas"`
}

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "webstore"

	hashedPassword := common.Sha256HashWithSalt(defaultPassword, common.GetSecretSalt())

	var operator domain.SysOpr
	err := a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

func (a *Application) checkSettings() {
	// Load configuration definitions from the embedded JSON file
	var schemasData ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &schemasData); err != nil {
		zap.L().Error("failed to load config schemas from JSON", zap.Error(err))
		return
	}

	// Iterate over all configuration definitions, checking and initializing missing entries
	for sortid, schema := range schemasData.Schemas {
		// Parse key: "category.name" -> category, name
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}

		category := parts[0]
		name := parts[1]

		// Check whether the configuration already exists
		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)

		// e.g., if the configuration does not exist, create the default configuration
		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     0,
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}

// checkSchedulers initializes default scheduled tasks
func (a *Application) checkSchedulers() {
	// Default schedulers to initialize
	defaultSchedulers := []domain.StoreScheduler{
		{
			Name:     "Daily Sales Report",
			TaskType: "daily_sales_report",
			Interval: 86400, // 24 hours
			Status:   "enabled",
			Remark:   "Builds the previous day sales report and emails it to the configured recipient",
		},
		{
			Name:     "Database Backup",
			TaskType: "database_backup",
			Interval: 86400, // 24 hours
			Status:   "enabled",
			Remark:   "Exports store tables to CSV and optionally uploads them over SFTP",
		},
		{
			Name:     "Metrics Snapshot",
			TaskType: "metrics_snapshot",
			Interval: 300, // 5 minutes
			Status:   "enabled",
			Remark:   "Samples store row counts into the metrics store for dashboards",
		},
	}

	for _, sched := range defaultSchedulers {
		var count int64
		a.gormDB.Model(&domain.StoreScheduler{}).
			Where("task_type = ?", sched.TaskType).
			Count(&count)

		if count == 0 {
			sched.NextRunAt = time.Now().Add(time.Duration(sched.Interval) * time.Second)
			if err := a.gormDB.Create(&sched).Error; err != nil {
				zap.L().Error("failed to create default scheduler",
					zap.String("name", sched.Name),
					zap.Error(err))
			} else {
				zap.L().Info("initialized default scheduler",
					zap.String("name", sched.Name),
					zap.String("task_type", sched.TaskType))
			}
		}
	}
}

// checkProducts seeds the demo catalog on first start
func (a *Application) checkProducts() {
	type seedProduct struct {
		Name        string
		Description string
		Price       string
		Stock       int
		Sku         string
		Category    string
		ImageURL    string
	}

	defaultProducts := []seedProduct{
		{
			Name:        "Professional Web Development Package",
			Description: "Complete web development solution including responsive design, modern framework integration, and deployment setup. Perfect for small to medium businesses looking to establish their online presence.",
			Price:       "1299.99",
			Stock:       50,
			Sku:         "WEB-DEV-PRO",
			Category:    "Web Development",
			ImageURL:    "https://images.unsplash.com/photo-1460925895917-afdab827c52f?w=400&h=300&fit=crop",
		},
		{
			Name:        "Custom Software Development",
			Description: "Tailored software solutions built to your specifications. Includes requirements analysis, development, testing, and documentation. Suitable for automation and business process optimization.",
			Price:       "2499.99",
			Stock:       25,
			Sku:         "SOFT-DEV-CUSTOM",
			Category:    "Software Development",
			ImageURL:    "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=400&h=300&fit=crop",
		},
		{
			Name:        "Database Design & Optimization",
			Description: "Professional database architecture and optimization services. Includes schema design, performance tuning, and migration assistance for PostgreSQL, MySQL, and MongoDB.",
			Price:       "899.99",
			Stock:       30,
			Sku:         "DB-DESIGN-OPT",
			Category:    "Database Services",
			ImageURL:    "https://images.unsplash.com/photo-1558494949-ef010cbdcc31?w=400&h=300&fit=crop",
		},
		{
			Name:        "Mobile App Development (iOS/Android)",
			Description: "Cross-platform mobile application development using modern frameworks. Includes UI/UX design, development, testing, and app store deployment assistance.",
			Price:       "3199.99",
			Stock:       15,
			Sku:         "MOBILE-DEV-CROSS",
			Category:    "Mobile Development",
			ImageURL:    "https://images.unsplash.com/photo-1512941937669-90a1b58e7e9c?w=400&h=300&fit=crop",
		},
		{
			Name:        "Cloud Infrastructure Setup",
			Description: "Complete cloud infrastructure design and implementation. Includes server setup, security configuration, monitoring, and backup solutions on AWS, Azure, or Google Cloud.",
			Price:       "1799.99",
			Stock:       20,
			Sku:         "CLOUD-INFRA-SETUP",
			Category:    "Cloud Services",
			ImageURL:    "https://images.unsplash.com/photo-1451187580459-43490279c0fa?w=400&h=300&fit=crop",
		},
		{
			Name:        "API Development & Integration",
			Description: "RESTful API development and third-party service integration. Includes authentication, documentation, testing, and deployment. Perfect for connecting systems and enabling automation.",
			Price:       "1599.99",
			Stock:       35,
			Sku:         "API-DEV-INTEG",
			Category:    "Web Development",
			ImageURL:    "https://images.unsplash.com/photo-1558494949-ef010cbdcc31?w=400&h=300&fit=crop",
		},
		{
			Name:        "E-commerce Solution",
			Description: "Complete e-commerce platform development with payment processing, inventory management, and admin dashboard. Includes responsive design and mobile optimization.",
			Price:       "2899.99",
			Stock:       12,
			Sku:         "ECOM-SOLUTION",
			Category:    "Web Development",
			ImageURL:    "https://images.unsplash.com/photo-1556742049-0cfed4f6a45d?w=400&h=300&fit=crop",
		},
		{
			Name:        "DevOps Automation Package",
			Description: "CI/CD pipeline setup, automated testing, deployment automation, and monitoring configuration. Includes Docker containerization and Kubernetes orchestration setup.",
			Price:       "2199.99",
			Stock:       18,
			Sku:         "DEVOPS-AUTO-PKG",
			Category:    "DevOps",
			ImageURL:    "https://images.unsplash.com/photo-1517077304055-6e89abbf09b0?w=400&h=300&fit=crop",
		},
	}

	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("sku = ?", p.Sku).Count(&count)
		if count == 0 {
			sku := p.Sku
			product := domain.Product{
				Name:          p.Name,
				Description:   p.Description,
				Price:         decimal.RequireFromString(p.Price),
				StockQuantity: p.Stock,
				IsActive:      true,
				Sku:           &sku,
				Category:      p.Category,
				ImageURL:      p.ImageURL,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			}
			if err := a.gormDB.Create(&product).Error; err != nil {
				zap.L().Error("failed to create default product", zap.String("sku", p.Sku), zap.Error(err))
			} else {
				zap.L().Info("initialized default product", zap.String("sku", p.Sku), zap.String("name", p.Name))
			}
		}
	}
}
