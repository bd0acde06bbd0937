package app

import (
	"strings"
	"sync"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettingsManager is a read-through cache over the sys_config table.
// Values are keyed by category (Type column) and name.
type SettingsManager struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]string
}

func NewSettingsManager(db *gorm.DB) *SettingsManager {
	return &SettingsManager{
		db:    db,
		cache: make(map[string]string),
	}
}

func settingsCacheKey(category, name string) string {
	return category + "." + name
}

// GetString returns the configured value, or the empty string when the
// setting does not exist.
func (m *SettingsManager) GetString(category, name string) string {
	key := settingsCacheKey(category, name)

	m.mu.RLock()
	if value, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return value
	}
	m.mu.RUnlock()

	var cfg domain.SysConfig
	err := m.db.Where("type = ? and name = ?", category, name).First(&cfg).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.S().Errorf("load setting %s error: %v", key, err)
		}
		return ""
	}

	m.mu.Lock()
	m.cache[key] = cfg.Value
	m.mu.Unlock()
	return cfg.Value
}

func (m *SettingsManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

// GetBool interprets enabled/true/1 style values.
func (m *SettingsManager) GetBool(category, name string) bool {
	value := strings.ToLower(m.GetString(category, name))
	if value == common.ENABLED {
		return true
	}
	return cast.ToBool(value)
}

// Set upserts a single setting and refreshes the cache entry.
func (m *SettingsManager) Set(category, name, value string) error {
	var cfg domain.SysConfig
	err := m.db.Where("type = ? and name = ?", category, name).First(&cfg).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = m.db.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	case err == nil:
		err = m.db.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Update("value", value).Error
	}
	if err != nil {
		return errors.Wrapf(err, "save setting %s.%s", category, name)
	}

	m.mu.Lock()
	m.cache[settingsCacheKey(category, name)] = value
	m.mu.Unlock()
	return nil
}

// SaveSettings persists a batch of settings keyed as "category.name".
func (m *SettingsManager) SaveSettings(settings map[string]interface{}) error {
	for key, value := range settings {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			return errors.Errorf("invalid settings key %s", key)
		}
		if err := m.Set(parts[0], parts[1], cast.ToString(value)); err != nil {
			return err
		}
	}
	return nil
}
