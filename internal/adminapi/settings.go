package adminapi

import (
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerSettingsRoutes() {
	webserver.ApiGET("/system/settings", listSettings)
	webserver.ApiPUT("/system/settings", saveSettings)
	webserver.ApiGET("/system/oprlogs", listOprLogs)
}

// listSettings returns the runtime configuration table. Secret values are
// masked before leaving the server.
func listSettings(c echo.Context) error {
	db := GetDB(c).Model(&domain.SysConfig{})
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("type = ?", category)
	}

	var rows []domain.SysConfig
	if err := db.Order("type asc, sort asc").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}

	for i := range rows {
		if isSecretSetting(rows[i].Name) && rows[i].Value != "" {
			rows[i].Value = "********"
		}
	}
	return ok(c, rows)
}

func isSecretSetting(name string) bool {
	return strings.Contains(name, "password") || strings.Contains(name, "secret")
}

// saveSettings accepts a flat map keyed category.name, the same shape the
// console submits.
func saveSettings(c echo.Context) error {
	var values map[string]interface{}
	if err := c.Bind(&values); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse settings", err.Error())
	}
	if len(values) == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "No settings submitted", nil)
	}

	if err := GetAppContext(c).SaveSettings(values); err != nil {
		return fail(c, http.StatusInternalServerError, "SETTINGS_ERROR", "Failed to save settings", err.Error())
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	writeOprLog(c, GetCurrentUsername(c), "save_settings", strings.Join(keys, ","))
	return ok(c, map[string]interface{}{"updated": len(values)})
}

// listOprLogs returns the operator audit trail, newest first.
func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.SysOprLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("opt_action = ?", action)
	}
	if name := strings.TrimSpace(c.QueryParam("opr_name")); name != "" {
		db = db.Where("opr_name = ?", name)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	var rows []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}
