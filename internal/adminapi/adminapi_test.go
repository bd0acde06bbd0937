package adminapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/elbrussoft/webstore/config"
	"github.com/elbrussoft/webstore/internal/app"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type consoleFixture struct {
	db     *gorm.DB
	server *httptest.Server
	token  string
}

// newConsoleFixture boots the console API over a throwaway sqlite file with
// one seeded operator and returns a logged-in fixture.
func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "webstore_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	require.NoError(t, db.Create(&domain.SysOpr{
		ID:        common.UUIDint64(),
		Username:  "admin",
		Password:  common.Sha256HashWithSalt("webstore", common.GetSecretSalt()),
		Realname:  "administrator",
		Level:     "super",
		Status:    common.ENABLED,
		LastLogin: time.Now(),
	}).Error)

	cfg := &config.AppConfig{}
	*cfg = *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Web.Secret = "adminapi-test-secret"
	cfg.Web.AllowCIDR = ""
	cfg.Logger.FileEnable = false

	application := app.NewApplication(cfg)
	application.OverrideDB(db)

	InitRouter()
	ws := webserver.NewWebServer(application)

	server := httptest.NewServer(ws.Echo())
	t.Cleanup(server.Close)

	f := &consoleFixture{db: db, server: server}
	f.token = f.login(t, "admin", "webstore")
	return f
}

func (f *consoleFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(f.server.URL+"/api/v1/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// request performs an authorized console call and decodes the reply.
func (f *consoleFixture) request(t *testing.T, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newConsoleFixture(t)

	payload, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(f.server.URL+"/api/v1/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newConsoleFixture(t)

	resp, err := http.Get(f.server.URL + "/api/v1/store/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionInfo(t *testing.T) {
	f := newConsoleFixture(t)

	var info map[string]interface{}
	resp := f.request(t, http.MethodGet, "/api/v1/session", nil, &info)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", info["username"])
	assert.Equal(t, "super", info["level"])
}

func TestProductConsoleCrud(t *testing.T) {
	f := newConsoleFixture(t)

	create := map[string]interface{}{
		"name":           "Penetration Test",
		"description":    "Annual security assessment",
		"price":          4999.99,
		"stock_quantity": 10,
		"sku":            "SEC-PENTEST",
		"category":       "Security",
	}
	var product domain.Product
	resp := f.request(t, http.MethodPost, "/api/v1/store/products", create, &product)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotZero(t, product.ID)
	assert.True(t, product.IsActive)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("4999.99")))

	// Duplicate SKU is refused
	var envelope map[string]interface{}
	resp = f.request(t, http.MethodPost, "/api/v1/store/products", create, &envelope)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SKU_EXISTS", envelope["code"])

	update := map[string]interface{}{
		"name":           "Penetration Test Plus",
		"price":          5999.99,
		"stock_quantity": 8,
		"is_active":      false,
	}
	var updated domain.Product
	resp = f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/store/products/%d", product.ID), update, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Penetration Test Plus", updated.Name)
	assert.False(t, updated.IsActive)

	var listing ListResponse
	resp = f.request(t, http.MethodGet, "/api/v1/store/products?q=penetration", nil, &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, listing.Total)

	resp = f.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/store/products/%d", product.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/store/products/%d", product.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductValidation(t *testing.T) {
	f := newConsoleFixture(t)

	var envelope map[string]interface{}
	resp := f.request(t, http.MethodPost, "/api/v1/store/products", map[string]interface{}{
		"name":           "",
		"stock_quantity": -1,
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", envelope["code"])
}

func TestOrderStatusTransitions(t *testing.T) {
	f := newConsoleFixture(t)

	customer := domain.Customer{Email: "ops@example.com", FirstName: "Ops"}
	require.NoError(t, f.db.Create(&customer).Error)
	order := domain.Order{
		OrderNumber: "ORD-20240301-TESTCASE",
		CustomerID:  customer.ID,
		Status:      "paid",
		TotalAmount: decimal.RequireFromString("100.00"),
		Currency:    "USD",
	}
	require.NoError(t, f.db.Create(&order).Error)

	var updated domain.Order
	resp := f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/store/orders/%d/status", order.ID),
		map[string]string{"status": "processing"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", updated.Status)

	// Skipping straight to delivered is refused
	var envelope map[string]interface{}
	resp = f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/store/orders/%d/status", order.ID),
		map[string]string{"status": "delivered"}, &envelope)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ILLEGAL_TRANSITION", envelope["code"])

	var detail map[string]json.RawMessage
	resp = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/store/orders/%d", order.ID), nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, detail, "order")
	assert.Contains(t, detail, "items")
	assert.Contains(t, detail, "payments")
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newConsoleFixture(t)

	resp := f.request(t, http.MethodPut, "/api/v1/system/settings",
		map[string]interface{}{"system.title": "Elbrus Web Store"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []domain.SysConfig
	resp = f.request(t, http.MethodGet, "/api/v1/system/settings?category=system", nil, &rows)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := false
	for _, row := range rows {
		if row.Name == "title" {
			found = true
			assert.Equal(t, "Elbrus Web Store", row.Value)
		}
	}
	assert.True(t, found)
}

func TestSettingsMaskSecrets(t *testing.T) {
	f := newConsoleFixture(t)

	resp := f.request(t, http.MethodPut, "/api/v1/system/settings",
		map[string]interface{}{"notify.smtp_password": "hunter2"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []domain.SysConfig
	f.request(t, http.MethodGet, "/api/v1/system/settings?category=notify", nil, &rows)
	for _, row := range rows {
		if row.Name == "smtp_password" {
			assert.Equal(t, "********", row.Value)
		}
	}
}

func TestSchedulerConsole(t *testing.T) {
	f := newConsoleFixture(t)

	create := map[string]interface{}{
		"name":      "Nightly Backup",
		"task_type": "database_backup",
		"interval":  86400,
	}
	var sched domain.StoreScheduler
	resp := f.request(t, http.MethodPost, "/api/v1/store/schedulers", create, &sched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "enabled", sched.Status)
	assert.False(t, sched.NextRunAt.IsZero())

	// Unknown task types never reach the runner
	var envelope map[string]interface{}
	resp = f.request(t, http.MethodPost, "/api/v1/store/schedulers", map[string]interface{}{
		"name":      "Bad Task",
		"task_type": "mine_bitcoin",
		"interval":  60,
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", envelope["code"])

	var updated domain.StoreScheduler
	resp = f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/store/schedulers/%d", sched.ID),
		map[string]interface{}{"status": "disabled"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "disabled", updated.Status)

	resp = f.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/store/schedulers/%d", sched.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestOprLogTrail(t *testing.T) {
	f := newConsoleFixture(t)

	f.request(t, http.MethodPost, "/api/v1/store/products", map[string]interface{}{
		"name":           "Audit Target",
		"price":          10,
		"stock_quantity": 1,
	}, nil)

	var listing ListResponse
	resp := f.request(t, http.MethodGet, "/api/v1/system/oprlogs?action=create_product", nil, &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, listing.Total, int64(1))
}

func TestTableInspector(t *testing.T) {
	f := newConsoleFixture(t)

	var tables []InspectorTable
	resp := f.request(t, http.MethodGet, "/api/v1/dbms/tables", nil, &tables)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	assert.Contains(t, names, "products")
	assert.Contains(t, names, "orders")

	var columns []InspectorColumn
	resp = f.request(t, http.MethodGet, "/api/v1/dbms/tables/products/schema", nil, &columns)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hasID := false
	for _, col := range columns {
		if col.Name == "id" {
			hasID = true
			assert.True(t, col.PrimaryKey)
		}
	}
	assert.True(t, hasID)

	// Tables outside the store schema are invisible
	resp = f.request(t, http.MethodGet, "/api/v1/dbms/tables/sqlite_master", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var info InspectorServerInfo
	resp = f.request(t, http.MethodGet, "/api/v1/dbms/serverinfo", nil, &info)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sqlite", info.DatabaseType)
	assert.Equal(t, len(tables), info.TableCount)
}

func TestProductExportImport(t *testing.T) {
	f := newConsoleFixture(t)

	sku := "EXP-001"
	require.NoError(t, f.db.Create(&domain.Product{
		Name:          "Export Target",
		Price:         decimal.RequireFromString("49.99"),
		StockQuantity: 5,
		IsActive:      true,
		Sku:           &sku,
		Category:      "Fixtures",
	}).Error)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/export/products/csv", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "EXP-001")
	assert.Contains(t, resp.Header.Get(echo.HeaderContentDisposition), "products.csv")

	csvBody := "sku,name,description,category,price,stock_quantity,is_active\n" +
		"IMP-001,Imported Product,From csv,Fixtures,19.99,3,true\n" +
		"EXP-001,Duplicate Sku,Should fail,Fixtures,9.99,1,true\n" +
		"IMP-002,Bad Price,Unparseable,Fixtures,not-a-price,1,true\n"
	req, err = http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/import/products", strings.NewReader(csvBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Imported int      `json:"imported"`
		Failed   int      `json:"failed"`
		Errors   []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Failed)

	var count int64
	f.db.Model(&domain.Product{}).Where("sku = ?", "IMP-001").Count(&count)
	assert.EqualValues(t, 1, count)
}
