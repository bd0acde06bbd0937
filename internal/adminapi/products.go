package adminapi

import (
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type productPayload struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"min=0"`
	IsActive      *bool           `json:"is_active"`
	Sku           string          `json:"sku" validate:"omitempty,max=50"`
	Category      string          `json:"category" validate:"omitempty,max=100"`
	ImageURL      string          `json:"image_url" validate:"omitempty,max=500"`
}

// registerProductRoutes registers catalog management endpoints
func registerProductRoutes() {
	webserver.ApiGET("/store/products", listProducts)
	webserver.ApiGET("/store/products/:id", getProduct)
	webserver.ApiPOST("/store/products", createProduct)
	webserver.ApiPUT("/store/products/:id", updateProduct)
	webserver.ApiDELETE("/store/products/:id", deleteProduct)
}

// ListProducts retrieves the catalog with console filters
// @Summary get the product list
// @Tags Products
// @Param page query int false "Page number"
// @Param pageSize query int false "Items per page"
// @Param q query string false "Name search"
// @Param category query string false "Exact category"
// @Param is_active query string false "Active flag filter"
// @Success 200 {object} ListResponse
// @Router /api/v1/store/products [get]
func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	// whitelist allowed sort columns to avoid SQL injection
	allowed := map[string]string{
		"id":             "id",
		"name":           "name",
		"price":          "price",
		"stock_quantity": "stock_quantity",
		"category":       "category",
		"created_at":     "created_at",
		"updated_at":     "updated_at",
	}
	sortCol, found := allowed[sortField]
	if !found || sortCol == "" {
		sortCol = "id"
	}

	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if db.Dialector.Name() == "postgres" {
			db = db.Where("name ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", category)
	}
	if active := strings.TrimSpace(c.QueryParam("is_active")); active != "" {
		db = db.Where("is_active = ?", active == "true")
	}
	if sku := strings.TrimSpace(c.QueryParam("sku")); sku != "" {
		db = db.Where("sku = ?", sku)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	product, err := GetAppContext(c).Catalog().GetByID(c.Request().Context(), id)
	if err != nil {
		return commerceFail(c, err)
	}
	return ok(c, product)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	product, err := GetAppContext(c).Catalog().Create(c.Request().Context(), commerce.ProductInput{
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         payload.Price,
		StockQuantity: payload.StockQuantity,
		IsActive:      payload.IsActive,
		Sku:           payload.Sku,
		Category:      payload.Category,
		ImageURL:      payload.ImageURL,
	})
	if err != nil {
		return commerceFail(c, err)
	}

	writeOprLog(c, GetCurrentUsername(c), "create_product", product.Name)
	return ok(c, product)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	product, err := GetAppContext(c).Catalog().Update(c.Request().Context(), id, commerce.ProductInput{
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         payload.Price,
		StockQuantity: payload.StockQuantity,
		IsActive:      payload.IsActive,
		Sku:           payload.Sku,
		Category:      payload.Category,
		ImageURL:      payload.ImageURL,
	})
	if err != nil {
		return commerceFail(c, err)
	}

	writeOprLog(c, GetCurrentUsername(c), "update_product", product.Name)
	return ok(c, product)
}

// deleteProduct removes a product that has never been ordered. Products
// referenced by order history are rejected, deactivate them instead.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetAppContext(c).Catalog().Delete(c.Request().Context(), id); err != nil {
		return commerceFail(c, err)
	}

	writeOprLog(c, GetCurrentUsername(c), "delete_product", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
