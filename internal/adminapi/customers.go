package adminapi

import (
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerCustomerRoutes() {
	webserver.ApiGET("/store/customers", listCustomers)
	webserver.ApiGET("/store/customers/:id", getCustomer)
}

// ListCustomers retrieves registered customers
// @Summary get the customer list
// @Tags Customers
// @Param page query int false "Page number"
// @Param pageSize query int false "Items per page"
// @Param q query string false "Email or name search"
// @Success 200 {object} ListResponse
// @Router /api/v1/store/customers [get]
func listCustomers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Customer{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		like := "%" + q + "%"
		if db.Dialector.Name() == "postgres" {
			db = db.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", like, like, like)
		} else {
			like = "%" + strings.ToLower(q) + "%"
			db = db.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
		}
	}
	if email := strings.TrimSpace(c.QueryParam("email")); email != "" {
		db = db.Where("email = ?", strings.ToLower(email))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}

	var rows []domain.Customer
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

// getCustomer returns one customer together with their order history.
func getCustomer(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}

	customer, err := GetAppContext(c).Customers().GetByID(c.Request().Context(), id)
	if err != nil {
		return commerceFail(c, err)
	}

	var orders []domain.Order
	if err := GetDB(c).Where("customer_id = ?", customer.ID).Order("id DESC").Find(&orders).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customer orders", err.Error())
	}

	return ok(c, map[string]interface{}{
		"customer": customer,
		"orders":   orders,
	})
}
