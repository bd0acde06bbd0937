package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

type orderStatusPayload struct {
	Status string `json:"status" validate:"required,min=1,max=20"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/store/orders", listOrders)
	webserver.ApiGET("/store/orders/:id", getOrder)
	webserver.ApiPUT("/store/orders/:id/status", updateOrderStatus)
}

// ListOrders retrieves the order ledger with console filters
// @Summary get the order list
// @Tags Orders
// @Param page query int false "Page number"
// @Param pageSize query int false "Items per page"
// @Param status query string false "Lifecycle status"
// @Param customer_id query int false "Owning customer"
// @Param q query string false "Order number search"
// @Param start query string false "Created at or after"
// @Param end query string false "Created before"
// @Success 200 {object} ListResponse
// @Router /api/v1/store/orders [get]
func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	allowed := map[string]string{
		"id":           "id",
		"order_number": "order_number",
		"status":       "status",
		"total_amount": "total_amount",
		"created_at":   "created_at",
		"updated_at":   "updated_at",
	}
	sortCol, found := allowed[sortField]
	if !found || sortCol == "" {
		sortCol = "id"
	}

	db := GetDB(c).Model(&domain.Order{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if customerID := strings.TrimSpace(c.QueryParam("customer_id")); customerID != "" {
		db = db.Where("customer_id = ?", customerID)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if db.Dialector.Name() == "postgres" {
			db = db.Where("order_number ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("order_number LIKE ?", "%"+strings.ToUpper(q)+"%")
		}
	}
	// start/end accept anything dateparse understands, 2024-03-01 or RFC3339 alike
	if start := strings.TrimSpace(c.QueryParam("start")); start != "" {
		t, err := dateparse.ParseIn(start, time.Local)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse start date", err.Error())
		}
		db = db.Where("created_at >= ?", t)
	}
	if end := strings.TrimSpace(c.QueryParam("end")); end != "" {
		t, err := dateparse.ParseIn(end, time.Local)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse end date", err.Error())
		}
		db = db.Where("created_at < ?", t)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	var rows []domain.Order
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

// getOrder returns one order with its line items and payment attempts.
func getOrder(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	ctx := c.Request().Context()
	orders := GetAppContext(c).Orders()

	order, err := orders.GetByID(ctx, id)
	if err != nil {
		return commerceFail(c, err)
	}
	items, err := orders.Items(ctx, order.ID)
	if err != nil {
		return commerceFail(c, err)
	}
	payments, err := orders.Payments(ctx, order.ID)
	if err != nil {
		return commerceFail(c, err)
	}

	return ok(c, map[string]interface{}{
		"order":    order,
		"items":    items,
		"payments": payments,
	})
}

// updateOrderStatus drives an order through its lifecycle. Transitions that
// skip a stage or leave a terminal status are rejected with a conflict.
func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	var payload orderStatusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	order, err := GetAppContext(c).Orders().SetStatus(c.Request().Context(), id, payload.Status)
	if err != nil {
		return commerceFail(c, err)
	}

	writeOprLog(c, GetCurrentUsername(c), "update_order_status", order.OrderNumber+" -> "+order.Status)
	return ok(c, order)
}
