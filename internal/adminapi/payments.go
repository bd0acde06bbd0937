package adminapi

import (
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func registerPaymentRoutes() {
	webserver.ApiGET("/store/payments", listPayments)
	webserver.ApiGET("/store/payments/:id", getPayment)
}

// ListPayments retrieves payment attempts
// @Summary get the payment list
// @Tags Payments
// @Param page query int false "Page number"
// @Param pageSize query int false "Items per page"
// @Param status query string false "Payment status"
// @Param order_id query int false "Owning order"
// @Param provider_payment_id query string false "Provider handle"
// @Success 200 {object} ListResponse
// @Router /api/v1/store/payments [get]
func listPayments(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Payment{})
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if method := strings.TrimSpace(c.QueryParam("payment_method")); method != "" {
		db = db.Where("payment_method = ?", method)
	}
	if orderID := strings.TrimSpace(c.QueryParam("order_id")); orderID != "" {
		db = db.Where("order_id = ?", orderID)
	}
	if pid := strings.TrimSpace(c.QueryParam("provider_payment_id")); pid != "" {
		db = db.Where("provider_payment_id = ?", pid)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query payments", err.Error())
	}

	var rows []domain.Payment
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query payments", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

// getPayment accepts either the numeric id or the PAY- provider handle.
func getPayment(c echo.Context) error {
	param := c.Param("id")
	if strings.HasPrefix(param, "PAY-") {
		payment, err := GetAppContext(c).Payments().GetByProviderID(c.Request().Context(), param)
		if err != nil {
			return commerceFail(c, err)
		}
		return ok(c, payment)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID", nil)
	}

	var payment domain.Payment
	if err := GetDB(c).First(&payment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Payment not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query payment", err.Error())
	}
	return ok(c, &payment)
}
