package storeapi

import (
	"net/http"

	"github.com/elbrussoft/webstore/internal/app"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// GetAppContext returns the application context injected by the web server.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

// commerceFail maps a commerce error onto the storefront reply. The reason
// code picks the HTTP status so buyers see a stable, typed refusal.
func commerceFail(c echo.Context, err error) error {
	code := commerce.ReasonCode(err)
	return fail(c, statusForReason(code), code, err.Error(), nil)
}

func statusForReason(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_REQUEST", "MISSING_ID":
		return http.StatusBadRequest
	case "NOT_ACTIVE", "OUT_OF_STOCK", "SKU_EXISTS", "PRODUCT_REFERENCED", "ILLEGAL_TRANSITION":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]map[string]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
}
