package adminapi

import (
	"net/http"
	"strconv"

	"github.com/elbrussoft/webstore/internal/app"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ListResponse is the paged list envelope returned by list endpoints.
type ListResponse struct {
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

// GetAppContext returns the application container injected by the webserver.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns the request database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
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

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{
		Data:    data,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	})
}

// commerceFail translates a commerce service error into the HTTP envelope
// using its stable reason code.
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
	case "SKU_EXISTS", "PRODUCT_REFERENCED", "ILLEGAL_TRANSITION", "OUT_OF_STOCK", "NOT_ACTIVE":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleValidationError renders go-playground validation failures as a
// field level detail list.
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

// parsePagination reads page/pageSize query params with console defaults.
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

// parseIDParam parses the :id path segment.
func parseIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// GetCurrentUsername extracts the operator name from the verified token.
func GetCurrentUsername(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	username, _ := claims["usr"].(string)
	return username
}
