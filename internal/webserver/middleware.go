package webserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/c-robinson/iplib"
	"github.com/elbrussoft/webstore/internal/app"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AppContextKey is the echo context key the application container is
// stored under.
const AppContextKey = "app_context"

func injectAppContext(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	}
}

// JsoniterSerializer swaps echo's JSON codec for jsoniter.
type JsoniterSerializer struct{}

func (s *JsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsoniter.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (s *JsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := jsoniter.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

// CustomValidator adapts go-playground validator to echo's Validator
// interface so handlers can call c.Validate.
type CustomValidator struct {
	validate *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

// parseAllowNets parses a comma separated CIDR allow list. Bare addresses
// are treated as /32.
func parseAllowNets(allowCIDR string) []iplib.Net {
	var nets []iplib.Net
	for _, cidr := range strings.Split(allowCIDR, ",") {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if !strings.Contains(cidr, "/") {
			cidr += "/32"
		}
		_, ipnet, err := iplib.ParseCIDR(cidr)
		if err != nil {
			zap.L().Warn("skipping invalid allow_cidr entry", zap.String("cidr", cidr), zap.Error(err))
			continue
		}
		nets = append(nets, ipnet)
	}
	return nets
}

// cidrFilter rejects api requests from addresses outside the allow list.
func cidrFilter(nets []iplib.Net) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := net.ParseIP(c.RealIP())
			if ip == nil {
				return echo.NewHTTPError(http.StatusForbidden, "unresolvable client address")
			}
			for _, n := range nets {
				if n.Contains(ip) {
					return next(c)
				}
			}
			zap.L().Warn("api request outside allow list", zap.String("remote_ip", c.RealIP()))
			return echo.NewHTTPError(http.StatusForbidden, "address not allowed")
		}
	}
}
