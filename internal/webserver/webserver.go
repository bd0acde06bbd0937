// Package webserver hosts the HTTP surface: the public storefront under
// /store and the operator console API under /api/v1. Handler packages
// register their routes through the package-level registries before the
// server is built.
package webserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/elbrussoft/webstore/internal/app"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

var (
	apiRoutes   []route
	storeRoutes []route

	server *WebServer
)

// ApiGET registers a GET route under the protected /api/v1 group.
func ApiGET(path string, h echo.HandlerFunc) {
	apiRoutes = append(apiRoutes, route{http.MethodGet, path, h})
}

// ApiPOST registers a POST route under the protected /api/v1 group.
func ApiPOST(path string, h echo.HandlerFunc) {
	apiRoutes = append(apiRoutes, route{http.MethodPost, path, h})
}

// ApiPUT registers a PUT route under the protected /api/v1 group.
func ApiPUT(path string, h echo.HandlerFunc) {
	apiRoutes = append(apiRoutes, route{http.MethodPut, path, h})
}

// ApiDELETE registers a DELETE route under the protected /api/v1 group.
func ApiDELETE(path string, h echo.HandlerFunc) {
	apiRoutes = append(apiRoutes, route{http.MethodDelete, path, h})
}

// StoreGET registers a public GET route under the /store group.
func StoreGET(path string, h echo.HandlerFunc) {
	storeRoutes = append(storeRoutes, route{http.MethodGet, path, h})
}

// StorePOST registers a public POST route under the /store group.
func StorePOST(path string, h echo.HandlerFunc) {
	storeRoutes = append(storeRoutes, route{http.MethodPost, path, h})
}

type WebServer struct {
	appCtx app.AppContext
	root   *echo.Echo
}

// Init builds the package singleton used by Listen.
func Init(appCtx app.AppContext) *WebServer {
	server = NewWebServer(appCtx)
	return server
}

// Listen starts the singleton server and blocks.
func Listen() error {
	if server == nil {
		return errors.New("webserver not initialized")
	}
	return server.Start()
}

// NewWebServer assembles the echo instance with all registered routes. The
// store group carries cookie sessions, the api group requires a bearer
// token except for the login endpoint.
func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JsoniterSerializer{}
	e.Validator = NewCustomValidator()

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(injectAppContext(appCtx))

	secret := cfg.Web.Secret
	if secret == "" {
		secret = random.String(32)
		zap.L().Warn("web secret not configured, generated a transient one")
	}
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(secret))))

	store := e.Group("/store")
	for _, r := range storeRoutes {
		store.Add(r.method, r.path, r.handler)
	}

	api := e.Group("/api/v1")
	if nets := parseAllowNets(cfg.Web.AllowCIDR); len(nets) > 0 {
		api.Use(cidrFilter(nets))
	}
	api.Use(echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/login")
		},
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return parseBearerToken(auth, secret)
		},
	}))
	for _, r := range apiRoutes {
		api.Add(r.method, r.path, r.handler)
	}

	return &WebServer{appCtx: appCtx, root: e}
}

// Echo exposes the underlying handler for tests.
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Start() error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("starting web server on %s", addr)
	return s.root.Start(addr)
}

func (s *WebServer) Shutdown() error {
	return s.root.Close()
}

// parseBearerToken validates an HS256 token signed with the web secret.
func parseBearerToken(auth, secret string) (*jwt.Token, error) {
	token, err := jwt.Parse(auth, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return token, nil
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("http request", fields...)
			return nil
		},
	})
}
