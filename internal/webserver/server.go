package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ApiPrefix is the mount point of every registered api route
const ApiPrefix = "/api/v1"

// AppContextKey stores the application context on each request
const AppContextKey = "appctx"

type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
}

var (
	routesMu sync.Mutex
	routes   []Route
)

func addRoute(method, path string, h echo.HandlerFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	for i, r := range routes {
		if r.Method == method && r.Path == path {
			routes[i].Handler = h
			return
		}
	}
	routes = append(routes, Route{Method: method, Path: path, Handler: h})
}

func ApiGET(path string, h echo.HandlerFunc) {
	addRoute(http.MethodGet, path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	addRoute(http.MethodPost, path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	addRoute(http.MethodPut, path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	addRoute(http.MethodDelete, path, h)
}

// Routes returns a copy of the registered api routes
func Routes() []Route {
	routesMu.Lock()
	defer routesMu.Unlock()
	return append([]Route(nil), routes...)
}

// Validator adapts go-playground validation to echo.Context.Validate
type Validator struct {
	validate *validator.Validate
}

func NewValidator(v *validator.Validate) *Validator {
	if v == nil {
		v = validator.New()
	}
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Config struct {
	Host      string
	Port      int
	BodyLimit string
	Debug     bool
}

// AdminServer serves the registered api routes
type AdminServer struct {
	root *echo.Echo
	addr string
}

// NewAdminServer mounts every route registered so far. appctx is made
// available to handlers under AppContextKey.
func NewAdminServer(cfg Config, appctx interface{}, v *validator.Validate) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.Validator = NewValidator(v)

	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "webserver"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zap.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appctx)
			return next(c)
		}
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	api := e.Group(ApiPrefix)
	for _, r := range Routes() {
		api.Add(r.Method, r.Path, r.Handler)
	}

	return &AdminServer{root: e, addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)}
}

// Handler exposes the router, mainly for httptest
func (s *AdminServer) Handler() http.Handler {
	return s.root
}

func (s *AdminServer) Addr() string {
	return s.addr
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *AdminServer) Start() error {
	zap.L().Info("admin api listening", zap.String("namespace", "webserver"), zap.String("addr", s.addr))
	err := s.root.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.root.Shutdown(ctx)
}
