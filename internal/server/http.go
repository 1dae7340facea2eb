package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"sessiond/config"
	"sessiond/internal/actuator"
	"sessiond/internal/core"
	"sessiond/internal/security"
	"sessiond/internal/session"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	Sessions          *session.Manager // Required: binds sessions to requests
	Users             security.Users   // Accounts accepted by basic auth
	StoreType         string           // Reported by the health endpoint
	BodySizeLimit     int64            // Max request body size in bytes (default: 1MB)
	ManagementEnabled bool             // Whether to mount the /actuator endpoints
	MetricsEnabled    bool             // Whether to expose /actuator/prometheus
	SwaggerEnabled    bool             // Whether to serve Swagger UI at /swagger
}

// New creates a new HTTP server
func New(cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	handler := NewHandler()

	// Global middleware stack (order matters)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	// Sessions are resolved before authentication so a session principal
	// can authenticate the request.
	e.Use(cfg.Sessions.Middleware())
	e.Use(security.BasicAuth(security.Config{
		Users:     cfg.Users,
		SkipPaths: []string{actuator.BasePath + "/health", "/swagger/*"},
	}))

	e.GET("/", handler.Index)
	e.POST("/logout", handler.Logout)

	if cfg.ManagementEnabled {
		actuator.NewHandler(cfg.Sessions.Store(), cfg.StoreType, cfg.MetricsEnabled).Register(e)
	}
	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}

// errorHandler renders echo errors (401 from basic auth, 404 and 405 from
// the router, 413 from the body limit) in the APIError shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			apiErr = fromHTTPError(he)
		}
	}
	if apiErr == nil {
		slog.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		status := http.StatusInternalServerError
		if apiErr != nil {
			status = apiErr.HTTPStatusCode()
		}
		writeErr = c.NoContent(status)
	} else if apiErr != nil {
		writeErr = core.HandleError(c, apiErr)
	} else {
		writeErr = core.HandleError(c, err)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}

func fromHTTPError(he *echo.HTTPError) *core.APIError {
	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		message = m
	}

	var errType core.ErrorType
	switch {
	case he.Code == http.StatusUnauthorized:
		errType = core.ErrorTypeAuthentication
	case he.Code == http.StatusNotFound:
		errType = core.ErrorTypeNotFound
	case he.Code >= 400 && he.Code < 500:
		errType = core.ErrorTypeInvalidRequest
	default:
		errType = core.ErrorTypeInternal
	}
	return &core.APIError{Type: errType, Message: message, StatusCode: he.Code, Err: he}
}
