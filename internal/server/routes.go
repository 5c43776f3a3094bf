package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"fitplan/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are rendered inside templates/base.html.
var pages = []string{"generate.html", "plan.html", "track.html"}

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every page together with the shared layout.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = utility.IPExtractor(s.cfg.TrustProxy)

	e.Use(middleware.Recover())
	e.Use(LoggerMiddleware)
	e.Use(RequestLogMiddleware())

	renderer, err := NewTemplateRenderer()
	if err != nil {
		// Templates are embedded, so this only fails on a broken build.
		panic(err)
	}
	e.Renderer = renderer

	e.GET("/health", s.healthHandler)

	// Every tab shares the browser session.
	tabs := e.Group("", s.SessionMiddleware)

	tabs.GET("/", s.generateTabHandler)
	tabs.GET("/plan", s.planTabHandler)
	tabs.GET("/track", s.trackTabHandler)
	tabs.POST("/track", s.updateProgressHandler)
	tabs.GET("/ws", s.websocketHandler)

	// Model-backed actions are rate limited per client IP.
	limiter := s.generateRateLimiter()
	tabs.POST("/generate", s.generatePlanHandler, limiter)
	tabs.POST("/track/next", s.generateFollowUpHandler, limiter)

	return e
}

// LoggerMiddleware attaches a request ID and a request-scoped zerolog logger, both to
// the echo context and to the request context used by the services.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}

// RequestLogMiddleware writes one zerolog line per request.
func RequestLogMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger := getLogger(c)
			event := logger.Info()
			if v.Error != nil {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// SessionMiddleware resolves the browser session and adds it to the logger.
func (s *Server) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID, err := s.cookies.ID(c.Response(), c.Request())
		if err != nil {
			getLogger(c).Error().Err(err).Msg("Failed to establish session")
			return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
		}
		c.Set("session_id", sessionID)

		logger := getLogger(c).With().Str("session_id", sessionID).Logger()
		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}

func (s *Server) generateRateLimiter() echo.MiddlewareFunc {
	perMinute := s.cfg.GenerateRateLimit
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perMinute / 60),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			getLogger(c).Warn().Str("ip", identifier).Msg("Generation rate limit exceeded")
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many plan requests. Please wait a minute and try again.")
		},
	})
}

// getLogger returns the request-scoped logger set by LoggerMiddleware.
func getLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get("logger").(*zerolog.Logger); ok {
		return logger
	}
	return &log.Logger
}

// getSessionID returns the session ID set by SessionMiddleware.
func getSessionID(c echo.Context) string {
	id, _ := c.Get("session_id").(string)
	return id
}
