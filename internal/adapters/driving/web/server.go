// Package web serves the browser UI: upload a document, run the four agents
// and download the response.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
	"github.com/custodia-labs/bidwright/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// shutdownTimeout bounds graceful shutdown. Stage calls in flight are not
// waited for beyond it.
const shutdownTimeout = 10 * time.Second

// Ports aggregates the services the web UI drives.
type Ports struct {
	Pipeline driving.PipelineService
	Export   driving.ExportService

	// Extensions lists accepted upload extensions for the file picker.
	Extensions []string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return errors.New("web: pipeline service is required")
	}
	if p.Export == nil {
		return errors.New("web: export service is required")
	}
	return nil
}

// Config holds server options.
type Config struct {
	// Addr is the listen address.
	Addr string

	// AccessPassword gates every page except /login, /healthz and /metrics.
	// Empty leaves the UI open.
	AccessPassword string

	// SessionTTL is the session cookie lifetime.
	SessionTTL time.Duration

	// MaxUploadMB caps the request body of /upload.
	MaxUploadMB int

	// SecureCookies marks cookies Secure for HTTPS deployments.
	SecureCookies bool
}

// Server is the echo application.
type Server struct {
	ports   *Ports
	cfg     Config
	metrics *Metrics
	echo    *echo.Echo
	log     *zap.SugaredLogger
}

// NewServer builds the router. Metrics may be nil, in which case /metrics
// is not served.
func NewServer(ports *Ports, cfg Config, metrics *Metrics) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	defaults := domain.DefaultAppSettings().Server
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaults.MaxUploadMB
	}

	s := &Server{
		ports:   ports,
		cfg:     cfg,
		metrics: metrics,
		echo:    echo.New(),
		log:     logger.Named("http"),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(s.requestLog)
	if s.metrics != nil {
		e.Use(s.metrics.middleware)
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/login", s.loginPage)
	e.POST("/login", s.login)
	e.POST("/logout", s.logout)

	app := e.Group("", s.requireAccess)
	app.GET("/", s.index)
	app.POST("/upload", s.upload, middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.MaxUploadMB)))
	app.POST("/run", s.run)
	app.POST("/step", s.step)
	app.POST("/reset", s.reset)
	app.GET("/export/:format", s.export)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on the configured address until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	}
}

// requestLog writes one structured line per request.
func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			status = statusFor(err)
		}
		s.log.Infow("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
		return err
	}
}

// handleError renders errors that escape a handler as plain text.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusFor(err)
	msg := userMessage(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Request().URL.Path, "status", code, "error", err)
	}
	if err := c.String(code, msg); err != nil {
		s.log.Warnw("writing error response", "error", err)
	}
}
