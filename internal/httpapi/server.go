package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"anthemengine/internal/domain"
	"anthemengine/internal/service"
	"anthemengine/internal/version"
)

// Anthems is the service surface the HTTP API exposes.
type Anthems interface {
	Generate(ctx context.Context, opportunityID string) (*domain.AnthemRun, error)
	Get(ctx context.Context, runID string) (*domain.AnthemRun, error)
	Latest(ctx context.Context, opportunityID string) (*domain.AnthemRun, error)
	List(ctx context.Context, limit int) ([]domain.AnthemRun, error)
}

// Server serves the anthem HTTP API.
type Server struct {
	echo    *echo.Echo
	anthems Anthems
	logger  logrus.FieldLogger
}

// New builds the router.
func New(anthems Anthems, logger logrus.FieldLogger) *Server {
	s := &Server{
		echo:    echo.New(),
		anthems: anthems,
		logger:  logger.WithField("component", "http"),
	}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")
			return nil
		},
	}))

	e.POST("/generateanthem", s.generate)
	e.GET("/anthems", s.list)
	e.GET("/anthems/:id", s.get)
	e.GET("/opportunities/:id/anthem", s.latest)
	e.GET("/healthz", s.health)
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ── Handlers ───────────────────────────────────────────────

type generateRequest struct {
	OpportunityID string `json:"opportunityId"`
}

type generateResponse struct {
	AnthemData    [][]float64 `json:"anthemData"`
	OpportunityID string      `json:"opportunityId"`
}

func (s *Server) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	run, err := s.anthems.Generate(c.Request().Context(), req.OpportunityID)
	if err != nil {
		return err
	}
	if run.ID != "" {
		c.Response().Header().Set("X-Anthem-Run", run.ID)
	}
	return c.JSON(http.StatusOK, generateResponse{AnthemData: run.Channels, OpportunityID: run.OpportunityID})
}

func (s *Server) get(c echo.Context) error {
	run, err := s.anthems.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) latest(c echo.Context) error {
	run, err := s.anthems.Latest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) list(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	runs, err := s.anthems.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []domain.AnthemRun{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Short()})
}

var _ Anthems = (*service.AnthemService)(nil)
