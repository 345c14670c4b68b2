package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assessment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/score"
	"github.com/trezcool/darasa/core/user"
)

type Options struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc       user.Service
	CourseSvc     course.Service
	AssessmentSvc assessment.Service
	ScoreSvc      score.Service
	Reports       *report.Engine
	Mailer        *report.Mailer

	// Registry exposes the app metrics on /metrics; a new one is created if nil.
	Registry *prometheus.Registry
	// HealthCheck reports whether the app's dependencies are reachable (optional).
	HealthCheck func(ctx context.Context) error
}

type Server struct {
	opts     Options
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware(s.opts.Registry))

	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})))

	api := s.app.Group("/api")
	registerUserAPI(api, s.opts.UserSvc, s.opts.Validate)
	registerCourseAPI(api, s.opts.CourseSvc, s.opts.AssessmentSvc, s.opts.Reports, s.opts.Validate)
	registerAssessmentAPI(api, s.opts.AssessmentSvc, s.opts.ScoreSvc, s.opts.Reports, s.opts.Mailer, s.opts.Validate)
	registerReportAPI(api, s.opts.CourseSvc, s.opts.AssessmentSvc, s.opts.Reports)
	api.Any("", notFound)
	api.Any("/*", notFound)

	registerSPA(s.app, conf.Server.PublicDir)
}

// Start listens on the configured address; it returns once the server stops (errors are sent to Errors()).
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) health(ctx echo.Context) error {
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(ctx.Request().Context()); err != nil {
			s.opts.Logger.Error("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.opts.Conf.Build})
}

func notFound(echo.Context) error {
	return echo.ErrNotFound
}
