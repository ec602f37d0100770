package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		SchoolSvc     *school.Service
		SessionSvc    *session.Service
		ClassSvc      *class.Service
		StudentSvc    *student.Service
		EnrollmentSvc *enrollment.Service
		PromotionSvc  *promotion.Service
		Executor      *promotion.Executor
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	jwt := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey))
	sg := s.app.Group("/v1/schools/:school", jwt, schoolMiddleware())

	registerSchoolAPI(sg, s.deps.SchoolSvc)
	registerSessionAPI(sg, s.deps.SessionSvc)
	registerClassAPI(sg, s.deps.ClassSvc)
	registerStudentAPI(sg, s.deps.StudentSvc, s.deps.EnrollmentSvc)
	registerEnrollmentAPI(sg, s.deps.EnrollmentSvc)
	registerPromotionAPI(sg, s.deps.PromotionSvc, s.deps.Executor, s.deps.Logger)
}

// Start serves until the server is shut down; other failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
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
	default:
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

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
