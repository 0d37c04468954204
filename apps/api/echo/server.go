package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
)

var NowFunc = time.Now // mockable; stamps generated reports

type (
	Deps struct {
		UserSvc       *user.Service
		AllowanceSvc  *allowance.Service
		AttendanceSvc *attendance.Service
		TeacherSvc    *teacher.Service
		StudentSvc    *student.Service
		CanteenSvc    *canteen.Service
		MailSvc       core.EmailService
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     *Deps
		auth     *Auth
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		auth:     NewAuth(conf),
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.signalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.Middleware()

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc)
	registerAllowanceAPI(v1, jwt, s.conf, s.deps.AllowanceSvc, s.deps.MailSvc)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.TeacherSvc)
	registerTeacherAPI(v1, jwt, s.deps.TeacherSvc)
	registerStudentAPI(v1, jwt, s.deps.StudentSvc)
	registerCanteenAPI(v1, jwt, s.deps.CanteenSvc)
}

// Auth returns the token issuer of the server.
func (s *Server) Auth() *Auth { return s.auth }

// Start listens on the configured address. It blocks until the server stops;
// failures are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
