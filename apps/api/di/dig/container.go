package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/staffroom/apps/api/echo"
	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
	emailsvc "github.com/trezcool/staffroom/services/email"
	logsvc "github.com/trezcool/staffroom/services/logger"
	"github.com/trezcool/staffroom/storage/database"
	dummydb "github.com/trezcool/staffroom/storage/database/dummy"
	sqlxrepos "github.com/trezcool/staffroom/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBCloser releases the database connection, if any.
type DBCloser func() error

// Repositories are backed by Postgres, or kept in memory when `database.inMemory` is set.
type Repositories struct {
	dig.Out
	Users      user.Repository
	Allowances allowance.Repository
	Attendance attendance.Repository
	Teachers   teacher.Repository
	Students   student.Repository
	Canteen    canteen.Repository
	Close      DBCloser
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	UserSvc       *user.Service
	AllowanceSvc  *allowance.Service
	AttendanceSvc *attendance.Service
	TeacherSvc    *teacher.Service
	StudentSvc    *student.Service
	CanteenSvc    *canteen.Service
	MailSvc       core.EmailService
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.InMemory {
		loggerParam.Logger.Warn("using the in-memory store: data is lost on shutdown")
		db := dummydb.Open()
		return Repositories{
			Users:      dummydb.NewUserRepository(db),
			Allowances: dummydb.NewAllowanceRepository(db),
			Attendance: dummydb.NewAttendanceRepository(db),
			Teachers:   dummydb.NewTeacherRepository(db),
			Students:   dummydb.NewStudentRepository(db),
			Canteen:    dummydb.NewCanteenRepository(db),
			Close:      func() error { return nil },
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	sqlDB, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(sqlDB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	db := sqlxrepos.NewDB(sqlDB)
	return Repositories{
		Users:      sqlxrepos.NewUserRepository(db),
		Allowances: sqlxrepos.NewAllowanceRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		Teachers:   sqlxrepos.NewTeacherRepository(db),
		Students:   sqlxrepos.NewStudentRepository(db),
		Canteen:    sqlxrepos.NewCanteenRepository(db),
		Close:      db.Close,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAttendanceService(conf *core.Config, repo attendance.Repository, teachers *teacher.Service, students *student.Service) *attendance.Service {
	return attendance.NewService(conf, repo, teachers, students)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, &echoapi.Deps{
		UserSvc:       p.UserSvc,
		AllowanceSvc:  p.AllowanceSvc,
		AttendanceSvc: p.AttendanceSvc,
		TeacherSvc:    p.TeacherSvc,
		StudentSvc:    p.StudentSvc,
		CanteenSvc:    p.CanteenSvc,
		MailSvc:       p.MailSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(user.NewService))
	must(c.Provide(allowance.NewService))
	must(c.Provide(teacher.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(canteen.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
