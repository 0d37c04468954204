package tests

import (
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	. "github.com/trezcool/staffroom/apps/api/echo"
	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
	emailsvc "github.com/trezcool/staffroom/services/email"
	logsvc "github.com/trezcool/staffroom/services/logger"
	dummydb "github.com/trezcool/staffroom/storage/database/dummy"
	"github.com/trezcool/staffroom/tests"
)

var (
	conf    *core.Config
	db      *dummydb.DB
	app     *Server
	usrRepo user.Repository
)

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(conf, logger)

	// set up DB & repos
	db = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	attRepo := dummydb.NewAttendanceRepository(db)

	// set up services
	allowanceSvc, err := allowance.NewService(conf, dummydb.NewAllowanceRepository(db))
	if err != nil {
		fmt.Printf("allowance.NewService(): %v", err)
		os.Exit(1)
	}
	teacherSvc := teacher.NewService(dummydb.NewTeacherRepository(db), attRepo)
	studentSvc := student.NewService(conf, dummydb.NewStudentRepository(db), attRepo)

	// set up server
	app = NewServer(conf, logger, &Deps{
		UserSvc:       user.NewService(usrRepo),
		AllowanceSvc:  allowanceSvc,
		AttendanceSvc: attendance.NewService(conf, attRepo, teacherSvc, studentSvc),
		TeacherSvc:    teacherSvc,
		StudentSvc:    studentSvc,
		CanteenSvc:    canteen.NewService(dummydb.NewCanteenRepository(db)),
		MailSvc:       emailsvc.NewConsoleServiceMock(conf),
	})

	os.Exit(m.Run())
}
