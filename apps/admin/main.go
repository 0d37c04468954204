package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
	logsvc "github.com/trezcool/staffroom/services/logger"
	"github.com/trezcool/staffroom/storage/database"
	dummydb "github.com/trezcool/staffroom/storage/database/dummy"
	sqlxrepos "github.com/trezcool/staffroom/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	user.LoadCommonPasswords(conf, logger)

	cli := commandLine{conf: conf, out: os.Stdout}
	if conf.Database.InMemory {
		db := dummydb.Open()
		setUpServices(&cli, dummydb.NewUserRepository(db), dummydb.NewAllowanceRepository(db), dummydb.NewAttendanceRepository(db),
			dummydb.NewTeacherRepository(db), dummydb.NewStudentRepository(db))
	} else {
		// set up DB
		db, err := database.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()

		cli.db = db
		xdb := sqlxrepos.NewDB(db)
		setUpServices(&cli, sqlxrepos.NewUserRepository(xdb), sqlxrepos.NewAllowanceRepository(xdb), sqlxrepos.NewAttendanceRepository(xdb),
			sqlxrepos.NewTeacherRepository(xdb), sqlxrepos.NewStudentRepository(xdb))
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		exit(cli.db, 1)
	}
}

func setUpServices(
	cli *commandLine,
	usrRepo user.Repository,
	allowanceRepo allowance.Repository,
	attRepo attendance.Repository,
	teacherRepo teacher.Repository,
	studentRepo student.Repository,
) {
	allowanceSvc, err := allowance.NewService(cli.conf, allowanceRepo)
	errAndDie(err)

	cli.usrSvc = user.NewService(usrRepo)
	cli.allowanceSvc = allowanceSvc
	cli.attendanceSvc = attendance.NewService(cli.conf, attRepo,
		teacher.NewService(teacherRepo, attRepo),
		student.NewService(cli.conf, studentRepo, attRepo),
	)
}

// exit closes the database before leaving, deferred calls do not run on os.Exit.
func exit(db *sql.DB, code int) {
	if db != nil {
		_ = db.Close()
	}
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
