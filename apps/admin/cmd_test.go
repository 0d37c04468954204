package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/user"
	"github.com/trezcool/staffroom/storage/database"
	dummydb "github.com/trezcool/staffroom/storage/database/dummy"
	"github.com/trezcool/staffroom/tests"
)

const pwd = "Str0ng!Pass"

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig()

	// set up DB & repos
	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)

	var out bytes.Buffer
	cli := &commandLine{conf: conf, out: &out}
	setUpServices(cli, usrRepo, dummydb.NewAllowanceRepository(db), dummydb.NewAttendanceRepository(db),
		dummydb.NewTeacherRepository(db), dummydb.NewStudentRepository(db))
	return cli, &out
}

func mockPassword(pwd string) (restore func()) {
	prev := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	return func() { readPasswordFunc = prev }
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)

	err := cli.run([]string{"admin"})
	assert.Equal(t, errHelp, err)
	assert.Contains(t, out.String(), "adduser")
	assert.Contains(t, out.String(), "resetpassword")

	err = cli.run([]string{"admin", "lol"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "lol"`)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	t.Run("in-memory store", func(t *testing.T) {
		assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})

	conf := testutil.NewConfig()
	conf.Database.Engine = "postgres"
	conf.Database.Host = "localhost"
	conf.Database.Port = 5432
	conf.Database.Name = "staffroom_test"
	db, err := database.Open(conf) // lazy: nothing is dialed
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	cli.db = db

	restore := database.SetMigrationRunner(func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	})
	defer restore()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "migrating database: \"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "migrating database: up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "migrating database: version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "migrating database: down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	former := testutil.CreateUser(t, usrRepo, "Kojo Former", "kojo", "kojo@school.gh", pwd, []string{user.RoleStaffTeacher}, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no username nor email", args: []string{"adduser"}, extra: extra{pwd: pwd}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-u", "efua"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "-u", "efua", "-r", "staff:cook"}, extra: extra{pwd: pwd}, wantErrStr: "validation failed"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var p string
			if e, ok := tt.extra.(extra); ok {
				p = e.pwd
			}
			defer mockPassword(p)()

			err := cli.run(args)
			if tt.wantErrStr != "" {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err), "expected a validation error, got %v", err)
				return
			}
			tt.check(t, err)
		})
	}

	t.Run("weak password", func(t *testing.T) {
		defer mockPassword("12345678")()

		err := cli.run([]string{"admin", "adduser", "-u", "efua"})
		require.Error(t, err)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "expected a validation error, got %v", err)
		assert.True(t, vErr.HasField("password"))
	})

	t.Run("create", func(t *testing.T) {
		defer mockPassword(pwd)()
		out.Reset()

		err := cli.run([]string{"admin", "adduser", "-n", "Efua Bursar", "-u", "Efua", "-e", "efua@school.gh", "-r", user.RoleStaffBursar})
		require.NoError(t, err)
		assert.Contains(t, out.String(), `user "efua" saved`)

		usr, err := usrRepo.GetUserByUsernameOrEmail(ctx, "efua")
		require.NoError(t, err)
		assert.Equal(t, "Efua Bursar", usr.Name)
		assert.Equal(t, []string{user.RoleStaffBursar}, usr.Roles)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(pwd))
	})

	t.Run("admin", func(t *testing.T) {
		defer mockPassword(pwd)()

		require.NoError(t, cli.run([]string{"admin", "adduser", "-e", "owner@school.gh", "--admin"}))

		usr, err := usrRepo.GetUserByUsernameOrEmail(ctx, "owner@school.gh")
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin())
	})

	t.Run("reactivate", func(t *testing.T) {
		newPwd := "N3w&Secret"
		defer mockPassword(newPwd)()

		require.NoError(t, cli.run([]string{"admin", "adduser", "-u", former.Username}))

		usr, err := usrRepo.GetUserByID(ctx, former.ID)
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
		assert.Equal(t, former.Roles, usr.Roles, "roles are kept")
		assert.NoError(t, usr.CheckPassword(newPwd))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Ama Owusu", "amao", "ama@school.gh", pwd, nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-u", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-u", "lol"}, extra: extra{pwd: "Val1d&Pass"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-u", usr.Username}, extra: extra{pwd: "Val1d&Pass"}},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: extra{pwd: "An0ther&Pass"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var p string
			if e, ok := tt.extra.(extra); ok {
				p = e.pwd
			}
			defer mockPassword(p)()

			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
			if err != nil {
				t.Fatalf("GetUserByID() failed: %v", err)
			}
			if err = refreshedUsr.CheckPassword(p); err != nil {
				t.Error("failed to update new password")
			}
		})
	}
}

func Test_commandLine_calc(t *testing.T) {
	cli, out := setup(t)

	t.Run("valid", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{
			"admin", "calc", "-w", "3", "-t", "5", "-j", "3",
			"-c", "creche=200", "-c", "basic1=300", "--class", "basic7_general=500,basic8_jhs=90",
		})
		require.NoError(t, err)
		for _, line := range []string{
			fmt.Sprintf("%-22s %s\n", "Total sum:", "GH₵1,000.00"),
			fmt.Sprintf("%-22s %s\n", "Balance after kitchen:", "GH₵812.25"),
			fmt.Sprintf("%-22s %s\n", "Each teacher:", "GH₵162.45"),
			fmt.Sprintf("%-22s %s\n", "Each JHS teacher:", "GH₵30.00"),
		} {
			assert.Contains(t, out.String(), line)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{"admin", "calc", "-w", "3", "-c", "creche=200"})
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.Contains(t, out.String(), "number_of_teachers: number of teachers must be at least 1\n")
	})
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	for _, week := range []int{1, 2} {
		_, err := cli.allowanceSvc.Create(ctx, allowance.Input{
			WeekNumber:       week,
			Classes:          allowance.Classes{Creche: decimal.NewFromInt(200)},
			NumberOfTeachers: 2,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	t.Run("no kind", func(t *testing.T) {
		assert.Equal(t, errHelp, cli.run([]string{"admin", "export"}))
	})

	t.Run("allowances", func(t *testing.T) {
		out.Reset()
		path := filepath.Join(dir, "allowances.xlsx")
		require.NoError(t, cli.run([]string{"admin", "export", "allowances", "--to", "1", "-o", path}))
		assert.Equal(t, "1 records exported to "+path+"\n", out.String())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	})

	t.Run("attendance", func(t *testing.T) {
		out.Reset()
		path := filepath.Join(dir, "attendance.xlsx")
		require.NoError(t, cli.run([]string{"admin", "export", "attendance", "--from", "2024-09-01", "-o", path}))
		assert.Equal(t, "0 records exported to "+path+"\n", out.String())

		_, err := os.Stat(path)
		assert.NoError(t, err)
	})
}
