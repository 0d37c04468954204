package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/user"
)

// NewConfig returns the configuration the tests run with: in-memory store, no request logs.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Staffroom",
		SecretKey:        "t3st-s3cr3t",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Staffroom", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{InMemory: true},
		Allowance: core.AllowanceConfig{
			Policy:       "formula",
			JHSNumerator: "jhs_classes",
			MinWeek:      1,
			MaxWeek:      16,
		},
		Attendance: core.AttendanceConfig{
			WorkHoursPolicy:   "overnight",
			ExpectedCheckIn:   "08:00",
			AcademicYearStart: time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
			TermWeeks:         16,
		},
		Pagination: core.PaginationConfig{DefaultSize: 20, MaxSize: 100},
	}
}

// CreateUser stores a user directly, bypassing the service validations.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
