package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address
		ReportRecipients []mail.Address

		Server     ServerConfig
		Database   DatabaseConfig
		Allowance  AllowanceConfig
		Attendance AttendanceConfig
		Student    StudentConfig
		Pagination PaginationConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool // use the in-memory store (demo & tests)
	}

	// AllowanceConfig holds the allocation policy knobs.
	// Policy: "manual" | "formula". JHSNumerator: "jhs_classes" | "balance".
	AllowanceConfig struct {
		Policy         string
		JHSNumerator   string
		WelfareFormula string
		OfficeFormula  string
		KitchenFormula string
		MinWeek        int
		MaxWeek        int
	}

	// AttendanceConfig holds the attendance policy knobs.
	// WorkHoursPolicy: "overnight" | "same_day".
	AttendanceConfig struct {
		WorkHoursPolicy   string
		ExpectedCheckIn   string
		AcademicYearStart time.Time
		TermWeeks         int
	}

	StudentConfig struct {
		DeleteCascade bool
	}

	PaginationConfig struct {
		DefaultSize int
		MaxSize     int
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig loads the app configuration from defaults, `config/.env.<env>` and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Staffroom")
	v.SetDefault("secretKey", "k3e#-5rq(w2z!ehd^0o+a8yfl_mx@7pu$v=1c*96nb&jst4gi")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("reportRecipients", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 28*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "staffroom")
	v.SetDefault("database.user", "staffroom")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("allowance.policy", "formula")
	v.SetDefault("allowance.jhsNumerator", "jhs_classes")
	v.SetDefault("allowance.welfareFormula", "100")
	v.SetDefault("allowance.officeFormula", "balance * 0.05")
	v.SetDefault("allowance.kitchenFormula", "balance * 0.05")
	v.SetDefault("allowance.minWeek", 1)
	v.SetDefault("allowance.maxWeek", 16)

	v.SetDefault("attendance.workHoursPolicy", "overnight")
	v.SetDefault("attendance.expectedCheckIn", "08:00")
	v.SetDefault("attendance.academicYearStart", "2024-09-01")
	v.SetDefault("attendance.termWeeks", 16)

	v.SetDefault("student.deleteCascade", false)

	v.SetDefault("pagination.defaultSize", 20)
	v.SetDefault("pagination.maxSize", 100)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.inMemory", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	yearStart, err := time.Parse("2006-01-02", v.GetString("attendance.academicYearStart"))
	if err != nil {
		log.Fatalf("config.attendance.academicYearStart: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          workDir,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		ReportRecipients: parseAddresses(v.GetString("reportRecipients")),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Allowance: AllowanceConfig{
			Policy:         v.GetString("allowance.policy"),
			JHSNumerator:   v.GetString("allowance.jhsNumerator"),
			WelfareFormula: v.GetString("allowance.welfareFormula"),
			OfficeFormula:  v.GetString("allowance.officeFormula"),
			KitchenFormula: v.GetString("allowance.kitchenFormula"),
			MinWeek:        v.GetInt("allowance.minWeek"),
			MaxWeek:        v.GetInt("allowance.maxWeek"),
		},
		Attendance: AttendanceConfig{
			WorkHoursPolicy:   v.GetString("attendance.workHoursPolicy"),
			ExpectedCheckIn:   v.GetString("attendance.expectedCheckIn"),
			AcademicYearStart: yearStart,
			TermWeeks:         v.GetInt("attendance.termWeeks"),
		},
		Student: StudentConfig{
			DeleteCascade: v.GetBool("student.deleteCascade"),
		},
		Pagination: PaginationConfig{
			DefaultSize: v.GetInt("pagination.defaultSize"),
			MaxSize:     v.GetInt("pagination.maxSize"),
		},
	}
}

// parseAddresses parses a comma separated list of addresses, skipping invalid ones.
func parseAddresses(s string) []mail.Address {
	if CleanString(s) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		log.Printf("config.parseAddresses(%q): %v", s, err)
		return nil
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs
}
