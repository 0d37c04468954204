package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger reports to Rollbar and echoes every entry on `std`.
// Reporting is on only when a token is set outside of test mode.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetCustom(map[string]interface{}{
		"app":       conf.AppName,
		"db_engine": conf.Database.Engine,
	})
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is one log call, split into what Rollbar takes separately.
type entry struct {
	msg    string
	err    error
	fields map[string]interface{}
	usr    *user.User // first user.User arg only
	extras []interface{}
}

func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, fields: make(map[string]interface{})}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if e.usr == nil {
				a := a
				e.usr = &a
			}
		case map[string]interface{}:
			for k, v := range a {
				e.fields[k] = v
			}
		case error:
			if e.err == nil {
				e.err = a
			} else {
				e.extras = append(e.extras, a)
			}
		default:
			e.extras = append(e.extras, a)
		}
	}
	if e.usr != nil {
		e.fields["user_roles"] = strings.Join(e.usr.Roles, ",")
	}
	return e
}

// level downgrades errors caused by the request itself (bad input, missing or duplicate rows) to warnings.
func (e entry) level(lvl string) string {
	if lvl != rollbar.ERR || e.err == nil {
		return lvl
	}
	if core.IsValidation(e.err) || core.IsNotFound(e.err) || core.IsConflict(e.err) {
		return rollbar.WARN
	}
	return lvl
}

// rollbarArgs follows the rollbar.Log fmt: msg, error, one map of extras.
func (e entry) rollbarArgs() []interface{} {
	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if len(e.fields) > 0 {
		args = append(args, e.fields)
	}
	return args
}

// line renders the fields as sorted key=value pairs after the message.
func (e entry) line() string {
	var b strings.Builder
	b.WriteString(e.msg)
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	if e.usr != nil {
		_, _ = fmt.Fprintf(&b, " user=%s", e.usr.Username)
	}
	return b.String()
}

func (l RollbarLogger) log(lvl, msg string, args []interface{}) {
	e := newEntry(msg, args)
	if e.usr != nil {
		rollbar.SetPerson(e.usr.ID, e.usr.Username, e.usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(e.level(lvl), e.rollbarArgs()...)

	l.std.Println(strings.ToUpper(e.level(lvl)) + " " + e.line())
	if e.err != nil {
		l.std.Printf("%+v\n", e.err)
	}
	for _, x := range e.extras {
		l.std.Printf("%+v\n", x)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
