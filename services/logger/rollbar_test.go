package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/user"
)

func TestEntry_level(t *testing.T) {
	tests := []struct {
		name string
		lvl  string
		args []interface{}
		want string
	}{
		{name: "plain error", lvl: rollbar.ERR, args: []interface{}{errors.New("boom")}, want: rollbar.ERR},
		{name: "no error", lvl: rollbar.ERR, want: rollbar.ERR},
		{name: "validation", lvl: rollbar.ERR, args: []interface{}{core.NewValidationError(errors.New("bad"))}, want: rollbar.WARN},
		{name: "not found", lvl: rollbar.ERR, args: []interface{}{core.NewNotFoundError("teacher")}, want: rollbar.WARN},
		{name: "store", lvl: rollbar.ERR, args: []interface{}{core.NewStoreError(errors.New("conn reset"), "saving allowance")}, want: rollbar.ERR},
		{name: "info stays", lvl: rollbar.INFO, args: []interface{}{core.NewNotFoundError("teacher")}, want: rollbar.INFO},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, newEntry("msg", tc.args).level(tc.lvl))
		})
	}
}

func TestEntry_args(t *testing.T) {
	err := errors.New("smtp down")
	usr := user.User{ID: "u1", Username: "head", Email: "head@school.gh", Roles: []string{"admin"}}
	e := newEntry("sharing allowance report",
		[]interface{}{err, map[string]interface{}{"weeks": 2}, usr, map[string]interface{}{"categories": "allowance-report"}, 42})

	require.NotNil(t, e.usr)
	assert.Equal(t, "head", e.usr.Username)
	assert.Equal(t, err, e.err)
	assert.Equal(t, []interface{}{42}, e.extras)
	assert.Equal(t, map[string]interface{}{"weeks": 2, "categories": "allowance-report", "user_roles": "admin"}, e.fields)

	args := e.rollbarArgs()
	require.Len(t, args, 3)
	assert.Equal(t, "sharing allowance report", args[0])
	assert.Equal(t, err, args[1])

	assert.Equal(t, "sharing allowance report categories=allowance-report user_roles=admin weeks=2 user=head", e.line())
}

func TestRollbarLogger_output(t *testing.T) {
	var out bytes.Buffer
	logger := NewRollbarLogger(log.New(&out, "", 0), &core.Config{TestMode: true, AppName: "Staffroom"})

	logger.Error("finding teacher", core.NewNotFoundError("teacher"), map[string]interface{}{"id": "t1"})
	logger.Info("server started")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "WARNING finding teacher id=t1", lines[0])
	assert.Equal(t, "INFO server started", lines[len(lines)-1])
}
