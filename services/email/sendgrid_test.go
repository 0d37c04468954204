package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/staffroom/core"
)

type logEntry struct {
	level string
	msg   string
	args  []interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

type sentMail struct {
	Personalizations []struct {
		Subject string `json:"subject"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
	Categories   []string          `json:"categories"`
	CustomArgs   map[string]string `json:"custom_args"`
	MailSettings *struct {
		SandboxMode *struct {
			Enable bool `json:"enable"`
		} `json:"sandbox_mode"`
	} `json:"mail_settings"`
}

func newTestSendgrid(sandbox bool, res *rest.Response, resErr error) (*sendgridService, *recordingLogger, *[]rest.Request) {
	logger := new(recordingLogger)
	reqs := new([]rest.Request)
	svc := &sendgridService{
		key:        "SG.key",
		from:       sgmail.NewEmail("Staffroom", "noreply@school.gh"),
		subjPrefix: "[Staffroom] ",
		appName:    "Staffroom",
		sandbox:    sandbox,
		logger:     logger,
		api: func(req rest.Request) (*rest.Response, error) {
			*reqs = append(*reqs, req)
			return res, resErr
		},
	}
	return svc, logger, reqs
}

func TestSendgridService_send(t *testing.T) {
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Head", Address: "head@school.gh"}},
		Subject:     "Friday allowance report (2 weeks)",
		TextContent: "report",
		Categories:  []string{"allowance-report", "weeks-2"},
	}

	t.Run("tagged request", func(t *testing.T) {
		svc, logger, reqs := newTestSendgrid(true, &rest.Response{StatusCode: http.StatusAccepted}, nil)
		svc.send(msg)

		require.Len(t, *reqs, 1)
		req := (*reqs)[0]
		assert.Equal(t, http.MethodPost, string(req.Method))
		assert.Equal(t, "Bearer SG.key", req.Headers["Authorization"])

		var body sentMail
		require.NoError(t, json.Unmarshal(req.Body, &body))
		require.Len(t, body.Personalizations, 1)
		assert.Equal(t, "[Staffroom] Friday allowance report (2 weeks)", body.Personalizations[0].Subject)
		assert.Equal(t, []string{"allowance-report", "weeks-2"}, body.Categories)
		assert.Equal(t, map[string]string{"app": "Staffroom"}, body.CustomArgs)
		require.NotNil(t, body.MailSettings)
		require.NotNil(t, body.MailSettings.SandboxMode)
		assert.True(t, body.MailSettings.SandboxMode.Enable)
		require.Len(t, body.Content, 1, "no empty text/html part")
		assert.Equal(t, "text/plain", body.Content[0].Type)

		require.Len(t, logger.entries, 1)
		assert.Equal(t, "debug", logger.entries[0].level)
	})

	t.Run("live mode", func(t *testing.T) {
		svc, _, reqs := newTestSendgrid(false, &rest.Response{StatusCode: http.StatusAccepted}, nil)
		svc.send(core.EmailMessage{To: msg.To, Subject: "Welcome", TextContent: "hi"})

		require.Len(t, *reqs, 1)
		var body sentMail
		require.NoError(t, json.Unmarshal((*reqs)[0].Body, &body))
		assert.Nil(t, body.MailSettings)
		assert.Empty(t, body.Categories)
	})

	t.Run("rejected", func(t *testing.T) {
		svc, logger, _ := newTestSendgrid(false, &rest.Response{StatusCode: http.StatusBadRequest, Body: `{"errors":[]}`}, nil)
		svc.send(msg)

		require.Len(t, logger.entries, 1)
		entry := logger.entries[0]
		assert.Equal(t, "error", entry.level)
		assert.Contains(t, entry.msg, "status: 400")
		require.Len(t, entry.args, 1)
		assert.Equal(t, "allowance-report,weeks-2", entry.args[0].(map[string]interface{})["categories"])
	})

	t.Run("unreachable", func(t *testing.T) {
		svc, logger, _ := newTestSendgrid(false, nil, errors.New("dial tcp: i/o timeout"))
		svc.send(msg)

		require.Len(t, logger.entries, 1)
		assert.Equal(t, "error", logger.entries[0].level)
		assert.Contains(t, logger.entries[0].msg, "i/o timeout")
	})
}
