package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/staffroom/apps/api/echo"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/report"
	"github.com/trezcool/staffroom/core/user"
	emailsvc "github.com/trezcool/staffroom/services/email"
	"github.com/trezcool/staffroom/tests"
)

func weekInput(week int) allowance.Input {
	return allowance.Input{
		WeekNumber: week,
		Classes: allowance.Classes{
			Creche:        decimal.NewFromInt(200),
			Basic1:        decimal.NewFromInt(300),
			Basic7General: decimal.NewFromInt(500),
			Basic8JHS:     decimal.NewFromInt(90),
		},
		NumberOfTeachers:    5,
		NumberOfJHSTeachers: 3,
	}
}

func createWeek(t *testing.T, token string, week int) allowance.Record {
	t.Helper()
	rec := do(http.MethodPost, "/v1/allowances", token, marchallObj(t, weekInput(week)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var r allowance.Record
	decode(t, rec, &r)
	return r
}

func Test_allowanceApi_crud(t *testing.T) {
	db.Reset()

	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	bursarToken := getToken(t, bursar)
	teacherToken := getToken(t, teacher)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	rec := createWeek(t, bursarToken, 3)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.TotalSum.Equal(decimal.NewFromInt(1000)), "total sum = %s", rec.TotalSum)
	assert.True(t, rec.BalanceAfterKitchen.Equal(decimal.RequireFromString("812.25")), "balance = %s", rec.BalanceAfterKitchen)
	assert.True(t, rec.EachTeacher.Equal(decimal.RequireFromString("162.45")), "each teacher = %s", rec.EachTeacher)
	assert.True(t, rec.EachJHSTeacher.Equal(decimal.NewFromInt(30)), "each JHS teacher = %s", rec.EachJHSTeacher)

	tests := []httpTest{
		{name: "auth required", path: "/v1/allowances", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "teachers cannot record", method: http.MethodPost, path: "/v1/allowances", token: teacherToken,
			body: marchallObj(t, weekInput(4)), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "week already recorded", method: http.MethodPost, path: "/v1/allowances", token: bursarToken,
			body:     marchallObj(t, weekInput(3)),
			wantCode: http.StatusConflict, wantData: marchallObj(t, map[string]string{"week_number": "an allowance record already exists for this week"}),
		},
		{
			name: "week out of range", method: http.MethodPost, path: "/v1/allowances", token: bursarToken,
			body:     marchallObj(t, weekInput(17)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"week_number": "week number must be between 1 and 16"}),
		},
		{name: "teachers can read", path: "/v1/allowances/" + rec.ID, token: teacherToken, wantCode: http.StatusOK},
		{
			name: "unknown record", path: "/v1/allowances/nope", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "allowance record not found"}),
		},
		{
			name: "unknown week", path: "/v1/allowances/weeks/9", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "allowance record not found"}),
		},
		{
			name: "invalid week", path: "/v1/allowances/weeks/x", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"week": "must be a number"}),
		},
		{name: "teachers cannot delete", method: http.MethodDelete, path: "/v1/allowances/" + rec.ID, token: teacherToken, wantCode: http.StatusForbidden, wantData: forbidden},
	}
	runTests(t, tests)

	t.Run("weekly report", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/weeks/3", teacherToken)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var rep allowance.WeeklyReport
		decode(t, resp, &rep)
		assert.Equal(t, rec.ID, rep.ID)
		assert.Equal(t, "GH₵1,000.00", rep.FormattedTotalSum)
		assert.Equal(t, "GH₵162.45", rep.FormattedEachTeacher)
		assert.Equal(t, "GH₵30.00", rep.FormattedEachJHSTeacher)
		assert.True(t, rep.TotalDeductions.Equal(decimal.RequireFromString("187.75")), "deductions = %s", rep.TotalDeductions)
	})

	t.Run("update", func(t *testing.T) {
		in := weekInput(3)
		in.NumberOfTeachers = 4
		resp := do(http.MethodPut, "/v1/allowances/"+rec.ID, bursarToken, marchallObj(t, in))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var updated allowance.Record
		decode(t, resp, &updated)
		assert.Equal(t, rec.ID, updated.ID)
		assert.Equal(t, 4, updated.NumberOfTeachers)
		assert.True(t, updated.EachTeacher.GreaterThan(rec.EachTeacher))
	})

	t.Run("list", func(t *testing.T) {
		createWeek(t, bursarToken, 1)
		createWeek(t, bursarToken, 2)

		resp := do(http.MethodGet, "/v1/allowances?limit=2", teacherToken)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var page allowance.Page
		decode(t, resp, &page)
		require.Len(t, page.Records, 2)
		assert.True(t, page.HasMore)
		assert.NotEmpty(t, page.NextCursor)

		resp = do(http.MethodGet, "/v1/allowances?limit=2&cursor="+page.NextCursor, teacherToken)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var next allowance.Page
		decode(t, resp, &next)
		require.Len(t, next.Records, 1)
		assert.False(t, next.HasMore)

		seen := map[int]bool{}
		for _, r := range append(page.Records, next.Records...) {
			seen[r.WeekNumber] = true
		}
		assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
	})

	t.Run("delete", func(t *testing.T) {
		resp := do(http.MethodDelete, "/v1/allowances/"+rec.ID, bursarToken)
		assert.Equal(t, http.StatusNoContent, resp.Code)

		resp = do(http.MethodGet, "/v1/allowances/"+rec.ID, bursarToken)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func Test_allowanceApi_preview(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	token := getToken(t, teacher)

	t.Run("valid", func(t *testing.T) {
		resp := do(http.MethodPost, "/v1/allowances/preview", token, marchallObj(t, weekInput(1)))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var pr PreviewResponse
		decode(t, resp, &pr)
		assert.Empty(t, pr.Errors)
		assert.True(t, pr.Allocation.EachTeacher.Equal(decimal.RequireFromString("162.45")))
	})

	t.Run("incomplete", func(t *testing.T) {
		in := weekInput(0)
		in.NumberOfTeachers = 0
		resp := do(http.MethodPost, "/v1/allowances/preview", token, marchallObj(t, in))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var pr PreviewResponse
		decode(t, resp, &pr)
		assert.Equal(t, map[string]string{
			"week_number":        "week number must be between 1 and 16",
			"number_of_teachers": "number of teachers must be at least 1",
		}, pr.Errors)
	})

	t.Run("blank and non-numeric amounts", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "blank", body: `{"week_number": 1, "classes": {"creche": "", "basic1": "300"}, "number_of_teachers": 2}`},
			{name: "non-numeric", body: `{"week_number": 1, "classes": {"creche": "abc", "basic1": 300}, "number_of_teachers": 2}`},
			{name: "null", body: `{"week_number": 1, "classes": {"creche": null, "basic1": " 300 "}, "number_of_teachers": 2}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp := do(http.MethodPost, "/v1/allowances/preview", token, []byte(tt.body))
				require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

				var pr PreviewResponse
				decode(t, resp, &pr)
				assert.Empty(t, pr.Errors)
				assert.True(t, pr.Allocation.TotalSum.Equal(decimal.NewFromInt(300)), "total = %s", pr.Allocation.TotalSum)
			})
		}
	})

	t.Run("nothing collected", func(t *testing.T) {
		resp := do(http.MethodPost, "/v1/allowances/preview", token, marchallObj(t, allowance.Input{WeekNumber: 1, NumberOfTeachers: 2}))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var pr PreviewResponse
		decode(t, resp, &pr)
		assert.Equal(t, "total sum must be greater than 0", pr.Errors["total_sum"])
	})
}

func Test_allowanceApi_reports(t *testing.T) {
	db.Reset()

	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	token := getToken(t, bursar)
	for _, week := range []int{1, 2, 3} {
		createWeek(t, token, week)
	}

	t.Run("summary", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/summary?from=2", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var sum AllowanceSummaryResponse
		decode(t, resp, &sum)
		assert.Equal(t, 2, sum.Totals.Weeks)
		assert.True(t, sum.Totals.TotalAmount.Equal(decimal.NewFromInt(2000)), "total = %s", sum.Totals.TotalAmount)
	})

	t.Run("summary of unknown weeks", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/summary?week=10", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var sum AllowanceSummaryResponse
		decode(t, resp, &sum)
		assert.Equal(t, 0, sum.Totals.Weeks)
	})

	t.Run("html", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/report.html?week=1", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html"))

		body := resp.Body.String()
		assert.Contains(t, body, "Week 1")
		assert.NotContains(t, body, "Week 2")
		assert.Contains(t, body, "GH₵1,000.00")
	})

	t.Run("text", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/report.txt", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain"))
		assert.Contains(t, resp.Body.String(), "FRIDAY ALLOWANCE REPORT")
	})

	t.Run("xlsx", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/export.xlsx?from=1&to=2", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, report.XLSXContentType, resp.Header().Get("Content-Type"))
		assert.Contains(t, resp.Header().Get("Content-Disposition"), `attachment; filename="allowances_`)
		assert.NotZero(t, resp.Body.Len())
	})

	t.Run("invalid range", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/allowances/report.html?from=one", token)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func Test_allowanceApi_share(t *testing.T) {
	db.Reset()
	emailsvc.ResetSentMessages()

	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	token := getToken(t, bursar)
	createWeek(t, token, 1)
	createWeek(t, token, 2)

	share := func(weeks []int, to ...string) []byte {
		return marchallObj(t, ShareRequest{Weeks: weeks, To: to})
	}

	tests := []httpTest{
		{
			name: "bursar only", method: http.MethodPost, path: "/v1/allowances/share", token: getToken(t, teacher),
			body: share(nil, "head@school.gh"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "no recipients", method: http.MethodPost, path: "/v1/allowances/share", token: token,
			body: share(nil), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"to": "no recipients"}),
		},
		{
			name: "invalid recipient", method: http.MethodPost, path: "/v1/allowances/share", token: token,
			body: share(nil, "head"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"to": "invalid email address: head"}),
		},
		{
			name: "nothing recorded", method: http.MethodPost, path: "/v1/allowances/share", token: token,
			body:     share([]int{9}, "head@school.gh"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"weeks": "no allowance recorded for these weeks"}),
		},
		{
			name: "shared", method: http.MethodPost, path: "/v1/allowances/share", token: token,
			body:     share([]int{1, 2}, "Head <head@school.gh>", "owner@school.gh"),
			wantCode: http.StatusAccepted, wantData: marchallObj(t, ShareResponse{Weeks: 2, Recipients: 2}),
		},
	}
	runTests(t, tests)

	require.Len(t, emailsvc.SentMessages, 1)
	sent := emailsvc.SentMessages[0]
	assert.Equal(t, fmt.Sprintf("Friday allowance report (%d weeks)", 2), sent.Subject)
	require.Len(t, sent.To, 2)
	assert.Equal(t, "head@school.gh", sent.To[0].Address)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, report.XLSXContentType, sent.Attachments[0].ContentType)
}
