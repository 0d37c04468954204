package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/staffroom/apps/api/echo"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
	"github.com/trezcool/staffroom/tests"
)

func Test_teacherApi(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Abena Head", "head", "head@school.gh", "", []string{user.RoleAdminHead}, true)
	staff := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)

	create := func(fullname, dept string) teacher.Teacher {
		resp := do(http.MethodPost, "/v1/teachers", adminToken, marchallObj(t, teacher.NewTeacher{Fullname: fullname, Department: dept}))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var tchr teacher.Teacher
		decode(t, resp, &tchr)
		return tchr
	}
	ama := create(" Ama Owusu ", "Science")
	kofi := create("Kofi Mensah", "Arts")

	tests := []httpTest{
		{
			name: "staff cannot create", method: http.MethodPost, path: "/v1/teachers", token: staffToken,
			body:     marchallObj(t, teacher.NewTeacher{Fullname: "Yaa Asantewaa", Department: "Arts"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/teachers", token: adminToken,
			body:     marchallObj(t, teacher.NewTeacher{Fullname: "", Department: "Arts"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"fullname": "this field is required"}),
		},
		{name: "list", path: "/v1/teachers", token: staffToken, wantCode: http.StatusOK, wantData: marchallList(t, ama, kofi)},
		{name: "search", path: "/v1/teachers?search=kof", token: staffToken, wantCode: http.StatusOK, wantData: marchallList(t, kofi)},
		{
			name: "stats", path: "/v1/teachers/stats", token: staffToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, teacher.Stats{TotalTeachers: 2, TotalDepartments: 2}),
		},
		{name: "retrieve", path: "/v1/teachers/" + ama.ID, token: staffToken, wantCode: http.StatusOK, wantData: marchallObj(t, ama)},
		{name: "unknown", path: "/v1/teachers/nope", token: staffToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "teacher not found"})},
	}
	runTests(t, tests)

	assert.Equal(t, "Ama Owusu", ama.Fullname)

	t.Run("update", func(t *testing.T) {
		resp := do(http.MethodPut, "/v1/teachers/"+kofi.ID, adminToken, marchallObj(t, teacher.NewTeacher{Fullname: "Kofi Mensah", Department: "Mathematics"}))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var tchr teacher.Teacher
		decode(t, resp, &tchr)
		assert.Equal(t, kofi.ID, tchr.ID)
		assert.Equal(t, "Mathematics", tchr.Department)
	})
}

func Test_studentApi(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Abena Head", "head", "head@school.gh", "", []string{user.RoleAdminHead}, true)
	staff := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)

	create := func(fullname, dept, gender string) student.Student {
		resp := do(http.MethodPost, "/v1/students", adminToken, marchallObj(t, student.NewStudent{Fullname: fullname, Department: dept, Gender: gender}))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var s student.Student
		decode(t, resp, &s)
		return s
	}
	esi := create("Esi Badu", "Basic 1", "f")
	kwaku := create("Kwaku Boateng", "Basic 1", "Male")
	akua := create("Akua Sarpong", "Basic 2", "FEMALE")

	assert.Equal(t, student.GenderFemale, esi.Gender)
	assert.Equal(t, student.GenderFemale, akua.Gender)

	tests := []httpTest{
		{
			name: "staff cannot create", method: http.MethodPost, path: "/v1/students", token: staffToken,
			body:     marchallObj(t, student.NewStudent{Fullname: "Kojo Antwi", Department: "Basic 2", Gender: "m"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "list", path: "/v1/students", token: staffToken, wantCode: http.StatusOK, wantData: marchallList(t, akua, esi, kwaku)},
		{name: "by department", path: "/v1/students?department=Basic%201", token: staffToken, wantCode: http.StatusOK, wantData: marchallList(t, esi, kwaku)},
		{name: "search", path: "/v1/students?search=sarp", token: staffToken, wantCode: http.StatusOK, wantData: marchallList(t, akua)},
		{
			name: "stats", path: "/v1/students/stats", token: staffToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, StudentStatsResponse{
				Summary:     student.Summary{TotalStudents: 3, TotalDepartments: 2, MaleCount: 1, FemaleCount: 2},
				Departments: []student.Count{{Key: "Basic 1", Count: 2}, {Key: "Basic 2", Count: 1}},
				Genders:     []student.Count{{Key: student.GenderFemale, Count: 2}, {Key: student.GenderMale, Count: 1}},
			}),
		},
		{name: "unknown", path: "/v1/students/nope", token: staffToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})},
	}
	runTests(t, tests)

	t.Run("delete", func(t *testing.T) {
		resp := do(http.MethodDelete, "/v1/students/"+kwaku.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, resp.Code)

		resp = do(http.MethodGet, "/v1/students/"+kwaku.ID, staffToken)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func Test_canteenApi(t *testing.T) {
	db.Reset()

	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	staff := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	token := getToken(t, bursar)

	pay := func(dept, amount, date string) canteen.Payment {
		resp := do(http.MethodPost, "/v1/canteen/payments", token, marchallObj(t, canteen.NewPayment{
			Department:  dept,
			Amount:      decimal.RequireFromString(amount),
			PaymentDate: date,
		}))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var p canteen.Payment
		decode(t, resp, &p)
		return p
	}
	first := pay("Basic 2", "120.50", "2024-09-09")
	pay("Basic 1", "80", "2024-09-10")
	pay("Basic 2", "30", "2024-09-16")

	tests := []httpTest{
		{
			name: "bursar only", path: "/v1/canteen/payments", token: getToken(t, staff),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid payment", method: http.MethodPost, path: "/v1/canteen/payments", token: token,
			body:     marchallObj(t, canteen.NewPayment{Department: "Basic 1", Amount: decimal.Zero, PaymentDate: "2024-09-10"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"amount": "must be greater than 0"}),
		},
		{
			name: "inverted range", path: "/v1/canteen/payments?from=2024-09-30&to=2024-09-01", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"from": "must not be after 'to'"}),
		},
		{name: "retrieve", path: "/v1/canteen/payments/" + first.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, first)},
	}
	runTests(t, tests)

	t.Run("range", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/canteen/payments?from=2024-09-09&to=2024-09-15", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var payments []canteen.Payment
		decode(t, resp, &payments)
		assert.Len(t, payments, 2)
	})

	t.Run("stats", func(t *testing.T) {
		resp := do(http.MethodGet, "/v1/canteen/stats", token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var totals []canteen.DepartmentTotal
		decode(t, resp, &totals)
		require.Len(t, totals, 2)
		assert.Equal(t, "Basic 1", totals[0].Department)
		assert.Equal(t, "Basic 2", totals[1].Department)
		assert.Equal(t, 2, totals[1].Count)
		assert.True(t, totals[1].TotalAmount.Equal(decimal.RequireFromString("150.5")), "total = %s", totals[1].TotalAmount)
	})

	t.Run("delete", func(t *testing.T) {
		resp := do(http.MethodDelete, "/v1/canteen/payments/"+first.ID, token)
		assert.Equal(t, http.StatusNoContent, resp.Code)

		resp = do(http.MethodGet, "/v1/canteen/payments/"+first.ID, token)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.JSONEq(t, `{"error": "canteen payment not found"}`, resp.Body.String())
	})
}
