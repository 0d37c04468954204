package tests

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/staffroom/apps/api/echo"
	"github.com/trezcool/staffroom/core/user"
	"github.com/trezcool/staffroom/tests"
)

const pwd = "Str0ng!Pass"

func Test_userApi_login(t *testing.T) {
	db.Reset()

	usr := testutil.CreateUser(t, usrRepo, "Ama Owusu", "amao", "ama@school.gh", pwd, []string{user.RoleStaffBursar}, true)
	testutil.CreateUser(t, usrRepo, "Kofi Mensah", "kofim", "kofi@school.gh", pwd, nil, false)

	login := func(uname, pass string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pass})
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "missing credentials", method: http.MethodPost, path: "/v1/users/login", body: login("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("nobody", pwd), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: login("amao", "nope"), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: login("kofim", pwd),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runTests(t, tests)

	for _, uname := range []string{"amao", " AMAO ", "ama@school.gh"} {
		t.Run("success "+uname, func(t *testing.T) {
			rec := do(http.MethodPost, "/v1/users/login", "", login(uname, pwd))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp LoginResponse
			decode(t, rec, &resp)
			require.NotEmpty(t, resp.Token)

			// the token is usable
			rec = do(http.MethodGet, "/v1/users/"+usr.ID, resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	got, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero(), "last login is recorded")
}

func Test_userApi_query(t *testing.T) {
	db.Reset()

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	admin := testutil.CreateUser(t, usrRepo, "Abena Head", "head", "head@school.gh", "", []string{user.RoleAdminHead}, true)
	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", "", []string{user.RoleStaffTeacher}, true)
	former := testutil.CreateUser(t, usrRepo, "Kojo Former", "kojo", "kojo@school.gh", "", []string{user.RoleStaffTeacher}, false)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, bursar),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, bursar, former, teacher)},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "search=TEACHER", path: path("TEACHER", nil), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher)},
		{name: "role=admin:", path: path("", nil, user.RoleAdmin), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin)},
		{
			name: "role=staff:", path: path("", nil, user.RoleStaff), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, bursar, former, teacher),
		},
		{
			name: "role=staff:teacher&is_active=true", path: path("", bPtr(true), user.RoleStaffTeacher), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, teacher),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, former)},
		{
			name: "is_active=maybe", path: "/v1/users?is_active=maybe", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_active": "must be a boolean"}),
		},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	runTests(t, tests)
}

func Test_userApi_create(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Abena Head", "head", "head@school.gh", "", []string{user.RoleAdminHead}, true)
	bursar := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", "", []string{user.RoleStaffBursar}, true)
	adminToken := getToken(t, admin)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Kwame Asante",
			Username:        uname,
			Email:           uname + "@school.gh",
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/users", body: newUser("kwame"), token: getToken(t, bursar),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "cannot grant a higher role", method: http.MethodPost, path: "/v1/users", body: newUser("kwame", user.RoleAdminOwner), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "username taken", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     marchallObj(t, user.NewUser{Name: "Efua Mensah", Username: "efua", Password: pwd, PasswordConfirm: pwd}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
	}
	runTests(t, tests)

	t.Run("created", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/users", adminToken, newUser("kwame", user.RoleStaffTeacher))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "kwame", usr.Username)
		assert.Equal(t, []string{user.RoleStaffTeacher}, usr.Roles)
		assert.True(t, usr.IsActive)
	})

	t.Run("weak password", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{Name: "Kwesi", Username: "kwesi", Password: "12345678", PasswordConfirm: "12345678"})
		rec := do(http.MethodPost, "/v1/users", adminToken, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Equal(t, "password cannot be entirely numeric", fields["password"])
	})
}

func Test_userApi_detail(t *testing.T) {
	db.Reset()

	owner := testutil.CreateUser(t, usrRepo, "Nana Owner", "owner", "owner@school.gh", pwd, []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, usrRepo, "Abena Head", "head", "head@school.gh", pwd, []string{user.RoleAdminHead}, true)
	staff := testutil.CreateUser(t, usrRepo, "Yaw Teacher", "yaw", "yaw@school.gh", pwd, []string{user.RoleStaffTeacher}, true)
	other := testutil.CreateUser(t, usrRepo, "Efua Bursar", "efua", "efua@school.gh", pwd, []string{user.RoleStaffBursar}, true)

	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "retrieve self", path: "/v1/users/" + staff.ID, token: staffToken, wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "retrieve other (staff)", path: "/v1/users/" + other.ID, token: staffToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "retrieve other (admin)", path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{name: "retrieve unknown", path: "/v1/users/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "staff cannot change own roles", method: http.MethodPut, path: "/v1/users/" + staff.ID, token: staffToken,
			body: marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "cannot delete a higher role", method: http.MethodDelete, path: "/v1/users/" + owner.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "staff cannot delete", method: http.MethodDelete, path: "/v1/users/" + staff.ID, token: staffToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "cannot delete self among others", method: http.MethodDelete, path: "/v1/users?id=" + other.ID + "&id=" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
	}
	runTests(t, tests)

	t.Run("staff updates own name", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/users/"+staff.ID, staffToken, marchallObj(t, map[string]string{"name": "Yaw Boateng"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Yaw Boateng", usr.Name)
		assert.Equal(t, staff.Username, usr.Username)
		assert.Equal(t, staff.Roles, usr.Roles)
	})

	t.Run("admin deactivates", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/users/"+other.ID, adminToken, marchallObj(t, map[string]bool{"is_active": false}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.False(t, usr.IsActive)
	})

	t.Run("token refresh", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/users/token-refresh", staffToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		rec = do(http.MethodPost, "/v1/users/token-refresh", getToken(t, other))
		assert.Equal(t, http.StatusForbidden, rec.Code, "deactivated users cannot refresh")
	})

	t.Run("admin deletes", func(t *testing.T) {
		rec := do(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(http.MethodDelete, "/v1/users?id="+staff.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(http.MethodGet, "/v1/users/"+staff.ID, staffToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "deleted users lose access")
	})
}
