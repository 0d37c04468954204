package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/staffroom/core"
)

func TestPasswordPolicy(t *testing.T) {
	setCommonPasswords([]string{"p@ssw0rd!"})
	t.Cleanup(func() { setCommonPasswords(nil) })

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "valid", pwd: "Str0ng!Pass"},
		{name: "too short", pwd: "S0!a", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "Str0ng! Pass", wantErr: pwdNoSpaceText},
		{name: "numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "no special", pwd: "Str0ngPass", wantErr: pwdComplexityText},
		{name: "like the username", pwd: "Kwabena#1", wantErr: pwdAttrSimText},
		{name: "common", pwd: "P@ssw0rd!", wantErr: pwdNoCommonText},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nu := NewUser{Name: "Yaa", Username: "kwabena1", Password: tc.pwd, PasswordConfirm: tc.pwd}
			err := core.ValidationErrorFrom(core.Validate.Struct(nu))
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("Validate() failed: expected a *core.ValidationError, got %v", err)
			}
			assert.Equal(t, []core.FieldError{{Field: "password", Error: tc.wantErr}}, vErr.Fields)
		})
	}
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, 13, MaxRolePriority([]string{RoleStaffTeacher, RoleStaffBursar}))
	assert.Equal(t, 30, MaxRolePriority([]string{RoleStaff, RoleAdminOwner, "unknown"}))
}
