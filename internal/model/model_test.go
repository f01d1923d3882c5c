package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" student ")
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, r)

	r, err = ParseRole("STAFF")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, r)

	_, err = ParseRole("janitor")
	assert.Error(t, err)
}

func TestUserValidate(t *testing.T) {
	cases := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"student with profile", User{ID: "s", Role: RoleStudent, Student: &StudentProfile{AdmissionNumber: "ADM-1"}}, false},
		{"student without profile", User{ID: "s", Role: RoleStudent}, true},
		{"student with staff profile", User{ID: "s", Role: RoleStudent, Student: &StudentProfile{}, Staff: &StaffProfile{}}, true},
		{"staff with profile", User{ID: "t", Role: RoleStaff, Staff: &StaffProfile{StaffID: "ST-9"}}, false},
		{"staff with student profile", User{ID: "t", Role: RoleStaff, Student: &StudentProfile{}}, true},
		{"admin bare", User{ID: "a", Role: RoleAdmin}, false},
		{"unknown role", User{ID: "x", Role: "GUEST"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.user.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfileAccessors(t *testing.T) {
	student := User{Role: RoleStudent, Student: &StudentProfile{AdmissionNumber: "ADM-7"}, Password: "pw"}
	staff := User{Role: RoleStaff, Staff: &StaffProfile{StaffID: "ST-1"}}

	assert.Equal(t, "ADM-7", student.AdmissionNumber())
	assert.Empty(t, student.StaffID())
	assert.Equal(t, "ST-1", staff.StaffID())
	assert.Empty(t, staff.AdmissionNumber())
	assert.Empty(t, student.Public().Password)
	assert.Equal(t, "pw", student.Password)
}

func TestPeriodLocked(t *testing.T) {
	assert.False(t, Period{}.Locked())
	assert.False(t, Period{NetworkLock: "  "}.Locked())
	assert.True(t, Period{NetworkLock: "10.0.0.5"}.Locked())
}
