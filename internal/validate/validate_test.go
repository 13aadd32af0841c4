package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerForm struct {
	Username        string `json:"username" validate:"notblank,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type reportForm struct {
	Name     string `json:"name" validate:"notblank"`
	Category string `json:"category" validate:"category"`
	DOB      string `json:"dob" validate:"pastdate"`
}

func TestStruct_FieldMessagesUseJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(registerForm{Username: "  ", Email: "nope", Password: "abc", ConfirmPassword: "abd"})
	require.Error(t, err)

	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "username cannot be blank", verr.Fields["username"])
	assert.Equal(t, "email must be a valid email address", verr.Fields["email"])
	assert.Contains(t, verr.Fields["password"], "at least 6 characters")
	assert.Equal(t, "confirm_password must match Password", verr.Fields["confirm_password"])
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(registerForm{Username: "asha", Email: "a@b.org", Password: "secret", ConfirmPassword: "secret"}))
	assert.NoError(t, v.Struct(reportForm{Name: "Priya", Category: "senior-citizen"}))
}

func TestStruct_CustomTags(t *testing.T) {
	v := New()
	v.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	err := v.Struct(reportForm{Name: "Priya", Category: "adult", DOB: "2030-01-01"})
	require.Error(t, err)
	verr := err.(*Error)
	assert.Contains(t, verr.Fields["category"], "must be one of")
	assert.Contains(t, verr.Fields["dob"], "not in the future")

	err = v.Struct(reportForm{Name: "Priya", Category: "child", DOB: "01/02/2020"})
	require.Error(t, err)
	assert.Contains(t, err.(*Error).Fields, "dob")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2017-03-04")
	require.NoError(t, err)
	assert.Equal(t, 2017, d.Year())

	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}
