package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"password"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Stack    string `json:"stack" validate:"stack"`
	Date     string `json:"startDate" validate:"datestr"`
	Clock    string `json:"startTime" validate:"clock"`
}

func TestValidatorAcceptsWellFormedPayload(t *testing.T) {
	v := New()
	err := v.Struct(signup{
		Email:    "ada@example.com",
		Password: "Sup3r$ecret",
		Phone:    "+2348012345678",
		Stack:    "Backend",
		Date:     "2025-01-10",
		Clock:    "09:30",
	})
	require.NoError(t, err)
}

func TestValidatorDetailsUseJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(signup{Password: "weak", Phone: "12", Stack: "devops", Date: "10/01/2025", Clock: "9am"})
	require.Error(t, err)

	details := v.Details(err)
	assert.Equal(t, "email is a required field", details["email"])
	assert.Contains(t, details["password"], "uppercase")
	assert.Contains(t, details["phone"], "10 to 14 digits")
	assert.Contains(t, details["stack"], "product_design")
	assert.Contains(t, details["startDate"], "YYYY-MM-DD")
	assert.Contains(t, details["startTime"], "HH:mm")
}

func TestValidatorInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	assert.NotSame(t, a.Validate, b.Validate)
}
