package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name     string `validate:"required"`
	Method   string `validate:"required,oneof=cod razorpay stripe paypal"`
	Quantity int    `validate:"gt=0"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Name: "Kaju Katli", Method: "cod", Quantity: 2}
	assert.NoError(t, Validate(s))
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{Method: "cod", Quantity: 1}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Name")
	assert.Equal(t, "is required", fields["Name"])
}

func TestValidate_OneOf(t *testing.T) {
	s := testStruct{Name: "Kaju Katli", Method: "barter", Quantity: 1}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Method"], "one of")
}

func TestValidate_GreaterThan(t *testing.T) {
	s := testStruct{Name: "Kaju Katli", Method: "cod", Quantity: 0}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Quantity"], "greater than 0")
}

func TestValidate_MultipleErrors(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Name")
	assert.Contains(t, fields, "Method")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Name'")
	assert.Contains(t, err.Error(), "is required")
}

type minMaxStruct struct {
	Short string `validate:"min=3"`
	Long  string `validate:"max=5"`
}

func TestValidate_MinMax(t *testing.T) {
	err := Validate(minMaxStruct{Short: "ab", Long: "toolongstring"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Short"], "at least 3")
	assert.Contains(t, fields["Long"], "at most 5")
}

type uuidStruct struct {
	ID string `validate:"uuid"`
}

func TestValidate_UUID(t *testing.T) {
	err := Validate(uuidStruct{ID: "not-a-uuid"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid UUID", valErr.Fields()["ID"])

	assert.NoError(t, Validate(uuidStruct{ID: "550e8400-e29b-41d4-a716-446655440000"}))
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Name":"Rasgulla","Method":"razorpay","Quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.NoError(t, err)
	assert.Equal(t, "Rasgulla", s.Name)
	assert.Equal(t, 3, s.Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"Name":"","Method":"cod","Quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
