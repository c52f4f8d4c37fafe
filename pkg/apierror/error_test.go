package apierror

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	err := ValidationError("", FieldError{Field: "quantity", Message: "must be a number"})
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   struct {
			Code    string       `json:"code"`
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(err.ToJSON(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "quantity", body.Error.Details[0].Field)
}

func TestConstructors(t *testing.T) {
	cases := map[int]*Error{
		http.StatusUnauthorized:        Unauthorized(""),
		http.StatusForbidden:           Forbidden(""),
		http.StatusNotFound:            NotFound(""),
		http.StatusConflict:            Conflict("taken"),
		http.StatusTooManyRequests:     TooManyRequests(""),
		http.StatusInternalServerError: InternalError(""),
		http.StatusServiceUnavailable:  ServiceUnavailable(""),
	}
	for status, err := range cases {
		assert.Equal(t, status, err.StatusCode)
		assert.NotEmpty(t, err.Message)
		assert.Equal(t, err.Message, err.Error())
	}
}
