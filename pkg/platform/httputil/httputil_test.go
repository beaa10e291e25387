package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "certiva/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation maps to 400", dErrors.New(dErrors.CodeValidation, "id_no is required"), http.StatusBadRequest},
		{"not found maps to 404", dErrors.New(dErrors.CodeNotFound, "no match"), http.StatusNotFound},
		{"unauthorized maps to 401", dErrors.New(dErrors.CodeUnauthorized, "token missing"), http.StatusUnauthorized},
		{"forbidden maps to 403", dErrors.New(dErrors.CodeForbidden, "not staff"), http.StatusForbidden},
		{"conflict maps to 409", dErrors.New(dErrors.CodeConflict, "code taken"), http.StatusConflict},
		{"expired maps to 410", dErrors.New(dErrors.CodeExpired, "OTP has expired"), http.StatusGone},
		{"throttle maps to 429", dErrors.New(dErrors.CodeTooManyAttempts, "slow down"), http.StatusTooManyRequests},
		{"uncoded maps to 500", errors.New("pq: connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	t.Run("internal errors omit the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: password authentication failed"))
		assert.NotContains(t, rec.Body.String(), "password")
		assert.NotContains(t, rec.Body.String(), "error_description")
	})

	t.Run("client errors carry the message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeExpired, "OTP has expired"))
		assert.Contains(t, rec.Body.String(), "OTP has expired")
	})
}

func TestDecode(t *testing.T) {
	type payload struct {
		IDNo string `json:"id_no"`
	}

	t.Run("valid body decodes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id_no":"A123"}`))
		rec := httptest.NewRecorder()
		got, ok := Decode[payload](rec, req)
		assert.True(t, ok)
		assert.Equal(t, "A123", got.IDNo)
	})

	t.Run("malformed body writes 400 and reports false", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		_, ok := Decode[payload](rec, req)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
