package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "turnstile/pkg/domain-errors"
)

func TestDomainCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeRateLimited, http.StatusTooManyRequests},
		{dErrors.CodeRequestBlocked, http.StatusForbidden},
		{dErrors.CodeForbidden, http.StatusForbidden},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeStoreUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeBadRequest, http.StatusBadRequest},
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout},
		{dErrors.CodeConfiguration, http.StatusInternalServerError},
		{dErrors.CodeInternal, http.StatusInternalServerError},
		{dErrors.Code("something_new"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.status, DomainCodeToHTTPStatus(tc.code))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("translates rate limited error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRateLimited, "hourly quota exhausted"))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "rate_limit_exceeded", resp["error"])
		assert.Equal(t, "hourly quota exhausted", resp["error_description"])
	})

	t.Run("translates blocked error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRequestBlocked, "suspicious payment pattern"))

		assert.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "request_blocked", resp["error"])
	})

	t.Run("falls back to 500 for plain errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "internal_error", resp["error"])
	})
}
