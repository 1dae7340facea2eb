package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "error with cause",
			err: &APIError{
				Type:    ErrorTypeStore,
				Message: "session store unavailable",
				Err:     errors.New("connection refused"),
			},
			expected: "store_error: session store unavailable: connection refused",
		},
		{
			name: "error without cause",
			err: &APIError{
				Type:    ErrorTypeInvalidRequest,
				Message: "bad request",
			},
			expected: "invalid_request_error: bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	apiErr := NewStoreError("wrapped error", originalErr)

	if unwrapped := apiErr.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
	if !errors.Is(apiErr, originalErr) {
		t.Error("errors.Is should see the original error")
	}
}

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{"explicit status wins", &APIError{Type: ErrorTypeNotFound, StatusCode: http.StatusGone}, http.StatusGone},
		{"invalid request", &APIError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"authentication", &APIError{Type: ErrorTypeAuthentication}, http.StatusUnauthorized},
		{"not found", &APIError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"store", &APIError{Type: ErrorTypeStore}, http.StatusServiceUnavailable},
		{"unknown type", &APIError{Type: "weird"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatusCode())
		})
	}
}

func TestHandleError(t *testing.T) {
	e := echo.New()

	t.Run("api error keeps its status and type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, HandleError(c, NewNotFoundError("session not found")))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":{"type":"not_found_error","message":"session not found"}}`, rec.Body.String())
	})

	t.Run("plain error is hidden behind a 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, HandleError(c, errors.New("mongo: secret detail")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})
}
