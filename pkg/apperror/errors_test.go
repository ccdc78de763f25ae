package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_002", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[WAL_002] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_003", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"NotFound", ErrNotFound("wallet"), "WAL_001", 404},
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_002", 402},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_003", 400},
		{"Conflict", ErrConflict(), "WAL_004", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"VendorNotApproved", ErrVendorNotApproved(), "PAY_002", 403},
		{"StudentBlocked", ErrStudentBlocked(), "PAY_003", 403},
		{"InvalidTransaction", ErrInvalidTransaction(), "PAY_004", 400},
		{"VendorNotAllowed", ErrVendorNotAllowed(), "PAY_005", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestDailyLimitExceeded_CarriesFigures(t *testing.T) {
	err := ErrDailyLimitExceeded("200", "150")

	assert.Equal(t, "PAY_001", err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "200", err.Details["daily_limit"])
	assert.Equal(t, "150", err.Details["spent_today"])
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"AuthenticationFailed", ErrAuthenticationFailed(), "AUTH_001", 401},
		{"NotAuthorized", ErrNotAuthorized(), "AUTH_002", 403},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_003", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_004", 401},
		{"EmailExists", ErrEmailExists(), "AUTH_005", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWorkflowErrors(t *testing.T) {
	assert.Equal(t, "REQ_001", ErrAlreadyProcessed().Code)
	assert.Equal(t, 409, ErrAlreadyProcessed().HTTPStatus)
	assert.Equal(t, "REQ_002", ErrStudentIDExists().Code)
	assert.Equal(t, "OTP_001", ErrDeviceNotRegistered().Code)
	assert.Equal(t, 403, ErrDeviceNotRegistered().HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestInternalError(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	err := InternalError(inner)
	assert.Equal(t, "SYS_001", err.Code)
	assert.Equal(t, 500, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}
