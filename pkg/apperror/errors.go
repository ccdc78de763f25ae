package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string                 `json:"error_code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails attaches structured details for client display.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// ---- Wallet & Ledger (WAL) ----

func ErrNotFound(entity string) *AppError {
	return New("WAL_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_002", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_003", "Invalid amount", http.StatusBadRequest)
}

func ErrConflict() *AppError {
	return New("WAL_004", "Concurrent modification, please retry", http.StatusConflict)
}

// ---- Payments & Settlement (PAY) ----

func ErrDailyLimitExceeded(dailyLimit, spentToday string) *AppError {
	e := New("PAY_001", "Daily spending limit exceeded", http.StatusUnprocessableEntity)
	return e.WithDetails(map[string]interface{}{
		"daily_limit": dailyLimit,
		"spent_today": spentToday,
	})
}

func ErrVendorNotApproved() *AppError {
	return New("PAY_002", "Vendor not approved", http.StatusForbidden)
}

func ErrStudentBlocked() *AppError {
	return New("PAY_003", "Student account is blocked", http.StatusForbidden)
}

func ErrInvalidTransaction() *AppError {
	return New("PAY_004", "Invalid transaction for this operation", http.StatusBadRequest)
}

func ErrVendorNotAllowed() *AppError {
	return New("PAY_005", "Vendor not in the wallet's allowed list", http.StatusForbidden)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrAuthenticationFailed() *AppError {
	return New("AUTH_001", "Authentication failed", http.StatusUnauthorized)
}

func ErrNotAuthorized() *AppError {
	return New("AUTH_002", "Not authorized for this resource", http.StatusForbidden)
}

func ErrInvalidCredentials() *AppError {
	return New("AUTH_003", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_004", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_005", "Email already registered", http.StatusConflict)
}

// ---- OTP & Devices (OTP) ----

func ErrDeviceNotRegistered() *AppError {
	return New("OTP_001", "Device not registered", http.StatusForbidden)
}

// ---- Workflows (REQ) ----

func ErrAlreadyProcessed() *AppError {
	return New("REQ_001", "Request already processed", http.StatusConflict)
}

func ErrStudentIDExists() *AppError {
	return New("REQ_002", "Student ID already exists", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a client-input validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}
