package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus represents the lifecycle of a money request.
// PENDING is the only non-terminal state; resolution happens exactly once.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// MoneyRequest is a student-initiated ask for funds, resolved by a guardian.
type MoneyRequest struct {
	ID         uuid.UUID       `json:"id"`
	StudentID  uuid.UUID       `json:"student_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Status     RequestStatus   `json:"status"`
	ReviewedBy *uuid.UUID      `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsPending reports whether the request can still be resolved.
func (r *MoneyRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
