package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind identifies the kind of balance holder.
type WalletKind string

const (
	WalletKindGuardian WalletKind = "GUARDIAN"
	WalletKindStudent  WalletKind = "STUDENT"
	WalletKindVendor   WalletKind = "VENDOR"
)

// Wallet is a balance-holding account tied to exactly one owner:
// a user account (guardian/vendor) or a student.
type Wallet struct {
	ID             uuid.UUID       `json:"id"`
	OwnerUserID    *uuid.UUID      `json:"owner_user_id,omitempty"`
	OwnerStudentID *uuid.UUID      `json:"owner_student_id,omitempty"`
	Kind           WalletKind      `json:"kind"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewUserWallet creates a wallet owned by a user account.
func NewUserWallet(userID uuid.UUID, kind WalletKind, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:          uuid.New(),
		OwnerUserID: &userID,
		Kind:        kind,
		Balance:     decimal.Zero,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewStudentWallet creates a wallet owned by a student.
func NewStudentWallet(studentID uuid.UUID, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:             uuid.New(),
		OwnerStudentID: &studentID,
		Kind:           WalletKindStudent,
		Balance:        decimal.Zero,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CanCover reports whether the wallet balance covers the given debit.
func (w *Wallet) CanCover(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
