package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// TransactionStatus represents the lifecycle state of a transaction.
// PENDING is the only non-terminal state.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

var (
	errNoWallet      = errors.New("transaction must reference at least one wallet")
	errNonPositive   = errors.New("transaction amount must be positive")
	errUnknownType   = errors.New("unknown transaction type")
	errUnknownStatus = errors.New("unknown transaction status")
)

// Transaction is an immutable ledger entry. FromWallet and ToWallet are each
// optional but at least one must be set; the constructor enforces this.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	FromWalletID *uuid.UUID        `json:"from_wallet_id,omitempty"`
	ToWalletID   *uuid.UUID        `json:"to_wallet_id,omitempty"`
	Amount       decimal.Decimal   `json:"amount"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Description  string            `json:"description"`
	Reference    *string           `json:"reference,omitempty"` // external gateway order reference
	InitiatedBy  uuid.UUID         `json:"initiated_by"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TransactionItem is an optional line item attached to a PAYMENT transaction.
type TransactionItem struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	MenuItemID    *string         `json:"menu_item_id,omitempty"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
}

// NewTransaction builds a ledger entry, enforcing the wallet-reference and
// positive-amount invariants at construction time.
func NewTransaction(
	from, to *uuid.UUID,
	amount decimal.Decimal,
	txType TransactionType,
	status TransactionStatus,
	description string,
	initiatedBy uuid.UUID,
) (*Transaction, error) {
	if from == nil && to == nil {
		return nil, errNoWallet
	}
	if !amount.IsPositive() {
		return nil, errNonPositive
	}
	switch txType {
	case TransactionTypeDeposit, TransactionTypeTransfer, TransactionTypePayment, TransactionTypeWithdrawal:
	default:
		return nil, errUnknownType
	}
	switch status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
	default:
		return nil, errUnknownStatus
	}

	return &Transaction{
		ID:           uuid.New(),
		FromWalletID: from,
		ToWalletID:   to,
		Amount:       amount,
		Type:         txType,
		Status:       status,
		Description:  description,
		InitiatedBy:  initiatedBy,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// IsSettleable reports whether an admin may settle this transaction.
func (t *Transaction) IsSettleable() bool {
	return t.Type == TransactionTypeWithdrawal && t.Status == TransactionStatusPending
}
