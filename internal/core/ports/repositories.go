package ports

import (
	"context"
	"time"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for authenticating accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Count(ctx context.Context, role domain.Role) (int64, error)
}

// VendorRepository defines persistence operations for vendor store profiles.
type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Vendor, error)
	List(ctx context.Context, approvedOnly bool) ([]domain.Vendor, error)
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
}

// StudentRepository defines persistence operations for students.
// Methods accepting pgx.Tx run inside transaction blocks.
type StudentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, student *domain.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Student, error)
	ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.Student, error)
	ListAll(ctx context.Context) ([]domain.Student, error)
	UpdatePINHash(ctx context.Context, id uuid.UUID, pinHash string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudentStatus) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks; the ForUpdate
// variants take a pessimistic row lock that serializes all balance-changing
// work against the wallet.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	CreateInTx(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUser(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error)
	GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// ApplyDelta adds a signed amount to the wallet balance and returns the
	// new balance. The store refuses to drive a balance negative even if the
	// caller's pre-check was bypassed.
	ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
}

// TransactionFilter holds filters for transaction listing.
type TransactionFilter struct {
	WalletID *uuid.UUID
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	From     *time.Time
	To       *time.Time
	Limit    int
}

// LedgerStats aggregates transaction counters for the admin dashboard.
type LedgerStats struct {
	Total       int64
	Completed   int64
	Pending     int64
	Failed      int64
	Volume      decimal.Decimal // sum of COMPLETED amounts
	Deposits    int64
	Transfers   int64
	Payments    int64
	Withdrawals int64
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	CreateItems(ctx context.Context, tx pgx.Tx, items []domain.TransactionItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// UpdateStatus transitions a PENDING transaction to a terminal status and
	// annotates the description. It fails if the row is already terminal.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, annotation string) error
	// SumCompletedPayments totals COMPLETED PAYMENT debits of a wallet in
	// [from, to). Called inside the charge transaction so the figure cannot
	// go stale under the wallet row lock.
	SumCompletedPayments(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	ItemsForTransaction(ctx context.Context, txnID uuid.UUID) ([]domain.TransactionItem, error)
	List(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	Stats(ctx context.Context) (*LedgerStats, error)
}

// RuleRepository defines persistence operations for spending rules.
// A wallet holds at most one rule; Upsert updates in place.
type RuleRepository interface {
	Upsert(ctx context.Context, rule *domain.SpendingRule) error
	GetByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SpendingRule, error)
	GetActiveByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.SpendingRule, error)
}

// RequestRepository defines persistence operations for money requests.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.MoneyRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error)
	// Resolve transitions a PENDING request to a terminal status. It reports
	// false when the request was already resolved (no rows updated).
	Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, reviewerID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.MoneyRequest, error)
	ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.MoneyRequest, error)
}

// AuditFilter holds filters for audit log queries.
type AuditFilter struct {
	ActorID    *uuid.UUID
	Action     *domain.AuditAction
	EntityType *string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AuditRepository defines persistence for the append-only audit log.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// DBTransactor provides database transaction management. All multi-record
// ledger mutations run inside a single transaction obtained here: either
// every write in the batch commits or none become visible.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
