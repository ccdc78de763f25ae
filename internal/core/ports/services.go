package ports

import (
	"context"
	"time"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService handles PIN and password hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(subjectID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	SubjectID uuid.UUID
	Role      domain.Role
}

// SignatureService verifies HMAC-SHA256 signatures on payment-gateway
// confirmation callbacks.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// OTPGrant is the ephemeral state behind an issued payment code.
type OTPGrant struct {
	Code      string    `json:"code"`
	StudentID uuid.UUID `json:"student_id"` // internal id
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPStore is a keyed TTL store for issued OTP grants, keyed by the
// student's external id. Saving overwrites any prior unconsumed grant.
type OTPStore interface {
	Save(ctx context.Context, externalID string, grant OTPGrant, ttl time.Duration) error
	Get(ctx context.Context, externalID string) (*OTPGrant, error) // nil when absent
	Delete(ctx context.Context, externalID string) error
}

// DeviceRegistration binds a device key to a student for OTP issuance.
type DeviceRegistration struct {
	DeviceKey    string    `json:"device_key"`
	StudentID    uuid.UUID `json:"student_id"`
	DeviceName   string    `json:"device_name,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// DeviceStore persists device registrations.
type DeviceStore interface {
	Register(ctx context.Context, reg DeviceRegistration) error
	Get(ctx context.Context, deviceKey string) (*DeviceRegistration, error) // nil when absent
	ExistsForStudent(ctx context.Context, studentID uuid.UUID) (bool, error)
}

// IdempotencyCache is the fast-path cache for gateway deposit confirmations.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// OTPIssue is the result of issuing a payment code.
type OTPIssue struct {
	Code      string
	ExpiresIn time.Duration
}

// IdentityService validates student credentials and owns OTP issuance.
type IdentityService interface {
	VerifyPIN(ctx context.Context, student *domain.Student, pin string) (bool, error)
	RegisterDevice(ctx context.Context, studentID uuid.UUID, deviceKey, deviceName string) error
	DeviceRegistered(ctx context.Context, studentID uuid.UUID) (bool, error)
	IssueOTP(ctx context.Context, studentID uuid.UUID, deviceKey string) (*OTPIssue, error)
	// ValidateOTP consumes a code (single-use) and returns the internal
	// student id it was issued for.
	ValidateOTP(ctx context.Context, externalID string, code string) (uuid.UUID, error)
}

// RuleEvaluator decides whether a proposed debit violates the wallet's
// spending rule. It must run inside the same database transaction as the
// debit, after the wallet row lock is held.
type RuleEvaluator interface {
	Check(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, vendorUserID uuid.UUID, now time.Time) error
}

// ChargeItem is one cart line on a vendor charge.
type ChargeItem struct {
	MenuItemID *string
	Name       string
	Price      decimal.Decimal
	Quantity   int
}

// ChargeRequest holds validated input for a vendor-initiated payment.
// Exactly one of PIN or OTP must be supplied.
type ChargeRequest struct {
	VendorUserID      uuid.UUID
	StudentExternalID string
	PIN               string
	OTP               string
	Amount            decimal.Decimal // ignored when Items are present
	Description       string
	Items             []ChargeItem
	ClientIP          string
}

// ChargeResult is the outcome of a successful vendor charge.
type ChargeResult struct {
	Transaction   *domain.Transaction
	Items         []domain.TransactionItem
	StudentName   string
	VendorBalance decimal.Decimal
}

// TransferService is the transfer engine: every balance-changing operation
// in the system goes through it.
type TransferService interface {
	// Deposit credits a guardian wallet immediately (manual load).
	Deposit(ctx context.Context, guardianID uuid.UUID, amount decimal.Decimal, clientIP string) (*domain.Transaction, decimal.Decimal, error)
	// InitiateDeposit records a PENDING deposit for a gateway order.
	InitiateDeposit(ctx context.Context, guardianID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Transaction, error)
	// ConfirmDeposit completes a pending gateway deposit. Calling it again
	// for the same reference returns the already-completed transaction
	// without crediting twice.
	ConfirmDeposit(ctx context.Context, reference string, paymentID string, clientIP string) (*domain.Transaction, error)
	// FailDeposit marks a pending gateway deposit FAILED.
	FailDeposit(ctx context.Context, reference string, reason string) error
	// TransferToStudent moves funds from a guardian wallet to one of their
	// students' wallets.
	TransferToStudent(ctx context.Context, guardianID, studentID uuid.UUID, amount decimal.Decimal, description, clientIP string) (*domain.Transaction, decimal.Decimal, error)
	// Charge runs the vendor-initiated payment state machine.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// RequestWithdrawal debits the vendor wallet immediately and records a
	// PENDING withdrawal awaiting administrative settlement.
	RequestWithdrawal(ctx context.Context, vendorUserID uuid.UUID, amount decimal.Decimal, clientIP string) (*domain.Transaction, error)
	// Settle finalizes a pending withdrawal (admin).
	Settle(ctx context.Context, adminID, transactionID uuid.UUID, clientIP string) (*domain.Transaction, error)
	// RejectWithdrawal fails a pending withdrawal and credits the amount
	// back to the vendor wallet (admin).
	RejectWithdrawal(ctx context.Context, adminID, transactionID uuid.UUID, reason, clientIP string) (*domain.Transaction, error)
}

// RequestService tracks guardian-approval money requests.
type RequestService interface {
	Create(ctx context.Context, studentID uuid.UUID, amount decimal.Decimal, reason string) (*domain.MoneyRequest, error)
	Approve(ctx context.Context, requestID, guardianID uuid.UUID, clientIP string) (*domain.MoneyRequest, error)
	Reject(ctx context.Context, requestID, guardianID uuid.UUID, clientIP string) (*domain.MoneyRequest, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]domain.MoneyRequest, error)
	ListForGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.MoneyRequest, error)
}

// RegisterRequest holds input for guardian/vendor registration.
type RegisterRequest struct {
	Name      string
	Email     string
	Password  string
	StoreName string // vendors only
	ClientIP  string
}

// Session is an issued login session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// StudentSession is an issued student mobile session.
type StudentSession struct {
	Token     string
	ExpiresAt time.Time
	Student   *domain.Student
	Balance   decimal.Decimal
}

// AuthService defines registration and login for all principals.
type AuthService interface {
	RegisterGuardian(ctx context.Context, req RegisterRequest) (*domain.User, error)
	RegisterVendor(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password, clientIP string) (*Session, error)
	StudentLogin(ctx context.Context, externalID, pin, clientIP string) (*StudentSession, error)
}

// CreateStudentRequest holds input for provisioning a student.
type CreateStudentRequest struct {
	GuardianID uuid.UUID
	Name       string
	ExternalID string
	PIN        string
	ClientIP   string
}

// StudentWithBalance pairs a student with their wallet balance.
type StudentWithBalance struct {
	Student domain.Student
	Balance decimal.Decimal
}

// SpendingLimitStatus is the guardian view of a student's rule.
type SpendingLimitStatus struct {
	DailyLimit decimal.Decimal
	Active     bool
	SpentToday decimal.Decimal
	Remaining  *decimal.Decimal // nil when no limit applies
}

// StudentService manages student lifecycle and spending rules.
type StudentService interface {
	Create(ctx context.Context, req CreateStudentRequest) (*domain.Student, error)
	ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]StudentWithBalance, error)
	ListAll(ctx context.Context) ([]StudentWithBalance, error)
	UpdatePIN(ctx context.Context, guardianID, studentID uuid.UUID, newPIN, clientIP string) error
	SetStatus(ctx context.Context, guardianID, studentID uuid.UUID, status domain.StudentStatus, clientIP string) (*domain.Student, error)
	SetSpendingLimit(ctx context.Context, guardianID, studentID uuid.UUID, dailyLimit decimal.Decimal, allowedVendors []uuid.UUID, clientIP string) (*domain.SpendingRule, error)
	GetSpendingLimit(ctx context.Context, guardianID, studentID uuid.UUID) (*SpendingLimitStatus, error)
	Transactions(ctx context.Context, guardianID, studentID uuid.UUID, limit int) ([]domain.Transaction, error)
}

// AuditService is the append-only audit log. Log is fire-and-forget: a
// persistence failure never fails the originating operation.
type AuditService interface {
	Log(ctx context.Context, action domain.AuditAction, actorID uuid.UUID, entityType, entityID string, details map[string]interface{}, ipAddress string)
	Query(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// DashboardStats aggregates platform-wide figures for the admin dashboard.
type DashboardStats struct {
	TotalUsers      int64
	TotalGuardians  int64
	TotalStudents   int64
	ActiveStudents  int64
	BlockedStudents int64
	TotalVendors    int64
	ApprovedVendors int64
	PendingVendors  int64
	TotalWallets    int64
	TotalBalance    decimal.Decimal
	Ledger          LedgerStats
}

// ReportingService defines read-only aggregation over the ledger.
type ReportingService interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	WalletForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	WalletHistory(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]domain.Transaction, error)
}

// VendorService manages the vendor directory and the approval gate.
type VendorService interface {
	List(ctx context.Context, approvedOnly bool) ([]domain.Vendor, error)
	SetApproved(ctx context.Context, adminID, vendorID uuid.UUID, approved bool, clientIP string) (*domain.Vendor, error)
	Transactions(ctx context.Context, vendorUserID uuid.UUID, limit int) ([]domain.Transaction, error)
}
