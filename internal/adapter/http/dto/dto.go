package dto

import (
	"time"

	"campus-wallet/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ---- Auth ----

// RegisterGuardianRequest is the request body for guardian registration.
type RegisterGuardianRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// RegisterVendorRequest is the request body for vendor registration.
type RegisterVendorRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	StoreName string `json:"store_name" binding:"required,min=1,max=100"`
}

// LoginRequest is the request body for guardian/vendor/admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// StudentLoginRequest is the request body for the student mobile login.
type StudentLoginRequest struct {
	StudentID string `json:"student_id" binding:"required,safe_id,max=50"`
	PIN       string `json:"pin" binding:"required,pin"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// SessionResponse is the response body for successful login.
type SessionResponse struct {
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
	User   UserResponse `json:"user"`
}

// StudentSessionResponse is the response body for successful student login.
type StudentSessionResponse struct {
	Token   string          `json:"token"`
	Expiry  int64           `json:"expiry"`
	Student StudentResponse `json:"student"`
	Balance decimal.Decimal `json:"balance"`
}

// ---- Students ----

// CreateStudentRequest is the request body for provisioning a student.
type CreateStudentRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	StudentID string `json:"student_id" binding:"required,safe_id,max=50"`
	PIN       string `json:"pin" binding:"required,pin"`
}

// UpdatePINRequest is the request body for a guardian PIN reset.
type UpdatePINRequest struct {
	PIN string `json:"pin" binding:"required,pin"`
}

// UpdateStatusRequest is the request body for blocking/unblocking a student.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE BLOCKED"`
}

// SetSpendingLimitRequest is the request body for the daily limit rule.
// A zero limit with no allowed vendors disables the rule.
type SetSpendingLimitRequest struct {
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	AllowedVendors []string        `json:"allowed_vendors" binding:"omitempty,dive,uuid"`
}

// SpendingLimitResponse is the guardian view of a student's rule.
type SpendingLimitResponse struct {
	DailyLimit decimal.Decimal  `json:"daily_limit"`
	Active     bool             `json:"active"`
	SpentToday decimal.Decimal  `json:"spent_today"`
	Remaining  *decimal.Decimal `json:"remaining,omitempty"`
}

// StudentResponse is the public view of a student.
type StudentResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	StudentID string          `json:"student_id"`
	Status    string          `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt string          `json:"created_at"`
}

// ---- Wallets & transfers ----

// DepositRequest is the request body for a manual wallet load.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// InitiateDepositRequest starts a gateway deposit for an order reference.
type InitiateDepositRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference" binding:"required,safe_id,max=100"`
}

// GatewayCallbackRequest is the payment-gateway confirmation callback.
// Signature is HMAC-SHA256 over "reference|payment_id" with the shared
// gateway secret.
type GatewayCallbackRequest struct {
	Reference string `json:"reference" binding:"required,max=100"`
	PaymentID string `json:"payment_id" binding:"required,max=100"`
	Status    string `json:"status" binding:"required,oneof=SUCCESS FAILED"`
	Signature string `json:"signature" binding:"required"`
	Reason    string `json:"reason"`
}

// TransferRequest moves funds from the guardian wallet to a student wallet.
type TransferRequest struct {
	StudentID   string          `json:"student_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description" binding:"max=255"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID string          `json:"wallet_id"`
	Kind     string          `json:"kind"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// TransactionResponse is the public view of a ledger entry.
type TransactionResponse struct {
	ID           string          `json:"id"`
	FromWalletID *string         `json:"from_wallet_id,omitempty"`
	ToWalletID   *string         `json:"to_wallet_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Description  string          `json:"description"`
	Reference    *string         `json:"reference,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// DepositResponse pairs the ledger entry with the resulting balance.
type DepositResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// ---- Vendor charge ----

// ChargeItemRequest is one cart line of a vendor charge.
type ChargeItemRequest struct {
	MenuItemID *string         `json:"menu_item_id,omitempty"`
	Name       string          `json:"name" binding:"required,max=100"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
}

// ChargeRequest is the request body for a vendor-initiated payment.
// Exactly one of PIN or OTP must be present.
type ChargeRequest struct {
	StudentID   string              `json:"student_id" binding:"required,safe_id,max=50"`
	PIN         string              `json:"pin" binding:"omitempty,pin"`
	OTP         string              `json:"otp" binding:"omitempty,len=6,numeric"`
	Amount      decimal.Decimal     `json:"amount"`
	Description string              `json:"description" binding:"max=255"`
	Items       []ChargeItemRequest `json:"items" binding:"omitempty,dive"`
}

// ChargeItemResponse echoes a recorded cart line.
type ChargeItemResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ChargeResponse is the response body for a successful charge.
type ChargeResponse struct {
	Transaction   TransactionResponse  `json:"transaction"`
	StudentName   string               `json:"student_name"`
	VendorBalance decimal.Decimal      `json:"vendor_balance"`
	Items         []ChargeItemResponse `json:"items,omitempty"`
}

// WithdrawalRequest is the request body for a vendor payout request.
type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// VendorResponse is the public view of a vendor profile.
type VendorResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	StoreName string `json:"store_name"`
	Approved  bool   `json:"approved"`
	CreatedAt string `json:"created_at"`
}

// ---- Money requests ----

// CreateMoneyRequest is the student ask for funds.
type CreateMoneyRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,max=255"`
}

// MoneyRequestResponse is the public view of a money request.
type MoneyRequestResponse struct {
	ID         string          `json:"id"`
	StudentID  string          `json:"student_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Status     string          `json:"status"`
	ReviewedBy *string         `json:"reviewed_by,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// ---- Student devices & OTP ----

// RegisterDeviceRequest binds a device key to the logged-in student.
type RegisterDeviceRequest struct {
	DeviceKey  string `json:"device_key" binding:"required,min=16,max=128"`
	DeviceName string `json:"device_name" binding:"max=100"`
}

// IssueOTPRequest asks for a one-time payment code.
type IssueOTPRequest struct {
	DeviceKey string `json:"device_key" binding:"required,min=16,max=128"`
}

// OTPResponse carries an issued payment code.
type OTPResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// ---- Admin ----

// SetVendorApprovalRequest toggles the vendor approval gate.
type SetVendorApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// RejectWithdrawalRequest fails a pending withdrawal.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// DashboardStatsResponse is the response for admin dashboard statistics.
type DashboardStatsResponse struct {
	TotalUsers      int64           `json:"total_users"`
	TotalGuardians  int64           `json:"total_guardians"`
	TotalStudents   int64           `json:"total_students"`
	ActiveStudents  int64           `json:"active_students"`
	BlockedStudents int64           `json:"blocked_students"`
	TotalVendors    int64           `json:"total_vendors"`
	ApprovedVendors int64           `json:"approved_vendors"`
	PendingVendors  int64           `json:"pending_vendors"`
	TotalWallets    int64           `json:"total_wallets"`
	TotalBalance    decimal.Decimal `json:"total_balance"`
	Ledger          LedgerStatsDTO  `json:"ledger"`
}

// LedgerStatsDTO aggregates transaction counters.
type LedgerStatsDTO struct {
	Total       int64           `json:"total"`
	Completed   int64           `json:"completed"`
	Pending     int64           `json:"pending"`
	Failed      int64           `json:"failed"`
	Volume      decimal.Decimal `json:"volume"`
	Deposits    int64           `json:"deposits"`
	Transfers   int64           `json:"transfers"`
	Payments    int64           `json:"payments"`
	Withdrawals int64           `json:"withdrawals"`
}

// AuditEntryResponse is the admin view of an audit record.
type AuditEntryResponse struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	ActorID    string `json:"actor_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Details    string `json:"details,omitempty"`
	IPAddress  string `json:"ip_address"`
	CreatedAt  string `json:"created_at"`
}

// ---- Mapping helpers ----

// FromTransaction maps a ledger entry to its response shape.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID.String(),
		Amount:      t.Amount,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Description: t.Description,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.FromWalletID != nil {
		s := t.FromWalletID.String()
		resp.FromWalletID = &s
	}
	if t.ToWalletID != nil {
		s := t.ToWalletID.String()
		resp.ToWalletID = &s
	}
	return resp
}

// FromTransactions maps a slice of ledger entries.
func FromTransactions(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, FromTransaction(&txns[i]))
	}
	return out
}

// FromUser maps an account to its public shape.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromStudent maps a student with a known balance.
func FromStudent(s *domain.Student, balance decimal.Decimal) StudentResponse {
	return StudentResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		StudentID: s.ExternalID,
		Status:    string(s.Status),
		Balance:   balance,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromVendor maps a vendor profile to its public shape.
func FromVendor(v *domain.Vendor) VendorResponse {
	return VendorResponse{
		ID:        v.ID.String(),
		UserID:    v.UserID.String(),
		StoreName: v.StoreName,
		Approved:  v.Approved,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromMoneyRequest maps a money request to its public shape.
func FromMoneyRequest(r *domain.MoneyRequest) MoneyRequestResponse {
	resp := MoneyRequestResponse{
		ID:        r.ID.String(),
		StudentID: r.StudentID.String(),
		Amount:    r.Amount,
		Reason:    r.Reason,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.ReviewedBy != nil {
		s := r.ReviewedBy.String()
		resp.ReviewedBy = &s
	}
	return resp
}

// FromMoneyRequests maps a slice of money requests.
func FromMoneyRequests(reqs []domain.MoneyRequest) []MoneyRequestResponse {
	out := make([]MoneyRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, FromMoneyRequest(&reqs[i]))
	}
	return out
}

// FromAuditEntry maps an audit record to its admin view.
func FromAuditEntry(e *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID.String(),
		Action:     string(e.Action),
		ActorID:    e.ActorID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		IPAddress:  e.IPAddress,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
