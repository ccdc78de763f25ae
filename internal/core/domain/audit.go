package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionMoneyAdded          AuditAction = "MONEY_ADDED"
	AuditActionWalletRecharge      AuditAction = "WALLET_RECHARGE"
	AuditActionMoneyTransferred    AuditAction = "MONEY_TRANSFERRED"
	AuditActionVendorPayment       AuditAction = "VENDOR_PAYMENT"
	AuditActionFailedPINAttempt    AuditAction = "FAILED_PIN_ATTEMPT"
	AuditActionFailedOTPAttempt    AuditAction = "FAILED_OTP_ATTEMPT"
	AuditActionWithdrawalRequested AuditAction = "WITHDRAWAL_REQUESTED"
	AuditActionSettlementApproved  AuditAction = "SETTLEMENT_APPROVED"
	AuditActionSettlementRejected  AuditAction = "SETTLEMENT_REJECTED"
	AuditActionStudentCreated      AuditAction = "STUDENT_CREATED"
	AuditActionStudentPINUpdated   AuditAction = "STUDENT_PIN_UPDATED"
	AuditActionStudentStatusSet    AuditAction = "STUDENT_STATUS_UPDATED"
	AuditActionStudentLogin        AuditAction = "STUDENT_LOGIN"
	AuditActionSpendingLimitSet    AuditAction = "SPENDING_LIMIT_SET"
	AuditActionDeviceRegistered    AuditAction = "DEVICE_REGISTERED"
	AuditActionOTPGenerated        AuditAction = "OTP_GENERATED"
	AuditActionRequestApproved     AuditAction = "REQUEST_APPROVED"
	AuditActionRequestRejected     AuditAction = "REQUEST_REJECTED"
	AuditActionVendorApproved      AuditAction = "VENDOR_APPROVED"
	AuditActionRegister            AuditAction = "REGISTER"
	AuditActionLogin               AuditAction = "LOGIN"
)

// AuditEntry records a single security- or finance-relevant action.
// Entries are append-only: never mutated or deleted through normal operation.
type AuditEntry struct {
	ID         uuid.UUID   `json:"id"`
	Action     AuditAction `json:"action"`
	ActorID    uuid.UUID   `json:"actor_id"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id,omitempty"`
	Details    string      `json:"details,omitempty"` // JSON string
	IPAddress  string      `json:"ip_address"`
	CreatedAt  time.Time   `json:"created_at"`
}
