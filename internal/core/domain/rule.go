package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpendingRule is a per-wallet daily debit ceiling, optionally restricted to
// an allow-list of vendor user IDs. A wallet keeps at most one rule; setting
// a new limit updates the existing row in place.
type SpendingRule struct {
	ID             uuid.UUID        `json:"id"`
	WalletID       uuid.UUID        `json:"wallet_id"`
	DailyLimit     *decimal.Decimal `json:"daily_limit,omitempty"` // nil or zero disables the limit
	Active         bool             `json:"active"`
	AllowedVendors []uuid.UUID      `json:"allowed_vendors,omitempty"`
	CreatedBy      uuid.UUID        `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// LimitsSpending reports whether the rule imposes a daily ceiling.
func (r *SpendingRule) LimitsSpending() bool {
	return r.Active && r.DailyLimit != nil && r.DailyLimit.IsPositive()
}

// AllowsVendor reports whether the given vendor user may charge this wallet.
// An empty allow-list permits every vendor.
func (r *SpendingRule) AllowsVendor(vendorUserID uuid.UUID) bool {
	if !r.Active || len(r.AllowedVendors) == 0 {
		return true
	}
	for _, id := range r.AllowedVendors {
		if id == vendorUserID {
			return true
		}
	}
	return false
}
