package service

import (
	"context"
	"testing"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports/mocks"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type ruleTestDeps struct {
	svc      *RuleServiceImpl
	ruleRepo *mocks.MockRuleRepository
	txRepo   *mocks.MockTransactionRepository
	ctrl     *gomock.Controller
}

func setupRuleService(t *testing.T) *ruleTestDeps {
	ctrl := gomock.NewController(t)
	d := &ruleTestDeps{
		ruleRepo: mocks.NewMockRuleRepository(ctrl),
		txRepo:   mocks.NewMockTransactionRepository(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewRuleService(d.ruleRepo, d.txRepo, newTestLogger())
	return d
}

func limitRule(walletID uuid.UUID, limit string) *domain.SpendingRule {
	l := decimal.RequireFromString(limit)
	return &domain.SpendingRule{
		ID:         uuid.New(),
		WalletID:   walletID,
		DailyLimit: &l,
		Active:     true,
	}
}

func TestRuleService_NoRulePasses(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(nil, nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("50.00"), uuid.New(), time.Now())
	require.NoError(t, err)
}

func TestRuleService_WithinLimitPasses(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local)

	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(limitRule(walletID, "200.00"), nil)
	d.txRepo.EXPECT().SumCompletedPayments(ctx, tx, walletID, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, _ uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
			assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local), from)
			assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.Local), to)
			return decimal.RequireFromString("150.00"), nil
		},
	)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("50.00"), uuid.New(), now)
	require.NoError(t, err)
}

func TestRuleService_ExactLimitBoundaryPasses(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	// spent 150 + amount 50 == limit 200: allowed, only exceeding denies
	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(limitRule(walletID, "200.00"), nil)
	d.txRepo.EXPECT().SumCompletedPayments(ctx, tx, walletID, gomock.Any(), gomock.Any()).
		Return(decimal.RequireFromString("150.00"), nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("50.00"), uuid.New(), time.Now())
	require.NoError(t, err)
}

func TestRuleService_OverLimitDenied(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(limitRule(walletID, "200.00"), nil)
	d.txRepo.EXPECT().SumCompletedPayments(ctx, tx, walletID, gomock.Any(), gomock.Any()).
		Return(decimal.RequireFromString("150.00"), nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("50.01"), uuid.New(), time.Now())

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
	assert.Equal(t, "200", appErr.Details["daily_limit"])
	assert.Equal(t, "150", appErr.Details["spent_today"])
}

func TestRuleService_InactiveLimitIgnored(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	rule := limitRule(walletID, "10.00")
	rule.Active = false
	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(rule, nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("999.00"), uuid.New(), time.Now())
	require.NoError(t, err)
}

func TestRuleService_VendorNotOnAllowList(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	tx := &mockTx{}

	rule := limitRule(walletID, "200.00")
	rule.AllowedVendors = []uuid.UUID{uuid.New(), uuid.New()}
	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(rule, nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("5.00"), uuid.New(), time.Now())
	assertAppError(t, err, "PAY_005")
}

func TestRuleService_VendorOnAllowList(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	vendorID := uuid.New()
	tx := &mockTx{}

	rule := limitRule(walletID, "200.00")
	rule.AllowedVendors = []uuid.UUID{vendorID}
	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(rule, nil)
	d.txRepo.EXPECT().SumCompletedPayments(ctx, tx, walletID, gomock.Any(), gomock.Any()).
		Return(decimal.Zero, nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("5.00"), vendorID, time.Now())
	require.NoError(t, err)
}

func TestRuleService_LimitlessRuleOnlyChecksVendors(t *testing.T) {
	d := setupRuleService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	vendorID := uuid.New()
	tx := &mockTx{}

	// Active rule with a vendor list but no daily limit: no sum query
	rule := &domain.SpendingRule{
		ID:             uuid.New(),
		WalletID:       walletID,
		Active:         true,
		AllowedVendors: []uuid.UUID{vendorID},
	}
	d.ruleRepo.EXPECT().GetActiveByWallet(ctx, tx, walletID).Return(rule, nil)

	err := d.svc.Check(ctx, tx, walletID, decimal.RequireFromString("5.00"), vendorID, time.Now())
	require.NoError(t, err)
}
