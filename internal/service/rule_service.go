package service

import (
	"context"
	"time"

	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RuleServiceImpl implements ports.RuleEvaluator. It runs inside the charge
// transaction, after the student wallet row lock is taken, so the spent-today
// figure it reads cannot be changed by a concurrent payment.
type RuleServiceImpl struct {
	ruleRepo ports.RuleRepository
	txRepo   ports.TransactionRepository
	log      zerolog.Logger
}

// NewRuleService creates the spending rule evaluator.
func NewRuleService(ruleRepo ports.RuleRepository, txRepo ports.TransactionRepository, log zerolog.Logger) *RuleServiceImpl {
	return &RuleServiceImpl{ruleRepo: ruleRepo, txRepo: txRepo, log: log}
}

// Check evaluates the wallet's spending rule against a proposed debit. A
// wallet with no active rule passes. The daily window is the server-local
// calendar day: [midnight, next midnight).
func (s *RuleServiceImpl) Check(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, vendorUserID uuid.UUID, now time.Time) error {
	rule, err := s.ruleRepo.GetActiveByWallet(ctx, tx, walletID)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}

	if !rule.AllowsVendor(vendorUserID) {
		return apperror.ErrVendorNotAllowed()
	}

	if !rule.LimitsSpending() {
		return nil
	}

	dayStart, dayEnd := dayBounds(now)

	spent, err := s.txRepo.SumCompletedPayments(ctx, tx, walletID, dayStart, dayEnd)
	if err != nil {
		return err
	}

	limit := *rule.DailyLimit
	if spent.Add(amount).GreaterThan(limit) {
		s.log.Info().
			Str("wallet_id", walletID.String()).
			Str("amount", amount.String()).
			Str("spent_today", spent.String()).
			Str("daily_limit", limit.String()).
			Msg("payment denied by daily limit")
		return apperror.ErrDailyLimitExceeded(limit.String(), spent.String())
	}

	return nil
}

// dayBounds returns the server-local calendar day containing now as the
// half-open interval [midnight, next midnight).
func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
