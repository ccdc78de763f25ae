package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RuleRepo implements ports.RuleRepository.
type RuleRepo struct {
	pool Pool
}

// NewRuleRepo creates a new RuleRepo.
func NewRuleRepo(pool Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

const ruleColumns = `id, wallet_id, daily_limit, active, allowed_vendors, created_by, created_at, updated_at`

// Upsert writes the wallet's spending rule, replacing any existing row. The
// unique index on wallet_id makes the conflict target safe.
func (r *RuleRepo) Upsert(ctx context.Context, rule *domain.SpendingRule) error {
	query := `INSERT INTO wallet_rules (id, wallet_id, daily_limit, active, allowed_vendors, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wallet_id) DO UPDATE SET
			daily_limit = EXCLUDED.daily_limit,
			active = EXCLUDED.active,
			allowed_vendors = EXCLUDED.allowed_vendors,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		rule.ID, rule.WalletID, rule.DailyLimit, rule.Active,
		rule.AllowedVendors, rule.CreatedBy, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet rule: %w", err)
	}
	return nil
}

// GetByWallet fetches the wallet's rule regardless of active flag.
// Returns nil when the wallet has no rule.
func (r *RuleRepo) GetByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SpendingRule, error) {
	return scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM wallet_rules WHERE wallet_id = $1`, walletID))
}

// GetActiveByWallet fetches the wallet's active rule inside the charge
// transaction. Returns nil when no active rule exists.
func (r *RuleRepo) GetActiveByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.SpendingRule, error) {
	return scanRule(tx.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM wallet_rules WHERE wallet_id = $1 AND active = TRUE`, walletID))
}

func scanRule(row pgx.Row) (*domain.SpendingRule, error) {
	rule := &domain.SpendingRule{}
	err := row.Scan(
		&rule.ID, &rule.WalletID, &rule.DailyLimit, &rule.Active,
		&rule.AllowedVendors, &rule.CreatedBy, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet rule: %w", err)
	}
	return rule, nil
}
