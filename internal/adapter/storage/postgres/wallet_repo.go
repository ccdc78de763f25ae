package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-wallet/internal/core/domain"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_user_id, owner_student_id, kind, balance, currency, created_at, updated_at`

// Create inserts a new wallet outside any transaction.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_user_id, owner_student_id, kind, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerUserID, w.OwnerStudentID, w.Kind, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// CreateInTx inserts a new wallet inside a transaction, used when the wallet
// row must appear atomically with its owner.
func (r *WalletRepo) CreateInTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_user_id, owner_student_id, kind, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerUserID, w.OwnerStudentID, w.Kind, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id).Scan(
		&w.ID, &w.OwnerUserID, &w.OwnerStudentID, &w.Kind, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByUser fetches a guardian or vendor wallet (non-locking read).
func (r *WalletRepo) GetByUser(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_user_id = $1 AND kind = $2`, userID, kind).Scan(
		&w.ID, &w.OwnerUserID, &w.OwnerStudentID, &w.Kind, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by user: %w", err)
	}
	return w, nil
}

// GetByStudent fetches a student wallet (non-locking read).
func (r *WalletRepo) GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_student_id = $1`, studentID).Scan(
		&w.ID, &w.OwnerUserID, &w.OwnerStudentID, &w.Kind, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by student: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(
		&w.ID, &w.OwnerUserID, &w.OwnerStudentID, &w.Kind, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("wallet")
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// ApplyDelta adds a signed amount to the balance and returns the new value.
// The WHERE clause refuses to drive a balance negative; zero rows updated
// maps to the insufficient-funds error.
func (r *WalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, delta, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperror.ErrInsufficientFunds()
		}
		return decimal.Zero, fmt.Errorf("apply wallet delta: %w", err)
	}
	return balance, nil
}

// TotalBalance sums every wallet balance on the platform.
func (r *WalletRepo) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM wallets`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet balances: %w", err)
	}
	return total, nil
}

// Count returns the number of wallets.
func (r *WalletRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count wallets: %w", err)
	}
	return count, nil
}
