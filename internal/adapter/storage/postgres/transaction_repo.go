package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const txColumns = `id, from_wallet_id, to_wallet_id, amount, type, status, description, reference, initiated_by, created_at`

// Create inserts a ledger entry. A duplicate reference maps to the conflict
// error so a gateway order reference is never reused.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, from_wallet_id, to_wallet_id, amount, type, status, description, reference, initiated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.FromWalletID, t.ToWalletID, t.Amount, t.Type, t.Status,
		t.Description, t.Reference, t.InitiatedBy, t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperror.ErrConflict()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateItems inserts the line items of a cart payment.
func (r *TransactionRepo) CreateItems(ctx context.Context, tx pgx.Tx, items []domain.TransactionItem) error {
	query := `INSERT INTO transaction_items (id, transaction_id, menu_item_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, query,
			item.ID, item.TransactionID, item.MenuItemID, item.Name, item.Price, item.Quantity,
		); err != nil {
			return fmt.Errorf("insert transaction item: %w", err)
		}
	}
	return nil
}

// GetByID fetches a ledger entry by its UUID. Returns nil when absent.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIDForUpdate fetches a ledger entry with a row lock. This MUST be
// called within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := r.scanOne(tx.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// GetByReference fetches a ledger entry by gateway order reference.
// Returns nil when absent.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE reference = $1`, reference))
}

// UpdateStatus transitions a PENDING entry to a terminal status, appending
// the annotation to the description. Already-terminal rows match zero rows
// and map to the conflict error.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, annotation string) error {
	query := `UPDATE transactions
		SET status = $1, description = description || ' (' || $2 || ')'
		WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, status, annotation, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrConflict()
	}
	return nil
}

// SumCompletedPayments totals COMPLETED PAYMENT debits of a wallet in
// [from, to).
func (r *TransactionRepo) SumCompletedPayments(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE from_wallet_id = $1 AND type = 'PAYMENT' AND status = 'COMPLETED'
		AND created_at >= $2 AND created_at < $3`

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, query, walletID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum completed payments: %w", err)
	}
	return total, nil
}

// ItemsForTransaction lists the line items of a cart payment.
func (r *TransactionRepo) ItemsForTransaction(ctx context.Context, txnID uuid.UUID) ([]domain.TransactionItem, error) {
	query := `SELECT id, transaction_id, menu_item_id, name, price, quantity
		FROM transaction_items WHERE transaction_id = $1`

	rows, err := r.pool.Query(ctx, query, txnID)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionItem
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.MenuItemID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// List returns ledger entries matching the filter, newest first.
func (r *TransactionRepo) List(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("(from_wallet_id = $%d OR to_wallet_id = $%d)", argIdx, argIdx))
		args = append(args, *filter.WalletID)
		argIdx++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *filter.Type)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		txColumns, strings.Join(conditions, " AND "), argIdx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.FromWalletID, &t.ToWalletID, &t.Amount, &t.Type, &t.Status,
			&t.Description, &t.Reference, &t.InitiatedBy, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats aggregates ledger counters for the admin dashboard.
func (r *TransactionRepo) Stats(ctx context.Context) (*ports.LedgerStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COUNT(*) FILTER (WHERE status = 'FAILED') AS failed,
		COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0) AS volume,
		COUNT(*) FILTER (WHERE type = 'DEPOSIT') AS deposits,
		COUNT(*) FILTER (WHERE type = 'TRANSFER') AS transfers,
		COUNT(*) FILTER (WHERE type = 'PAYMENT') AS payments,
		COUNT(*) FILTER (WHERE type = 'WITHDRAWAL') AS withdrawals
		FROM transactions`

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Completed, &stats.Pending, &stats.Failed, &stats.Volume,
		&stats.Deposits, &stats.Transfers, &stats.Payments, &stats.Withdrawals,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	return stats, nil
}

func (r *TransactionRepo) scanOne(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.FromWalletID, &t.ToWalletID, &t.Amount, &t.Type, &t.Status,
		&t.Description, &t.Reference, &t.InitiatedBy, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
