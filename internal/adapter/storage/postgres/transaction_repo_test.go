package postgres

import (
	"context"
	"testing"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction() *domain.Transaction {
	from := uuid.New()
	to := uuid.New()
	return &domain.Transaction{
		ID:           uuid.New(),
		FromWalletID: &from,
		ToWalletID:   &to,
		Amount:       decimal.RequireFromString("45.00"),
		Type:         domain.TransactionTypePayment,
		Status:       domain.TransactionStatusCompleted,
		Description:  "Payment to Canteen A",
		InitiatedBy:  uuid.New(),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func txColumnNames() []string {
	return []string{"id", "from_wallet_id", "to_wallet_id", "amount", "type", "status", "description", "reference", "initiated_by", "created_at"}
}

func txRow(t *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(txColumnNames()).AddRow(
		t.ID, t.FromWalletID, t.ToWalletID, t.Amount, t.Type, t.Status,
		t.Description, t.Reference, t.InitiatedBy, t.CreatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.FromWalletID, txn.ToWalletID, txn.Amount, txn.Type, txn.Status,
			txn.Description, txn.Reference, txn.InitiatedBy, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByReference_Absent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE reference").
		WithArgs("ORDER-404").
		WillReturnRows(pgxmock.NewRows(txColumnNames()))

	result, err := repo.GetByReference(context.Background(), "ORDER-404")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(domain.TransactionStatusCompleted, "settled", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.TransactionStatusCompleted, "settled")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_004", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumCompletedPayments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(walletID, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("150.00")))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	total, err := repo.SumCompletedPayments(context.Background(), tx, walletID, from, to)
	require.NoError(t, err)
	assert.Equal(t, "150", total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_FiltersByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()
	walletID := *txn.FromWalletID

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE").
		WithArgs(walletID, 50).
		WillReturnRows(txRow(txn))

	out, err := repo.List(context.Background(), ports.TransactionFilter{WalletID: &walletID, Limit: 50})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, txn.ID, out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows(
			[]string{"total", "completed", "pending", "failed", "volume", "deposits", "transfers", "payments", "withdrawals"},
		).AddRow(int64(10), int64(8), int64(1), int64(1), decimal.RequireFromString("500.00"),
			int64(3), int64(2), int64(4), int64(1)))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(4), stats.Payments)
	assert.Equal(t, "500", stats.Volume.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
