package postgres

import (
	"context"
	"testing"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(userID uuid.UUID) *domain.Wallet {
	return &domain.Wallet{
		ID:          uuid.New(),
		OwnerUserID: &userID,
		Kind:        domain.WalletKindGuardian,
		Balance:     decimal.RequireFromString("100.00"),
		Currency:    "VND",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func walletColumnNames() []string {
	return []string{"id", "owner_user_id", "owner_student_id", "kind", "balance", "currency", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumnNames()).AddRow(
		w.ID, w.OwnerUserID, w.OwnerStudentID, w.Kind, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerUserID, w.OwnerStudentID, w.Kind, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_user_id").
		WithArgs(*w.OwnerUserID, domain.WalletKindGuardian).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByUser(context.Background(), *w.OwnerUserID, domain.WalletKindGuardian)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.True(t, w.Balance.Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUser_Absent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	userID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_user_id").
		WithArgs(userID, domain.WalletKindVendor).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	result, err := repo.GetByUser(context.Background(), userID, domain.WalletKindVendor)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ApplyDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	delta := decimal.RequireFromString("-40.00")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets SET balance = balance").
		WithArgs(delta, walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.RequireFromString("60.00")))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	balance, err := repo.ApplyDelta(context.Background(), tx, walletID, delta)
	require.NoError(t, err)
	assert.Equal(t, "60", balance.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ApplyDelta_WouldGoNegative(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	delta := decimal.RequireFromString("-200.00")

	mock.ExpectBegin()
	// The guarded UPDATE matches no row
	mock.ExpectQuery("UPDATE wallets SET balance = balance").
		WithArgs(delta, walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.ApplyDelta(context.Background(), tx, walletID, delta)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_002", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_TotalBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("1234.50")))

	total, err := repo.TotalBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234.5", total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
