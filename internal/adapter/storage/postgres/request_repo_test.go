package postgres

import (
	"context"
	"testing"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRepo_Resolve_WinsRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRequestRepo(mock)
	id := uuid.New()
	reviewer := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE money_requests").
		WithArgs(domain.RequestStatusApproved, reviewer, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	resolved, err := repo.Resolve(context.Background(), tx, id, domain.RequestStatusApproved, reviewer)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Resolve_AlreadyResolved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRequestRepo(mock)
	id := uuid.New()
	reviewer := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE money_requests").
		WithArgs(domain.RequestStatusRejected, reviewer, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	resolved, err := repo.Resolve(context.Background(), tx, id, domain.RequestStatusRejected, reviewer)
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
