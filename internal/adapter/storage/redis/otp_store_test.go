package redis

import (
	"context"
	"testing"
	"time"

	"campus-wallet/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPStore_SaveAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewOTPStore(client)
	ctx := context.Background()

	studentID := uuid.New()
	grant := ports.OTPGrant{
		Code:      "482913",
		StudentID: studentID,
		ExpiresAt: time.Now().Add(60 * time.Second).UTC().Truncate(time.Second),
	}

	// Get before save => nil
	got, err := store.Get(ctx, "STU-001")
	assert.NoError(t, err)
	assert.Nil(t, got)

	err = store.Save(ctx, "STU-001", grant, 60*time.Second)
	require.NoError(t, err)

	got, err = store.Get(ctx, "STU-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "482913", got.Code)
	assert.Equal(t, studentID, got.StudentID)
	assert.True(t, grant.ExpiresAt.Equal(got.ExpiresAt))
}

func TestOTPStore_ReissueOverwrites(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewOTPStore(client)
	ctx := context.Background()

	studentID := uuid.New()

	err := store.Save(ctx, "STU-002", ports.OTPGrant{Code: "111111", StudentID: studentID}, time.Minute)
	require.NoError(t, err)

	err = store.Save(ctx, "STU-002", ports.OTPGrant{Code: "222222", StudentID: studentID}, time.Minute)
	require.NoError(t, err)

	got, err := store.Get(ctx, "STU-002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "222222", got.Code, "reissuing must invalidate the prior code")
}

func TestOTPStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewOTPStore(client)
	ctx := context.Background()

	err := store.Save(ctx, "STU-003", ports.OTPGrant{Code: "333333", StudentID: uuid.New()}, 1*time.Second)
	require.NoError(t, err)

	// Fast-forward past TTL
	s.FastForward(2 * time.Second)

	got, err := store.Get(ctx, "STU-003")
	assert.NoError(t, err)
	assert.Nil(t, got, "expired grant should return nil")
}

func TestOTPStore_DeleteConsumes(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewOTPStore(client)
	ctx := context.Background()

	err := store.Save(ctx, "STU-004", ports.OTPGrant{Code: "444444", StudentID: uuid.New()}, time.Minute)
	require.NoError(t, err)

	err = store.Delete(ctx, "STU-004")
	require.NoError(t, err)

	got, err := store.Get(ctx, "STU-004")
	assert.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error
	err = store.Delete(ctx, "STU-004")
	assert.NoError(t, err)
}
