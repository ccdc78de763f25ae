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

func TestDeviceStore_RegisterAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDeviceStore(client)
	ctx := context.Background()

	studentID := uuid.New()
	reg := ports.DeviceRegistration{
		DeviceKey:    "device-key-abc",
		StudentID:    studentID,
		DeviceName:   "Minh's phone",
		RegisteredAt: time.Now().UTC().Truncate(time.Second),
	}

	// Get before register => nil
	got, err := store.Get(ctx, "device-key-abc")
	assert.NoError(t, err)
	assert.Nil(t, got)

	err = store.Register(ctx, reg)
	require.NoError(t, err)

	got, err = store.Get(ctx, "device-key-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, studentID, got.StudentID)
	assert.Equal(t, "Minh's phone", got.DeviceName)
}

func TestDeviceStore_ExistsForStudent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDeviceStore(client)
	ctx := context.Background()

	studentID := uuid.New()

	exists, err := store.ExistsForStudent(ctx, studentID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Register(ctx, ports.DeviceRegistration{DeviceKey: "key-1", StudentID: studentID})
	require.NoError(t, err)

	exists, err = store.ExistsForStudent(ctx, studentID)
	require.NoError(t, err)
	assert.True(t, exists)

	// A different student still has no devices
	exists, err = store.ExistsForStudent(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeviceStore_MultipleDevicesPerStudent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDeviceStore(client)
	ctx := context.Background()

	studentID := uuid.New()

	require.NoError(t, store.Register(ctx, ports.DeviceRegistration{DeviceKey: "key-a", StudentID: studentID}))
	require.NoError(t, store.Register(ctx, ports.DeviceRegistration{DeviceKey: "key-b", StudentID: studentID}))

	regA, err := store.Get(ctx, "key-a")
	require.NoError(t, err)
	require.NotNil(t, regA)

	regB, err := store.Get(ctx, "key-b")
	require.NoError(t, err)
	require.NotNil(t, regB)

	assert.Equal(t, studentID, regA.StudentID)
	assert.Equal(t, studentID, regB.StudentID)
}
