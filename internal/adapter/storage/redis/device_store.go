package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"campus-wallet/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DeviceStore implements ports.DeviceStore using Redis. Registrations do
// not expire; a device stays bound to its student until re-registered.
type DeviceStore struct {
	client *goredis.Client
	prefix string
}

// NewDeviceStore creates a new Redis-backed device store.
func NewDeviceStore(client *goredis.Client) *DeviceStore {
	return &DeviceStore{
		client: client,
		prefix: "device:",
	}
}

// Register binds the device key to a student. The per-student set backs
// ExistsForStudent.
func (s *DeviceStore) Register(ctx context.Context, reg ports.DeviceRegistration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal device registration: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.prefix+"key:"+reg.DeviceKey, payload, 0)
	pipe.SAdd(ctx, s.prefix+"student:"+reg.StudentID.String(), reg.DeviceKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis device register: %w", err)
	}
	return nil
}

// Get retrieves a registration by device key. Returns nil, nil when absent.
func (s *DeviceStore) Get(ctx context.Context, deviceKey string) (*ports.DeviceRegistration, error) {
	val, err := s.client.Get(ctx, s.prefix+"key:"+deviceKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis device get: %w", err)
	}

	reg := &ports.DeviceRegistration{}
	if err := json.Unmarshal(val, reg); err != nil {
		return nil, fmt.Errorf("unmarshal device registration: %w", err)
	}
	return reg, nil
}

// ExistsForStudent reports whether the student has at least one device.
func (s *DeviceStore) ExistsForStudent(ctx context.Context, studentID uuid.UUID) (bool, error) {
	count, err := s.client.SCard(ctx, s.prefix+"student:"+studentID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis device count: %w", err)
	}
	return count > 0, nil
}
