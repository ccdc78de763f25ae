package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-wallet/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// OTPStore implements ports.OTPStore using Redis. One key per student
// external id, so reissuing overwrites the prior grant and a student can
// never hold two live codes.
type OTPStore struct {
	client *goredis.Client
	prefix string
}

// NewOTPStore creates a new Redis-backed OTP store.
func NewOTPStore(client *goredis.Client) *OTPStore {
	return &OTPStore{
		client: client,
		prefix: "otp:",
	}
}

// Save stores the grant under the student's external id with TTL.
func (s *OTPStore) Save(ctx context.Context, externalID string, grant ports.OTPGrant, ttl time.Duration) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal otp grant: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+externalID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis otp set: %w", err)
	}
	return nil
}

// Get retrieves the live grant for a student. Returns nil, nil when no
// grant exists or it already expired.
func (s *OTPStore) Get(ctx context.Context, externalID string) (*ports.OTPGrant, error) {
	val, err := s.client.Get(ctx, s.prefix+externalID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis otp get: %w", err)
	}

	grant := &ports.OTPGrant{}
	if err := json.Unmarshal(val, grant); err != nil {
		return nil, fmt.Errorf("unmarshal otp grant: %w", err)
	}
	return grant, nil
}

// Delete consumes the grant. Deleting an absent key is not an error.
func (s *OTPStore) Delete(ctx context.Context, externalID string) error {
	if err := s.client.Del(ctx, s.prefix+externalID).Err(); err != nil {
		return fmt.Errorf("redis otp delete: %w", err)
	}
	return nil
}
