package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationPrefix = "procurio:revoked:"

// RevocationStore keeps revoked JWT IDs until their natural expiry. This is
// durable authentication state, not a cache: a missing entry means the
// token is still live.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore constructs the store.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke marks a JWT ID as dead until the token would have expired anyway.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revocationPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the JWT ID has been revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
