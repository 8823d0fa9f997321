package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "lease:trip:"

// releaseScript deletes the lease only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaseRepository hands out short-lived per-trip leases backed by Redis.
type LeaseRepository struct {
	client *redis.Client
}

// NewLeaseRepository constructs the repository. Without a client every acquire succeeds
// and the conditional trip write is the only guard.
func NewLeaseRepository(client *redis.Client) *LeaseRepository {
	return &LeaseRepository{client: client}
}

// Acquire tries to take the lease for tripID. It returns the owner token, or an empty
// token and false when someone else holds it.
func (r *LeaseRepository) Acquire(ctx context.Context, tripID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if r.client == nil {
		return token, true, nil
	}
	ok, err := r.client.SetNX(ctx, leaseKeyPrefix+tripID, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire trip lease %s: %w", tripID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if token still owns it.
func (r *LeaseRepository) Release(ctx context.Context, tripID, token string) error {
	if r.client == nil || token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, r.client, []string{leaseKeyPrefix + tripID}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release trip lease %s: %w", tripID, err)
	}
	return nil
}
