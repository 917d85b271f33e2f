package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the tokens would have expired anyway.
// Without a Redis client it keeps the ids in process memory.
type Denylist struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{
		client: client,
		prefix: "session:revoked:",
		local:  make(map[string]time.Time),
		now:    time.Now,
	}
}

func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}

	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	if d.client != nil {
		if err := d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err(); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.local[tokenID] = until
	d.purgeLocked()
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	if d.client != nil {
		n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check revoked token: %w", err)
		}
		return n > 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.local[tokenID]
	return ok && d.now().Before(until), nil
}

func (d *Denylist) purgeLocked() {
	now := d.now()
	for id, until := range d.local {
		if !now.Before(until) {
			delete(d.local, id)
		}
	}
}
