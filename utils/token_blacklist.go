package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked session token ids until they would have expired anyway.
// It uses Redis when a client is supplied and an in-memory map otherwise.
type TokenBlacklist struct {
	rc *redis.Client

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewTokenBlacklist creates a blacklist; rc may be nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, entries: map[string]time.Time{}}
}

// Revoke marks a token id as revoked until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistPrefix+id, "1", ttl).Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	b.entries[id] = expiresAt
	return nil
}

// IsRevoked reports whether the token id was revoked before its natural expiration.
// A Redis failure is reported as revoked so a logout is never silently undone.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, id string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+id).Result()
		if err != nil {
			Sugar.Warnw("token blacklist lookup failed", "error", err)
			return true
		}
		return n > 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	expiresAt, ok := b.entries[id]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(b.entries, id)
		return false
	}
	return true
}

func (b *TokenBlacklist) sweepLocked() {
	now := time.Now()
	for id, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, id)
		}
	}
}
