package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// BillLock serialises bill generation per charging session.
type BillLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBillLock returns redis-backed lock.
func NewBillLock(client *redis.Client, ttl time.Duration) *BillLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BillLock{client: client, ttl: ttl}
}

func (l *BillLock) key(sessionID int64) string {
	return fmt.Sprintf("billing:generate:%d", sessionID)
}

// Acquire tries to take the session lock. It returns a release func when acquired.
func (l *BillLock) Acquire(ctx context.Context, sessionID int64) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	key := l.key(sessionID)
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
