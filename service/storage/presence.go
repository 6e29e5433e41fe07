package storage

import (
	"context"
	"time"

	redisc "chatserve/service/storage/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Mirror writes a best-effort copy of the in-process presence registry into
// Redis so operators can see who is online without attaching to the process.
// It is never read on the delivery path; the registry stays authoritative.
type Mirror struct{}

func NewMirror() *Mirror { return &Mirror{} }

// presence key: im:presence:<user>
// value: connection id, TTL bounds staleness to one heartbeat interval
func presenceKey(user string) string { return "im:presence:" + user }

// Online marks the user online and renews the TTL.
func (m *Mirror) Online(ctx context.Context, user, connID string, ttl time.Duration) error {
	rdb := redisc.Get()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), connID, ttl).Err()
}

// Offline deletes the presence key.
func (m *Mirror) Offline(ctx context.Context, user string) error {
	rdb := redisc.Get()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the user has a mirrored presence entry.
func (m *Mirror) Lookup(ctx context.Context, user string) (connID string, online bool, err error) {
	rdb := redisc.Get()
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
