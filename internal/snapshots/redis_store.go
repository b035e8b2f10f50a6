package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/internal/cart"
	pkgredis "github.com/angelmondragon/cartsync/pkg/redis"
)

type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	CartSnapshotKey(userID string) string
}

// RedisStore keeps one JSON snapshot per user under a TTL'd key.
type RedisStore struct {
	client redisKV
	ttl    time.Duration
}

var _ cart.SnapshotStore = (*RedisStore)(nil)

func NewRedisStore(client redisKV, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, userID string) (cart.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.client.CartSnapshotKey(userID))
	if errors.Is(err, pkgredis.ErrNil) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("load cart snapshot: %w", err)
	}
	var snap cart.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *RedisStore) Save(ctx context.Context, userID string, snap cart.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartSnapshotKey(userID), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
