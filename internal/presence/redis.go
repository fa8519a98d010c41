package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saipul12c/my-portofolio-sub004/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps presence records in redis, letting presence survive a
// server restart. Records carry no TTL so both backends agree on the
// no-expiry behavior.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a presence store to the given redis address.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping reports whether redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

func (r *RedisStore) Set(ctx context.Context, rec models.PresenceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal presence record: %w", err)
	}
	return r.client.Set(ctx, presenceKey(rec.UserID), data, 0).Err()
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	data, err := r.client.Get(ctx, presenceKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec models.PresenceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode presence record: %w", err)
	}
	return &rec, nil
}
