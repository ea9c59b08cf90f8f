package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"remote-file-manager/internal/domain"
)

const keyPrefix = "filemanager:clipboard:"

// RedisStore буферы обмена в Redis, когда прокси запущен в нескольких экземплярах.
// Каждая запись живёт ttl с момента последнего копирования.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ domain.ClipboardStore = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis создаёт клиента и проверяет соединение.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) key(clientID string) string {
	return keyPrefix + clientID
}

func (r *RedisStore) Set(ctx context.Context, clientID string, state domain.ClipboardState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode clipboard: %w", err)
	}
	if err := r.client.Set(ctx, r.key(clientID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store clipboard for %s: %w", clientID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, clientID string) (domain.ClipboardState, bool, error) {
	data, err := r.client.Get(ctx, r.key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ClipboardState{}, false, nil
	}
	if err != nil {
		return domain.ClipboardState{}, false, fmt.Errorf("load clipboard for %s: %w", clientID, err)
	}

	var state domain.ClipboardState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ClipboardState{}, false, fmt.Errorf("decode clipboard for %s: %w", clientID, err)
	}
	return state, true, nil
}

func (r *RedisStore) Clear(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, r.key(clientID)).Err(); err != nil {
		return fmt.Errorf("clear clipboard for %s: %w", clientID, err)
	}
	return nil
}
