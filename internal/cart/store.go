package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage persists cart entries between sessions. Implementations must treat
// an absent value as a valid outcome, not an error.
type Storage interface {
	Load(ctx context.Context, key string) (entries []Entry, found bool, err error)
	Save(ctx context.Context, key string, entries []Entry) error
	Clear(ctx context.Context, key string) error
}

// RedisStorage keeps the serialized entry list under a TTL'd key.
type RedisStorage struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s RedisStorage) key(cartKey string) string {
	if s.Prefix == "" {
		return "cart:" + cartKey
	}
	return s.Prefix + ":cart:" + cartKey
}

func (s RedisStorage) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Load reads and decodes the stored entry list.
func (s RedisStorage) Load(ctx context.Context, cartKey string) ([]Entry, bool, error) {
	if s.R == nil {
		return nil, false, fmt.Errorf("cart: redis storage not configured")
	}
	data, err := s.R.Get(ctx, s.key(cartKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cart: load %s: %w", cartKey, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("cart: decode %s: %w", cartKey, err)
	}
	return entries, true, nil
}

// Save writes the entry list, deleting the key when the cart is empty.
func (s RedisStorage) Save(ctx context.Context, cartKey string, entries []Entry) error {
	if s.R == nil {
		return fmt.Errorf("cart: redis storage not configured")
	}
	if len(entries) == 0 {
		return s.Clear(ctx, cartKey)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cart: encode %s: %w", cartKey, err)
	}
	if err := s.R.Set(ctx, s.key(cartKey), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("cart: save %s: %w", cartKey, err)
	}
	return nil
}

// Clear removes the stored entry list.
func (s RedisStorage) Clear(ctx context.Context, cartKey string) error {
	if s.R == nil {
		return fmt.Errorf("cart: redis storage not configured")
	}
	if err := s.R.Del(ctx, s.key(cartKey)).Err(); err != nil {
		return fmt.Errorf("cart: clear %s: %w", cartKey, err)
	}
	return nil
}
