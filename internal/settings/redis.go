package settings

import (
	"context"
	"fmt"

	"github.com/danmuck/oscctl/internal/logging"
	backend "github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "oscctl:settings"

// RedisStore keeps settings in one redis hash with host and port fields,
// so several control surfaces can share a target.
type RedisStore struct {
	client *backend.Client
	key    string
}

type RedisOption func(*RedisStore)

func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context) (Settings, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Settings{}, fmt.Errorf("settings redis load failed (%s): %w", s.key, err)
	}
	out := Default()
	if v, ok := fields["host"]; ok {
		out.Host = v
	}
	if v, ok := fields["port"]; ok {
		out.Port = v
	}
	return out.Normalized(), nil
}

func (s *RedisStore) Save(ctx context.Context, in Settings) error {
	in = in.Normalized()
	if err := s.client.HSet(ctx, s.key, "host", in.Host, "port", in.Port).Err(); err != nil {
		return fmt.Errorf("settings redis save failed (%s): %w", s.key, err)
	}
	logging.Infof("settings.RedisStore.Save key=%s host=%q port=%q", s.key, in.Host, in.Port)
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
