package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// keyPrefix namespaces all coach state in a shared Redis instance.
	keyPrefix = "coach:"
	// updateChannel carries the name of every changed key, tagged with the
	// id of the instance that wrote it.
	updateChannel = "coach:updated"
	// updateSeparator splits the origin instance id from the key name in
	// published payloads.
	updateSeparator = "|"
)

// RedisKV persists state in Redis and publishes every write on a pub/sub
// channel so that other coach processes reload the changed slice. Payloads
// carry the writer's instance id; Subscribe drops events this instance
// published itself, so a local persist never triggers a local reload.
type RedisKV struct {
	client     *redis.Client
	logger     *zap.Logger
	instanceID string
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisKV{client: client, logger: logger, instanceID: uuid.NewString()}, nil
}

func joinUpdate(origin, key string) string {
	return origin + updateSeparator + key
}

// splitUpdate parses a published payload. Payloads without a separator are
// treated as untagged keys from an unknown origin.
func splitUpdate(payload string) (origin, key string) {
	if i := strings.Index(payload, updateSeparator); i >= 0 {
		return payload[:i], payload[i+len(updateSeparator):]
	}
	return "", payload
}

// Get returns the raw value stored under key, or ErrNotFound.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set stores the value and announces the change. Publishing is best-effort;
// a failed announcement does not fail the write.
func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := s.client.Publish(ctx, updateChannel, joinUpdate(s.instanceID, key)).Err(); err != nil {
		s.logger.Warn("failed_to_publish_update", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Subscribe returns a channel delivering the name of each key written by
// other processes sharing this Redis instance. Writes made through this KV
// are filtered out. The channel closes when ctx is done.
func (s *RedisKV) Subscribe(ctx context.Context) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, updateChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to updates: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Close(); err != nil {
				s.logger.Warn("failed_to_close_subscription", zap.Error(err))
			}
		}()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				origin, key := splitUpdate(msg.Payload)
				if origin == s.instanceID {
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the Redis connection.
func (s *RedisKV) Close() error {
	return s.client.Close()
}

var _ KV = (*RedisKV)(nil)
