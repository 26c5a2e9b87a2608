package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/cache"
	"github.com/gmv-dashboard/backend/internal/metrics"
	"github.com/gmv-dashboard/backend/internal/table"
	"github.com/gmv-dashboard/backend/pkg/circuitbreaker"
	"github.com/gmv-dashboard/backend/pkg/logger"
	"github.com/gmv-dashboard/backend/pkg/retry"
)

type Config struct {
	Host             string
	Port             int
	Password         string
	DB               int
	TTL              time.Duration
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// Client is the shared cache tier. Tables are stored as snappy-compressed
// JSON; every call goes through a circuit breaker so an unreachable server
// degrades to local-only caching.
type Client struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

var _ cache.Remote = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	retryCfg := retry.DefaultConfig("redis ping")
	retryCfg.Logger = logger.L()
	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return newClient(client, cfg), nil
}

func newClient(client *redis.Client, cfg Config) *Client {
	return &Client{
		client: client,
		ttl:    cfg.TTL,
		breaker: circuitbreaker.New("redis-cache", circuitbreaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.BreakerTimeout,
			Logger:           logger.L(),
			OnStateChange: func(_ string, _ circuitbreaker.State, to circuitbreaker.State) {
				if to == circuitbreaker.StateClosed {
					metrics.RemoteCacheOpen.Set(0)
				} else {
					metrics.RemoteCacheOpen.Set(1)
				}
			},
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func tableKey(key cache.Key) string {
	return fmt.Sprintf("table:%s", key.String())
}

func sourceKey(source string) string {
	return fmt.Sprintf("source:%s", source)
}

// guard runs op through the breaker. An open breaker is reported as
// skipped, not as a failure.
func (c *Client) guard(op string, fn func() error) (bool, error) {
	err := c.breaker.Execute(fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false, nil
	}
	if err != nil {
		metrics.RemoteCacheErrors.WithLabelValues(op).Inc()
		return true, err
	}
	return true, nil
}

func (c *Client) SetTable(ctx context.Context, key cache.Key, t *table.Table) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	payload := snappy.Encode(nil, data)

	_, err = c.guard("set", func() error {
		pipe := c.client.TxPipeline()
		pipe.Set(ctx, tableKey(key), payload, c.ttl)
		pipe.SAdd(ctx, sourceKey(key.Source), tableKey(key))
		if c.ttl > 0 {
			pipe.Expire(ctx, sourceKey(key.Source), c.ttl)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set table cache: %w", err)
	}

	logger.Debug("Table cached remotely",
		zap.String("key", key.String()),
		zap.Int("raw_bytes", len(data)),
		zap.Int("stored_bytes", len(payload)),
	)
	return nil
}

func (c *Client) GetTable(ctx context.Context, key cache.Key) (*table.Table, bool, error) {
	var payload []byte
	ran, err := c.guard("get", func() error {
		data, err := c.client.Get(ctx, tableKey(key)).Bytes()
		if err == redis.Nil {
			return nil
		}
		payload = data
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get table cache: %w", err)
	}
	if !ran || payload == nil {
		return nil, false, nil
	}

	data, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress table: %w", err)
	}

	var t table.Table
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal table: %w", err)
	}

	logger.Debug("Remote table cache hit", zap.String("key", key.String()))
	return &t, true, nil
}

func (c *Client) InvalidateSource(ctx context.Context, source string) error {
	_, err := c.guard("invalidate", func() error {
		keys, err := c.client.SMembers(ctx, sourceKey(source)).Result()
		if err != nil {
			return err
		}
		keys = append(keys, sourceKey(source))
		return c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate source %s: %w", source, err)
	}

	logger.Info("Remote table cache invalidated", zap.String("source", source))
	return nil
}
