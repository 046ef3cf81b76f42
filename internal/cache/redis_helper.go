package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/config"
)

const (
	defaultCacheTTL = 10 * time.Minute
	pingTimeout     = 5 * time.Second
	unlinkBatchSize = 100
)

// jsonStore keeps JSON documents under a key namespace with a fixed TTL.
type jsonStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func newJSONStore(cfg config.CacheConfig, namespace string) (*jsonStore, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	return &jsonStore{client: client, namespace: namespace, ttl: reportTTL(cfg)}, nil
}

func (s *jsonStore) key(id string) string {
	return s.namespace + ":" + id
}

// load decodes the document stored under id into v. A missing key is not an
// error.
func (s *jsonStore) load(ctx context.Context, id string, v interface{}) (bool, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", s.key(id), err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.key(id), err)
	}
	return true, nil
}

func (s *jsonStore) save(ctx context.Context, id string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key(id), err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(id), err)
	}
	return nil
}

func (s *jsonStore) remove(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// removeAll unlinks every key of the namespace in batches while scanning.
func (s *jsonStore) removeAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.namespace+":*", unlinkBatchSize).Iterator()
	batch := make([]string, 0, unlinkBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(cfg.ReportTTLSeconds) * time.Second
}

// buildRedisOptions prefers REDIS_URL and falls back to host and port.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
