package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.ContentStore using Redis strings.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration applied on every write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the namespace prepended to every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "plotforge:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key namespace.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set writes the value with the configured TTL (0 means no expiration).
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Keys lists keys under prefix using SCAN, sorted, without the store namespace.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"

	keys := []string{}
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
