package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps documents in Redis hashes holding the JSON value and a
// version counter bumped on every save. A set per namespace indexes keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore using opts.
func NewRedisStore(opts *redis.Options) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(opts))
}

// NewRedisStoreWithClient shares an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "doc:"}
}

func (s *RedisStore) docKey(namespace, key string) string {
	return s.prefix + namespace + ":" + key
}

func (s *RedisStore) indexKey(namespace string) string {
	return s.prefix + "index:" + namespace
}

// Load returns the stored value or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := checkNames(namespace, key); err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, s.docKey(namespace, key), "value").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", namespace, key, err)
	}
	return data, nil
}

// Save replaces the document and bumps its version in one transaction.
func (s *RedisStore) Save(ctx context.Context, namespace, key string, doc []byte) error {
	_, err := s.SaveVersion(ctx, namespace, key, doc)
	return err
}

// SaveVersion is Save returning the new version.
func (s *RedisStore) SaveVersion(ctx context.Context, namespace, key string, doc []byte) (int64, error) {
	if err := checkNames(namespace, key); err != nil {
		return 0, err
	}
	if !json.Valid(doc) {
		return 0, ErrInvalidDocument
	}
	hkey := s.docKey(namespace, key)
	var ver int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, hkey, "version").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		ver = cur + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hkey, "value", doc, "version", ver)
			pipe.SAdd(ctx, s.indexKey(namespace), key)
			return nil
		})
		return err
	}, hkey)
	if err != nil {
		return 0, fmt.Errorf("save %s/%s: %w", namespace, key, err)
	}
	return ver, nil
}

// Version returns the document version, 0 when absent.
func (s *RedisStore) Version(ctx context.Context, namespace, key string) (int64, error) {
	ver, err := s.client.HGet(ctx, s.docKey(namespace, key), "version").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Delete removes the document and its index entry.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := checkNames(namespace, key); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(namespace, key))
		pipe.SRem(ctx, s.indexKey(namespace), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// ListKeys returns the sorted keys indexed under namespace.
func (s *RedisStore) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	if !validName(namespace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, namespace)
	}
	keys, err := s.client.SMembers(ctx, s.indexKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
