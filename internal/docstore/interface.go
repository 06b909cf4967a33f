// Package docstore persists opaque JSON documents keyed by (namespace, key).
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidKey      = errors.New("invalid namespace or key")
	ErrInvalidDocument = errors.New("document is not valid JSON")
)

// Store is a whole-document key/value store. A Save fully replaces the
// previous content; the store never merges fields.
type Store interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, doc []byte) error
	Delete(ctx context.Context, namespace, key string) error
	ListKeys(ctx context.Context, namespace string) ([]string, error)
	Close() error
}

// Get decodes the document into a T. The bool is false when it is absent.
func Get[T any](ctx context.Context, s Store, namespace, key string) (T, bool, error) {
	var v T
	data, err := s.Load(ctx, namespace, key)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return v, true, nil
}

// Put encodes v and saves it.
func Put[T any](ctx context.Context, s Store, namespace, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	return s.Save(ctx, namespace, key, data)
}

// LockKey is the KeyedMutex key guarding one document.
func LockKey(namespace, key string) string { return namespace + "/" + key }

func validName(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") {
		return false
	}
	return !strings.ContainsAny(s, "/\\:\x00")
}

func checkNames(namespace, key string) error {
	if !validName(namespace) || !validName(key) {
		return fmt.Errorf("%w: %q/%q", ErrInvalidKey, namespace, key)
	}
	return nil
}
