package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const ext = ".json"

// FileStore keeps each document in root/<namespace>/<key>.json. Writes go
// through a temp file and rename so readers never observe a partial file.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the data directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) path(namespace, key string) string {
	return filepath.Join(s.root, namespace, key+ext)
}

// Load returns the stored bytes or ErrNotFound.
func (s *FileStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := checkNames(namespace, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readFile(s.path(namespace, key))
}

// Save validates doc and atomically replaces the file.
func (s *FileStore) Save(ctx context.Context, namespace, key string, doc []byte) error {
	if err := checkNames(namespace, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := pretty(doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(namespace, key), data)
}

// Delete removes the document. Deleting an absent document is not an error.
func (s *FileStore) Delete(ctx context.Context, namespace, key string) error {
	if err := checkNames(namespace, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(namespace, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// ListKeys returns the sorted keys stored under namespace.
func (s *FileStore) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	if !validName(namespace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, namespace)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, namespace))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	sort.Strings(keys)
	return keys, nil
}

// LoadRoot decodes root/<name>.json into v. It reports false when the file
// does not exist, leaving v untouched.
func (s *FileStore) LoadRoot(ctx context.Context, name string, v any) (bool, error) {
	if !validName(name) {
		return false, fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := readFile(filepath.Join(s.root, name+ext))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// SaveRoot atomically writes v to root/<name>.json.
func (s *FileStore) SaveRoot(ctx context.Context, name string, v any) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return writeFileAtomic(filepath.Join(s.root, name+ext), data)
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func pretty(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp, path)
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, werr)
	}
	return nil
}
