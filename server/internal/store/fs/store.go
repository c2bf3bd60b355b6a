// Package fs implements the flat-directory store driver: one file per
// identifier, named after the identifier (see FileName).
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps each value in its own file directly under root.
// Writes go through a temp file and a rename so readers never observe a
// partially written value.
type Store struct {
	root string
}

// New returns a filesystem store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "./tlb-data"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fs store: resolve %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: create %q: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// maxNameLen is the file name limit of common Linux and macOS filesystems.
const maxNameLen = 255

// longPrefix marks hashed names. Encoded names never begin with a dot, so
// hashed names cannot collide with them or with ".tmp-" files.
const longPrefix = ".long-"

const hexDigits = "0123456789ABCDEF"

// FileName maps key to the name of its file under root. Bytes a single file
// name cannot carry are percent-encoded: '%', '/', '\', control bytes and a
// leading '.'. Other keys map to themselves. Names longer than maxNameLen are
// replaced by longPrefix, the SHA-256 of the key and a readable prefix.
func FileName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '%' || c == '/' || c == '\\' || c < 0x20 || c == 0x7f || (i == 0 && c == '.') {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
			continue
		}
		b.WriteByte(c)
	}
	name := b.String()
	if len(name) <= maxNameLen {
		return name
	}
	sum := sha256.Sum256([]byte(key))
	head := longPrefix + hex.EncodeToString(sum[:]) + "-"
	return head + strings.ToValidUTF8(name[:maxNameLen-len(head)], "")
}

func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("fs store: empty key")
	}
	return filepath.Join(s.root, FileName(key)), nil
}

// Read returns the file content for key.
func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Write replaces the file for key atomically.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete removes the file for key if present.
func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op for the filesystem driver.
func (s *Store) Close() error { return nil }
