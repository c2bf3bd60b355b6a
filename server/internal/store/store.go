package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/stigkj/tlb/server/internal/config"
	fsstore "github.com/stigkj/tlb/server/internal/store/fs"
	"github.com/stigkj/tlb/server/internal/store/memory"
	s3store "github.com/stigkj/tlb/server/internal/store/s3"
	"github.com/stigkj/tlb/server/internal/store/sqlite"
)

// Store is the persistence contract used by the repository registry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Read returns the value stored under key. A missing key yields an error
	// matching fs.ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write creates or replaces the value stored under key.
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key returns nil.
	Delete(ctx context.Context, key string) error
	// Close releases driver resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFS     = "fs"
	DriverMemory = "memory"
	DriverS3     = "s3"
	DriverSQLite = "sqlite"
)

var (
	_ Store = (*fsstore.Store)(nil)
	_ Store = (*memory.Store)(nil)
	_ Store = (*s3store.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// IsNotExist reports whether err signals a missing key.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Open constructs the driver named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverFS, "":
		return fsstore.New(cfg.Dir)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
