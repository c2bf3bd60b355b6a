// Package store persists repository state as one opaque value per identifier.
//
// The Store interface is a flat key/value contract: Read returns an error
// matching fs.ErrNotExist when a key was never written (or was deleted),
// Write creates or replaces, Delete is idempotent. Content is stored and
// returned byte-for-byte.
//
// Drivers:
//
//	fs      one file per identifier in a single directory (default)
//	memory  process memory, for tests and throwaway servers
//	s3      one object per identifier in an S3 / MinIO bucket
//	sqlite  one row per identifier in a SQLite table
//
// Open selects a driver from config.StoreConfig.
package store
