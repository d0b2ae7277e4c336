// Package memory provides durable memory partitions: independent ordered
// byte-keyed maps sliced out of one backing store by a PartitionID.
package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type PartitionID uint8

// Backend kinds accepted by Open.
const (
	BadgerBackend   = "badger"
	SQLiteBackend   = "sqlite"
	VolatileBackend = "memory"

	sqliteFileName = "ourledger.db"
)

var (
	// ErrKeyNotFound is returned by Partition.Get when the key is absent.
	ErrKeyNotFound       = errors.New("key not found")
	ErrPartitionMismatch = errors.New("partition identity mismatch")
	ErrLayoutVersion     = errors.New("unsupported layout version")
	ErrReservedPartition = errors.New("partition id is reserved")
	ErrUnknownBackend    = errors.New("unknown backend")
)

// BackendError wraps a failure reported by the underlying store.
type BackendError struct {
	Original error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("backend error: %v", e.Original)
}

func (e BackendError) Unwrap() error {
	return e.Original
}

// Partition is an ordered byte-keyed map. Every mutating call is durable
// before it returns.
type Partition interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Ascend calls fn for every entry in ascending key order until fn returns false.
	// fn must not call back into the partition.
	Ascend(fn func(key, value []byte) bool) error
}

// Backend slices one store into partitions.
type Backend interface {
	Partition(id PartitionID) Partition
	Compact() error
	Close() error
}

// Open opens the backend of the given kind rooted at dir.
func Open(kind, dir string, logger *zap.Logger) (Backend, error) {
	switch kind {
	case BadgerBackend:
		return OpenBadger(dir, logger)
	case SQLiteBackend:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return OpenSQLite(filepath.Join(dir, sqliteFileName))
	case VolatileBackend:
		return NewVolatile(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
