package memory

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/S0me0neR0man/ourledger/internal/codec"
)

const (
	// MetaPartition holds the layout version, the store instance id and the
	// name bound to every partition id ever handed out.
	MetaPartition PartitionID = 255

	// LayoutVersion is bumped whenever partition contents change shape.
	LayoutVersion uint64 = 1
)

var (
	layoutKey   = []byte("layout")
	instanceKey = []byte("instance")
)

// Manager hands out partitions of one backend and guards their identity:
// a partition id, once bound to a name, stays bound across restarts.
type Manager struct {
	backend  Backend
	meta     Partition
	instance uuid.UUID

	mu     sync.Mutex
	opened map[PartitionID]string

	sugar *zap.SugaredLogger
}

// NewManager checks or initialises the layout metadata of backend.
func NewManager(backend Backend, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		backend: backend,
		meta:    backend.Partition(MetaPartition),
		opened:  make(map[PartitionID]string),
		sugar:   logger.Sugar(),
	}

	if err := m.initLayout(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initLayout() error {
	raw, err := m.meta.Get(layoutKey)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		m.instance = uuid.New()
		if err := m.meta.Set(instanceKey, m.instance[:]); err != nil {
			return fmt.Errorf("write instance id: %w", err)
		}
		if err := m.meta.Set(layoutKey, codec.PutUint64(LayoutVersion)); err != nil {
			return fmt.Errorf("write layout version: %w", err)
		}
		m.sugar.Infow("layout initialised", "instance", m.instance, "version", LayoutVersion)
		return nil
	case err != nil:
		return fmt.Errorf("read layout version: %w", err)
	}

	version, err := codec.Uint64(raw)
	if err != nil {
		return fmt.Errorf("read layout version: %w", err)
	}
	if version != LayoutVersion {
		return fmt.Errorf("%w: stored %d, supported %d", ErrLayoutVersion, version, LayoutVersion)
	}

	raw, err = m.meta.Get(instanceKey)
	if err != nil {
		return fmt.Errorf("read instance id: %w", err)
	}
	if m.instance, err = uuid.FromBytes(raw); err != nil {
		return fmt.Errorf("read instance id: %w", err)
	}
	m.sugar.Infow("layout loaded", "instance", m.instance, "version", version)
	return nil
}

// Instance returns the id written when the store was first initialised.
func (m *Manager) Instance() uuid.UUID {
	return m.instance
}

// Partition returns partition id bound to name. The first call ever for an id
// records the binding; later calls with another name fail with
// ErrPartitionMismatch.
func (m *Manager) Partition(id PartitionID, name string) (Partition, error) {
	if id == MetaPartition {
		return nil, fmt.Errorf("%w: %d", ErrReservedPartition, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if bound, ok := m.opened[id]; ok {
		if bound != name {
			return nil, fmt.Errorf("%w: partition %d is %q, requested %q", ErrPartitionMismatch, id, bound, name)
		}
		return m.backend.Partition(id), nil
	}

	key := []byte("partition/" + strconv.Itoa(int(id)))
	stored, err := m.meta.Get(key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		if err := m.meta.Set(key, []byte(name)); err != nil {
			return nil, fmt.Errorf("bind partition %d: %w", id, err)
		}
		m.sugar.Infow("partition bound", "id", id, "name", name)
	case err != nil:
		return nil, fmt.Errorf("read partition %d binding: %w", id, err)
	case string(stored) != name:
		return nil, fmt.Errorf("%w: partition %d is %q, requested %q", ErrPartitionMismatch, id, stored, name)
	}

	m.opened[id] = name
	return m.backend.Partition(id), nil
}

func (m *Manager) Compact() error {
	return m.backend.Compact()
}

func (m *Manager) Close() error {
	return m.backend.Close()
}
