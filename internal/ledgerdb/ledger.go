// Package ledgerdb is the persistent keyed record store: one Ledger per
// record shape, owning an id counter partition and a records partition.
package ledgerdb

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/S0me0neR0man/ourledger/internal/codec"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/query"
)

type options struct {
	clock   func() time.Time
	maxSize int
}

type Option func(*options)

// WithClock replaces time.Now for created_at/updated_at stamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMaxRecordSize bounds the encoded size of one record. Values below
// codec.DefaultMaxSize are raised to it.
func WithMaxRecordSize(n int) Option {
	return func(o *options) {
		o.maxSize = max(n, codec.DefaultMaxSize)
	}
}

// Ledger is the tread safe owner of one record shape.
// Writes hold the write lock for the whole allocate-encode-store sequence,
// reads share a snapshot decoded once per store generation.
type Ledger[T, P any] struct {
	shape Shape[T, P]
	ids   *Allocator
	store *Store[T]
	clock func() time.Time

	mu  sync.RWMutex
	gen uint64

	snapshotSFG singleflight.Group
	cacheMu     sync.Mutex
	cacheGen    uint64
	cache       []T

	sugar *zap.SugaredLogger
}

// Open binds the shape partitions in m and checks that the counter is ahead
// of every stored id.
func Open[T, P any](m *memory.Manager, shape Shape[T, P], logger *zap.Logger, opts ...Option) (*Ledger[T, P], error) {
	o := options{clock: time.Now, maxSize: codec.DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}

	counterPart, err := m.Partition(shape.CounterPartition, shape.Name+"/counter")
	if err != nil {
		return nil, err
	}
	recordPart, err := m.Partition(shape.RecordPartition, shape.Name+"/records")
	if err != nil {
		return nil, err
	}

	ids, err := NewAllocator(counterPart)
	if err != nil {
		return nil, fmt.Errorf("open %s counter: %w", shape.Name, err)
	}

	l := &Ledger[T, P]{
		shape: shape,
		ids:   ids,
		store: NewStore(recordPart, codec.New[T](o.maxSize), shape.ID),
		clock: o.clock,
		sugar: logger.Sugar().With("shape", shape.Name),
	}

	if err := l.checkCounter(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger[T, P]) checkCounter() error {
	next, err := l.ids.Peek()
	if err != nil {
		return fmt.Errorf("open %s counter: %w", l.shape.Name, err)
	}
	entries, err := l.store.Iter()
	if err != nil {
		return fmt.Errorf("open %s records: %w", l.shape.Name, err)
	}
	if n := len(entries); n > 0 {
		// entries are in ascending id order
		if last := entries[n-1].ID; next <= last {
			return fmt.Errorf("%w: %s counter=%d, max stored id=%d", ErrCounterBehind, l.shape.Name, next, last)
		}
	}
	l.sugar.Infow("ledger opened", "records", len(entries), "next_id", next)
	return nil
}

func (l *Ledger[T, P]) Name() string {
	return l.shape.Name
}

func (l *Ledger[T, P]) now() uint64 {
	return uint64(l.clock().UnixNano())
}

// Get returns the record with id or a *NotFoundError.
func (l *Ledger[T, P]) Get(id uint64) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok, err := l.store.Get(id)
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, &NotFoundError{Shape: l.shape.Name, Op: "get", ID: id}
	}
	return rec, nil
}

// Create validates p, allocates the next id and stores the new record.
// An id whose record write failed is never handed out again.
func (l *Ledger[T, P]) Create(p P) (T, error) {
	var zero T

	p, err := l.shape.prepare(p)
	if err != nil {
		return zero, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.ids.Next()
	if err != nil {
		return zero, err
	}
	rec := l.shape.Create(id, p, l.now())
	if err := l.store.Insert(rec); err != nil {
		return zero, err
	}
	l.gen++

	l.sugar.Debugw("created", "id", id)
	return rec, nil
}

// Update replaces the domain fields of record id with p.
func (l *Ledger[T, P]) Update(id uint64, p P) (T, error) {
	var zero T

	p, err := l.shape.prepare(p)
	if err != nil {
		return zero, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok, err := l.store.Get(id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, &NotFoundError{Shape: l.shape.Name, Op: "update", ID: id}
	}

	rec = l.shape.Apply(rec, p, l.now())
	if err := l.store.Insert(rec); err != nil {
		return zero, err
	}
	l.gen++

	l.sugar.Debugw("updated", "id", id)
	return rec, nil
}

// Delete removes record id and returns it.
func (l *Ledger[T, P]) Delete(id uint64) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok, err := l.store.Remove(id)
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, &NotFoundError{Shape: l.shape.Name, Op: "delete", ID: id}
	}
	l.gen++

	l.sugar.Debugw("deleted", "id", id)
	return rec, nil
}

// snapshot returns all records in ascending id order. The slice is shared
// between callers and must not be modified.
func (l *Ledger[T, P]) snapshot() ([]T, error) {
	l.mu.RLock()
	gen := l.gen
	l.mu.RUnlock()

	v, err, _ := l.snapshotSFG.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		l.mu.RLock()
		defer l.mu.RUnlock()

		l.cacheMu.Lock()
		if l.cache != nil && l.cacheGen == l.gen {
			records := l.cache
			l.cacheMu.Unlock()
			return records, nil
		}
		l.cacheMu.Unlock()

		records, err := l.store.Records()
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		if l.cache == nil || l.gen >= l.cacheGen {
			l.cache, l.cacheGen = records, l.gen
		}
		l.cacheMu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// Range returns records whose date field lies in [start, end].
func (l *Ledger[T, P]) Range(start, end uint64) ([]T, error) {
	records, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return query.Range(records, start, end, l.shape.Date), nil
}

// Above returns records whose amount field is strictly greater than threshold.
func (l *Ledger[T, P]) Above(threshold float64) ([]T, error) {
	records, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return query.Above(records, threshold, l.shape.Amount), nil
}

func (l *Ledger[T, P]) Paginate(page, perPage uint64) ([]T, error) {
	records, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return query.Paginate(records, page, perPage)
}

// SortedDesc returns every record by amount descending, ties by ascending id.
func (l *Ledger[T, P]) SortedDesc() ([]T, error) {
	records, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	return query.SortedDesc(records, l.shape.Amount, l.shape.ID), nil
}

func (l *Ledger[T, P]) Sum() (float64, error) {
	records, err := l.snapshot()
	if err != nil {
		return 0, err
	}
	return query.Sum(records, l.shape.Amount), nil
}

func (l *Ledger[T, P]) Len() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.store.Len()
}

// NextID returns the id the next Create will get.
func (l *Ledger[T, P]) NextID() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, err := l.ids.Peek()
	if err != nil {
		return 0, unrecoverable("read counter", err)
	}
	return id, nil
}
