package ledgerdb

import (
	"errors"

	"github.com/S0me0neR0man/ourledger/internal/codec"
	"github.com/S0me0neR0man/ourledger/internal/memory"
)

// Entry is one (id, record) pair of an iteration.
type Entry[T any] struct {
	ID     uint64
	Record T
}

// Store is an ordered id -> record map over one partition. Keys are the
// big-endian id, so partition order is ascending id order.
//
// IMPORTANT: Store does not provide thread safety
type Store[T any] struct {
	part  memory.Partition
	codec *codec.Codec[T]
	id    func(T) uint64
}

func NewStore[T any](part memory.Partition, c *codec.Codec[T], id func(T) uint64) *Store[T] {
	return &Store[T]{part: part, codec: c, id: id}
}

// Get looks id up. The error is always unrecoverable.
func (s *Store[T]) Get(id uint64) (T, bool, error) {
	var zero T

	raw, err := s.part.Get(codec.PutUint64(id))
	if errors.Is(err, memory.ErrKeyNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, unrecoverable("get record", err)
	}

	rec, err := s.codec.Decode(raw)
	if err != nil {
		return zero, false, unrecoverable("get record", err)
	}
	return rec, true, nil
}

// Insert upserts rec under its id.
func (s *Store[T]) Insert(rec T) error {
	raw, err := s.codec.Encode(rec)
	if err != nil {
		return unrecoverable("insert record", err)
	}
	if err := s.part.Set(codec.PutUint64(s.id(rec)), raw); err != nil {
		return unrecoverable("insert record", err)
	}
	return nil
}

// Remove deletes id and returns the record it held.
func (s *Store[T]) Remove(id uint64) (T, bool, error) {
	rec, ok, err := s.Get(id)
	if err != nil || !ok {
		return rec, ok, err
	}
	if err := s.part.Delete(codec.PutUint64(id)); err != nil {
		return rec, false, unrecoverable("remove record", err)
	}
	return rec, true, nil
}

// Iter returns a fresh snapshot of all entries in ascending id order.
func (s *Store[T]) Iter() ([]Entry[T], error) {
	entries := make([]Entry[T], 0)
	var decodeErr error

	err := s.part.Ascend(func(key, value []byte) bool {
		id, err := codec.Uint64(key)
		if err != nil {
			decodeErr = err
			return false
		}
		rec, err := s.codec.Decode(value)
		if err != nil {
			decodeErr = err
			return false
		}
		entries = append(entries, Entry[T]{ID: id, Record: rec})
		return true
	})
	if err != nil {
		return nil, unrecoverable("iterate records", err)
	}
	if decodeErr != nil {
		return nil, unrecoverable("iterate records", decodeErr)
	}
	return entries, nil
}

// Records returns the records of Iter without their keys.
func (s *Store[T]) Records() ([]T, error) {
	entries, err := s.Iter()
	if err != nil {
		return nil, err
	}
	res := make([]T, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Record)
	}
	return res, nil
}

// Len counts stored records.
func (s *Store[T]) Len() (int, error) {
	n := 0
	err := s.part.Ascend(func(_, _ []byte) bool {
		n++
		return true
	})
	if err != nil {
		return 0, unrecoverable("count records", err)
	}
	return n, nil
}
