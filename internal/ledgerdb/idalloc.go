package ledgerdb

import (
	"errors"
	"fmt"
	"math"

	"github.com/S0me0neR0man/ourledger/internal/codec"
	"github.com/S0me0neR0man/ourledger/internal/memory"
)

var counterKey = []byte("next_id")

// Allocator is a durable monotonic counter living alone in its partition.
//
// IMPORTANT: Allocator does not provide thread safety, the owning Ledger
// serialises Next calls.
type Allocator struct {
	part memory.Partition
}

// NewAllocator initialises the counter to 0 on first use.
func NewAllocator(part memory.Partition) (*Allocator, error) {
	a := &Allocator{part: part}

	_, err := a.Peek()
	if errors.Is(err, memory.ErrKeyNotFound) {
		if err := part.Set(counterKey, codec.PutUint64(0)); err != nil {
			return nil, fmt.Errorf("init counter: %w", err)
		}
		return a, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Peek returns the next id without allocating it.
func (a *Allocator) Peek() (uint64, error) {
	raw, err := a.part.Get(counterKey)
	if err != nil {
		return 0, err
	}
	return codec.Uint64(raw)
}

// Next returns the current counter value and durably stores value+1.
func (a *Allocator) Next() (uint64, error) {
	id, err := a.Peek()
	if err != nil {
		return 0, unrecoverable("read counter", err)
	}
	if id == math.MaxUint64 {
		return 0, unrecoverable("advance counter", ErrCounterOverflow)
	}
	if err := a.part.Set(counterKey, codec.PutUint64(id+1)); err != nil {
		return 0, unrecoverable("write counter", err)
	}
	return id, nil
}
