package ledgerdb

import (
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/validate"
)

// Shape describes one record type T and its create/update payload P.
type Shape[T, P any] struct {
	// Name is used in errors, logs and the partition bindings.
	Name string

	CounterPartition memory.PartitionID
	RecordPartition  memory.PartitionID

	// Normalize runs before validation, may be nil.
	Normalize func(P) P
	Rules     *validate.Chain[P]

	// Create builds a fresh record; Apply replaces the domain fields of rec
	// and stamps the update time. Neither touches the id.
	Create func(id uint64, p P, now uint64) T
	Apply  func(rec T, p P, now uint64) T

	ID     func(T) uint64
	Amount func(T) float64
	Date   func(T) uint64
}

func (s Shape[T, P]) prepare(p P) (P, error) {
	if s.Normalize != nil {
		p = s.Normalize(p)
	}
	if s.Rules == nil {
		return p, nil
	}
	return p, s.Rules.Check(p)
}
