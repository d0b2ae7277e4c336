package client

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/objects"
)

// Typed decodes the wire form of one record type into T.
type Typed[T, P any] struct {
	ledger *Ledger
	kind   objects.Kind[T, P]
}

func For[T, P any](c *GRPCClient, kind objects.Kind[T, P]) *Typed[T, P] {
	return &Typed[T, P]{ledger: c.Ledger(kind.Descriptor), kind: kind}
}

func (t *Typed[T, P]) one(s *structpb.Struct, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return t.kind.FromStruct(s)
}

func (t *Typed[T, P]) many(list []*structpb.Struct, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	res := make([]T, 0, len(list))
	for _, s := range list {
		rec, err := t.kind.FromStruct(s)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}

func (t *Typed[T, P]) Get(ctx context.Context, id uint64) (T, error) {
	return t.one(t.ledger.Get(ctx, id))
}

func (t *Typed[T, P]) Create(ctx context.Context, p P) (T, error) {
	return t.one(t.ledger.Create(ctx, t.kind.PayloadToStruct(p)))
}

func (t *Typed[T, P]) Update(ctx context.Context, id uint64, p P) (T, error) {
	return t.one(t.ledger.Update(ctx, id, t.kind.PayloadToStruct(p)))
}

func (t *Typed[T, P]) Delete(ctx context.Context, id uint64) (T, error) {
	return t.one(t.ledger.Delete(ctx, id))
}

func (t *Typed[T, P]) Range(ctx context.Context, start, end uint64) ([]T, error) {
	return t.many(t.ledger.Range(ctx, start, end))
}

func (t *Typed[T, P]) Above(ctx context.Context, threshold float64) ([]T, error) {
	return t.many(t.ledger.Above(ctx, threshold))
}

func (t *Typed[T, P]) Paginate(ctx context.Context, page, perPage uint64) ([]T, error) {
	return t.many(t.ledger.Paginate(ctx, page, perPage))
}

func (t *Typed[T, P]) SortedDesc(ctx context.Context) ([]T, error) {
	return t.many(t.ledger.SortedDesc(ctx))
}

func (t *Typed[T, P]) Sum(ctx context.Context) (float64, error) {
	return t.ledger.Sum(ctx)
}
