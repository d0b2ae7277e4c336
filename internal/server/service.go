package server

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/S0me0neR0man/ourledger/internal/grpcproto"
	"github.com/S0me0neR0man/ourledger/internal/ledgerdb"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/validate"
)

// ledgerService adapts one Ledger to grpcproto.LedgerServer.
type ledgerService[T, P any] struct {
	grpcproto.UnimplementedLedgerServer

	kind   objects.Kind[T, P]
	ledger *ledgerdb.Ledger[T, P]
}

func registerLedger[T, P any](s grpc.ServiceRegistrar, kind objects.Kind[T, P], l *ledgerdb.Ledger[T, P]) {
	grpcproto.RegisterLedgerServer(s, kind.Service, &ledgerService[T, P]{kind: kind, ledger: l})
}

func (ls *ledgerService[T, P]) record(rec T, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return ls.kind.ToStruct(rec), nil
}

func (ls *ledgerService[T, P]) list(records []T, err error) (*structpb.ListValue, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	values := make([]*structpb.Value, 0, len(records))
	for _, rec := range records {
		values = append(values, structpb.NewStructValue(ls.kind.ToStruct(rec)))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (ls *ledgerService[T, P]) Get(ctx context.Context, in *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return ls.record(ls.ledger.Get(in.GetValue()))
}

func (ls *ledgerService[T, P]) Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := ls.kind.PayloadFromStruct(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return ls.record(ls.ledger.Create(p))
}

func (ls *ledgerService[T, P]) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if !objects.Has(in, grpcproto.IDField) {
		return nil, toStatus(&validate.Violation{
			Field: grpcproto.IDField,
			Rule:  validate.RuleRequired,
			Msg:   "id is required",
		})
	}
	id, err := objects.Uint64Field(in, grpcproto.IDField)
	if err != nil {
		return nil, toStatus(err)
	}
	payload, err := objects.StructField(in, grpcproto.PayloadField)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := ls.kind.PayloadFromStruct(payload)
	if err != nil {
		return nil, toStatus(err)
	}
	return ls.record(ls.ledger.Update(id, p))
}

func (ls *ledgerService[T, P]) Delete(ctx context.Context, in *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return ls.record(ls.ledger.Delete(in.GetValue()))
}

// Range takes {start, end}; a missing end is unbounded.
func (ls *ledgerService[T, P]) Range(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	start, err := objects.Uint64Field(in, grpcproto.StartField)
	if err != nil {
		return nil, toStatus(err)
	}
	end := uint64(math.MaxUint64)
	if objects.Has(in, grpcproto.EndField) {
		if end, err = objects.Uint64Field(in, grpcproto.EndField); err != nil {
			return nil, toStatus(err)
		}
	}
	return ls.list(ls.ledger.Range(start, end))
}

func (ls *ledgerService[T, P]) Above(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.ListValue, error) {
	return ls.list(ls.ledger.Above(in.GetValue()))
}

func (ls *ledgerService[T, P]) Paginate(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	page, err := objects.Uint64Field(in, grpcproto.PageField)
	if err != nil {
		return nil, toStatus(err)
	}
	perPage, err := objects.Uint64Field(in, grpcproto.PerPageField)
	if err != nil {
		return nil, toStatus(err)
	}
	return ls.list(ls.ledger.Paginate(page, perPage))
}

func (ls *ledgerService[T, P]) SortedDesc(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return ls.list(ls.ledger.SortedDesc())
}

func (ls *ledgerService[T, P]) Sum(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	sum, err := ls.ledger.Sum()
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Double(sum), nil
}
