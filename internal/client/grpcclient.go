package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/S0me0neR0man/ourledger/internal/grpcproto"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/token"
)

type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient dials target, sending tok with every call. Extra options
// are applied after the defaults.
func NewGRPCClient(target, tok string, extra ...grpc.DialOption) (*GRPCClient, error) {
	opts := []grpc.DialOption{
		grpc.WithPerRPCCredentials(token.NewTokens(tok)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	opts = append(opts, extra...)

	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Ledger returns the untyped client of the record type d.
func (c *GRPCClient) Ledger(d objects.Descriptor) *Ledger {
	return &Ledger{client: grpcproto.NewLedgerClient(c.conn, d.Service)}
}

// Ledger speaks the wire form of one record type.
type Ledger struct {
	client grpcproto.LedgerClient
}

func (l *Ledger) Get(ctx context.Context, id uint64) (*structpb.Struct, error) {
	return l.client.Get(ctx, wrapperspb.UInt64(id))
}

func (l *Ledger) Create(ctx context.Context, payload *structpb.Struct) (*structpb.Struct, error) {
	return l.client.Create(ctx, payload)
}

func (l *Ledger) Update(ctx context.Context, id uint64, payload *structpb.Struct) (*structpb.Struct, error) {
	return l.client.Update(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		grpcproto.IDField:      objects.Uint64Value(id),
		grpcproto.PayloadField: structpb.NewStructValue(payload),
	}})
}

func (l *Ledger) Delete(ctx context.Context, id uint64) (*structpb.Struct, error) {
	return l.client.Delete(ctx, wrapperspb.UInt64(id))
}

func (l *Ledger) Range(ctx context.Context, start, end uint64) ([]*structpb.Struct, error) {
	return records(l.client.Range(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		grpcproto.StartField: objects.Uint64Value(start),
		grpcproto.EndField:   objects.Uint64Value(end),
	}}))
}

func (l *Ledger) Above(ctx context.Context, threshold float64) ([]*structpb.Struct, error) {
	return records(l.client.Above(ctx, wrapperspb.Double(threshold)))
}

func (l *Ledger) Paginate(ctx context.Context, page, perPage uint64) ([]*structpb.Struct, error) {
	return records(l.client.Paginate(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		grpcproto.PageField:    objects.Uint64Value(page),
		grpcproto.PerPageField: objects.Uint64Value(perPage),
	}}))
}

func (l *Ledger) SortedDesc(ctx context.Context) ([]*structpb.Struct, error) {
	return records(l.client.SortedDesc(ctx, &emptypb.Empty{}))
}

func (l *Ledger) Sum(ctx context.Context) (float64, error) {
	resp, err := l.client.Sum(ctx, &emptypb.Empty{})
	if err != nil {
		return 0, err
	}
	return resp.GetValue(), nil
}

func records(list *structpb.ListValue, err error) ([]*structpb.Struct, error) {
	if err != nil {
		return nil, err
	}
	res := make([]*structpb.Struct, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("list item %d is not a record", i)
		}
		res = append(res, s)
	}
	return res, nil
}
