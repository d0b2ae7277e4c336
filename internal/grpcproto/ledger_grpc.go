// Package grpcproto describes the ledger gRPC services.
//
// Every record type is served under its own service name with the same
// method set. Messages are protobuf well-known types, so no generated code
// is needed: the service descriptor and the client stub are written by hand
// in the shape protoc-gen-go-grpc would produce.
package grpcproto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	GetMethod        = "Get"
	CreateMethod     = "Create"
	UpdateMethod     = "Update"
	DeleteMethod     = "Delete"
	RangeMethod      = "Range"
	AboveMethod      = "Above"
	PaginateMethod   = "Paginate"
	SortedDescMethod = "SortedDesc"
	SumMethod        = "Sum"
)

// Request and response field names.
const (
	IDField      = "id"
	PayloadField = "payload"
	StartField   = "start"
	EndField     = "end"
	PageField    = "page"
	PerPageField = "per_page"
)

// FullMethod returns "/<service>/<method>".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// LedgerServer is the server API of one record type.
type LedgerServer interface {
	Get(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Update takes {id, payload}.
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	// Range takes {start, end}.
	Range(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	Above(context.Context, *wrapperspb.DoubleValue) (*structpb.ListValue, error)
	// Paginate takes {page, per_page}.
	Paginate(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	SortedDesc(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Sum(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error)
}

// UnimplementedLedgerServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) Get(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedLedgerServer) Create(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Create not implemented")
}
func (UnimplementedLedgerServer) Update(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedLedgerServer) Delete(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedLedgerServer) Range(context.Context, *structpb.Struct) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Range not implemented")
}
func (UnimplementedLedgerServer) Above(context.Context, *wrapperspb.DoubleValue) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Above not implemented")
}
func (UnimplementedLedgerServer) Paginate(context.Context, *structpb.Struct) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Paginate not implemented")
}
func (UnimplementedLedgerServer) SortedDesc(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SortedDesc not implemented")
}
func (UnimplementedLedgerServer) Sum(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Sum not implemented")
}

// RegisterLedgerServer registers srv under service.
func RegisterLedgerServer(s grpc.ServiceRegistrar, service string, srv LedgerServer) {
	desc := NewServiceDesc(service)
	s.RegisterService(&desc, srv)
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler[Req proto.Message](fullMethod string, newReq func() Req,
	call func(LedgerServer, context.Context, Req) (interface{}, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newUInt64() *wrapperspb.UInt64Value { return new(wrapperspb.UInt64Value) }
func newDouble() *wrapperspb.DoubleValue { return new(wrapperspb.DoubleValue) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }

// NewServiceDesc returns the descriptor of a ledger service named service.
func NewServiceDesc(service string) grpc.ServiceDesc {
	full := func(method string) string { return FullMethod(service, method) }

	return grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*LedgerServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: GetMethod,
				Handler: unaryHandler(full(GetMethod), newUInt64, func(s LedgerServer, ctx context.Context, in *wrapperspb.UInt64Value) (interface{}, error) {
					return s.Get(ctx, in)
				}),
			},
			{
				MethodName: CreateMethod,
				Handler: unaryHandler(full(CreateMethod), newStruct, func(s LedgerServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
					return s.Create(ctx, in)
				}),
			},
			{
				MethodName: UpdateMethod,
				Handler: unaryHandler(full(UpdateMethod), newStruct, func(s LedgerServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
					return s.Update(ctx, in)
				}),
			},
			{
				MethodName: DeleteMethod,
				Handler: unaryHandler(full(DeleteMethod), newUInt64, func(s LedgerServer, ctx context.Context, in *wrapperspb.UInt64Value) (interface{}, error) {
					return s.Delete(ctx, in)
				}),
			},
			{
				MethodName: RangeMethod,
				Handler: unaryHandler(full(RangeMethod), newStruct, func(s LedgerServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
					return s.Range(ctx, in)
				}),
			},
			{
				MethodName: AboveMethod,
				Handler: unaryHandler(full(AboveMethod), newDouble, func(s LedgerServer, ctx context.Context, in *wrapperspb.DoubleValue) (interface{}, error) {
					return s.Above(ctx, in)
				}),
			},
			{
				MethodName: PaginateMethod,
				Handler: unaryHandler(full(PaginateMethod), newStruct, func(s LedgerServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
					return s.Paginate(ctx, in)
				}),
			},
			{
				MethodName: SortedDescMethod,
				Handler: unaryHandler(full(SortedDescMethod), newEmpty, func(s LedgerServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
					return s.SortedDesc(ctx, in)
				}),
			},
			{
				MethodName: SumMethod,
				Handler: unaryHandler(full(SumMethod), newEmpty, func(s LedgerServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
					return s.Sum(ctx, in)
				}),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "ourledger/ledger.proto",
	}
}

// LedgerClient is the client API of one record type.
type LedgerClient interface {
	Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Delete(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	Range(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Above(ctx context.Context, in *wrapperspb.DoubleValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Paginate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error)
	SortedDesc(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Sum(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error)
}

type ledgerClient struct {
	cc      grpc.ClientConnInterface
	service string
}

func NewLedgerClient(cc grpc.ClientConnInterface, service string) LedgerClient {
	return &ledgerClient{cc: cc, service: service}
}

func invoke[Resp any](ctx context.Context, c *ledgerClient, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, FullMethod(c.service, method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, GetMethod, in, opts)
}

func (c *ledgerClient) Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, CreateMethod, in, opts)
}

func (c *ledgerClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, UpdateMethod, in, opts)
}

func (c *ledgerClient) Delete(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, DeleteMethod, in, opts)
}

func (c *ledgerClient) Range(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c, RangeMethod, in, opts)
}

func (c *ledgerClient) Above(ctx context.Context, in *wrapperspb.DoubleValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c, AboveMethod, in, opts)
}

func (c *ledgerClient) Paginate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c, PaginateMethod, in, opts)
}

func (c *ledgerClient) SortedDesc(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c, SortedDescMethod, in, opts)
}

func (c *ledgerClient) Sum(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	return invoke[wrapperspb.DoubleValue](ctx, c, SumMethod, in, opts)
}
