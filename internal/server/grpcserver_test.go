package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/client"
	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/grpcproto"
	"github.com/S0me0neR0man/ourledger/internal/ledgerdb"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/validate"
)

var (
	once   sync.Once
	logger *zap.Logger
)

func getTestLogger() *zap.Logger {
	once.Do(func() {
		logger = zap.NewNop()
	})
	return logger
}

type testServer struct {
	lis *bufconn.Listener
}

func startServer(t *testing.T, tok string) *testServer {
	t.Helper()

	conf := config.NewConfig()
	conf.Backend = memory.VolatileBackend
	conf.CompactEvery = "0"
	conf.Token = tok

	m, err := memory.NewManager(memory.NewVolatile(), getTestLogger())
	require.NoError(t, err)

	ss := NewLedgerServer(m, conf, getTestLogger())
	_, err = Mount(ss, objects.Expenses())
	require.NoError(t, err)
	_, err = Mount(ss, objects.Votes())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ss.Serve(ctx, lis)
	}()

	t.Cleanup(func() {
		cancel()
		ss.Wait()
		require.NoError(t, <-done)
		require.NoError(t, m.Close())
	})
	return &testServer{lis: lis}
}

func (ts *testServer) dialer() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return ts.lis.DialContext(ctx)
	})
}

func (ts *testServer) client(t *testing.T, tok string) *client.GRPCClient {
	t.Helper()
	c, err := client.NewGRPCClient("bufnet", tok, ts.dialer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, status.Code(err), "%v", err)
}

func TestServer_ExpenseCRUD(t *testing.T) {
	ts := startServer(t, "")
	expenses := client.For(ts.client(t, ""), objects.Expenses())
	ctx := context.Background()

	created, err := expenses.Create(ctx, objects.ExpensePayload{Description: "coffee", Amount: 3.5, Date: 1_700_000_000_000_000_000})
	require.NoError(t, err)
	require.Zero(t, created.ID)
	require.NotZero(t, created.CreatedAt)
	require.Nil(t, created.UpdatedAt)
	// nanosecond values survive the wire exactly
	require.EqualValues(t, uint64(1_700_000_000_000_000_000), created.Date)

	got, err := expenses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	updated, err := expenses.Update(ctx, created.ID, objects.ExpensePayload{Description: "tea", Amount: 2, Date: 5})
	require.NoError(t, err)
	require.Equal(t, "tea", updated.Description)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)

	removed, err := expenses.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, updated, removed)

	_, err = expenses.Get(ctx, created.ID)
	requireCode(t, err, codes.NotFound)
	require.Contains(t, status.Convert(err).Message(), "expense with id=0 not found")

	_, err = expenses.Delete(ctx, created.ID)
	requireCode(t, err, codes.NotFound)

	_, err = expenses.Update(ctx, 77, objects.ExpensePayload{Description: "x", Amount: 1, Date: 1})
	requireCode(t, err, codes.NotFound)
}

func TestServer_InvalidArgument(t *testing.T) {
	ts := startServer(t, "")
	c := ts.client(t, "")
	expenses := client.For(c, objects.Expenses())
	ctx := context.Background()

	_, err := expenses.Create(ctx, objects.ExpensePayload{Description: "", Amount: 1, Date: 1})
	requireCode(t, err, codes.InvalidArgument)
	require.Equal(t, "Description cannot be empty", status.Convert(err).Message())

	_, err = expenses.Create(ctx, objects.ExpensePayload{Description: "x", Amount: -2, Date: 1})
	requireCode(t, err, codes.InvalidArgument)
	require.Equal(t, "Amount must be greater than zero", status.Convert(err).Message())

	raw := c.Ledger(objects.Expenses().Descriptor)

	bad, err := structpb.NewStruct(map[string]any{"description": "x", "amount": 1.0, "date": "yesterday"})
	require.NoError(t, err)
	_, err = raw.Create(ctx, bad)
	requireCode(t, err, codes.InvalidArgument)

	_, err = raw.Paginate(ctx, 0, 10)
	requireCode(t, err, codes.InvalidArgument)

	for _, amount := range []*structpb.Value{structpb.NewStringValue("Inf"), structpb.NewNumberValue(math.Inf(1))} {
		_, err = raw.Create(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
			"description": structpb.NewStringValue("x"),
			"amount":      amount,
			"date":        objects.Uint64Value(1),
		}})
		requireCode(t, err, codes.InvalidArgument)
		require.Equal(t, "Amount must be a finite number", status.Convert(err).Message())
	}

	sum, err := raw.Sum(ctx)
	require.NoError(t, err)
	require.Zero(t, sum)
}

func TestServer_UpdateNeedsID(t *testing.T) {
	ts := startServer(t, "")

	conn, err := grpc.Dial("bufnet", ts.dialer(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	expenses := client.For(ts.client(t, ""), objects.Expenses())
	first, err := expenses.Create(ctx, objects.ExpensePayload{Description: "first", Amount: 1, Date: 1})
	require.NoError(t, err)
	require.Zero(t, first.ID)

	lc := grpcproto.NewLedgerClient(conn, objects.ExpensesService)
	_, err = lc.Update(ctx, &structpb.Struct{})
	requireCode(t, err, codes.InvalidArgument)
	require.Equal(t, "id is required", status.Convert(err).Message())

	// a null id must not fall back to record 0
	payload := objects.Expenses().PayloadToStruct(objects.ExpensePayload{Description: "second", Amount: 2, Date: 2})
	_, err = lc.Update(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		grpcproto.IDField:      structpb.NewNullValue(),
		grpcproto.PayloadField: structpb.NewStructValue(payload),
	}})
	requireCode(t, err, codes.InvalidArgument)
	require.Equal(t, "id is required", status.Convert(err).Message())

	got, err := expenses.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first, got)
}

func TestServer_Queries(t *testing.T) {
	ts := startServer(t, "")
	expenses := client.For(ts.client(t, ""), objects.Expenses())
	ctx := context.Background()

	sum, err := expenses.Sum(ctx)
	require.NoError(t, err)
	require.Zero(t, sum)

	for i, amount := range []float64{5, 15, 10} {
		_, err := expenses.Create(ctx, objects.ExpensePayload{
			Description: fmt.Sprintf("expense %d", i),
			Amount:      amount,
			Date:        uint64(10 * (i + 1)),
		})
		require.NoError(t, err)
	}

	sorted, err := expenses.SortedDesc(ctx)
	require.NoError(t, err)
	require.Len(t, sorted, 3)
	require.Equal(t, []float64{15, 10, 5}, []float64{sorted[0].Amount, sorted[1].Amount, sorted[2].Amount})

	above, err := expenses.Above(ctx, 10)
	require.NoError(t, err)
	require.Len(t, above, 1)
	require.Equal(t, 15.0, above[0].Amount)

	ranged, err := expenses.Range(ctx, 10, 20)
	require.NoError(t, err)
	require.Len(t, ranged, 2)

	conn, err := grpc.Dial("bufnet", ts.dialer(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	// a null end is unbounded like a missing one
	open, err := grpcproto.NewLedgerClient(conn, objects.ExpensesService).Range(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		grpcproto.StartField: objects.Uint64Value(20),
		grpcproto.EndField:   structpb.NewNullValue(),
	}})
	require.NoError(t, err)
	require.Len(t, open.GetValues(), 2)

	page, err := expenses.Paginate(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.EqualValues(t, 2, page[0].ID)

	sum, err = expenses.Sum(ctx)
	require.NoError(t, err)
	require.Equal(t, 30.0, sum)
}

func TestServer_VotesAreSeparate(t *testing.T) {
	ts := startServer(t, "")
	c := ts.client(t, "")
	ctx := context.Background()

	_, err := client.For(c, objects.Expenses()).Create(ctx, objects.ExpensePayload{Description: "x", Amount: 1, Date: 1})
	require.NoError(t, err)

	votes := client.For(c, objects.Votes())
	v, err := votes.Create(ctx, objects.VotePayload{Topic: "lunch", Choice: "pizza", Weight: 2, CastAt: 3})
	require.NoError(t, err)
	require.Zero(t, v.ID)

	sum, err := votes.Sum(ctx)
	require.NoError(t, err)
	require.Equal(t, 2.0, sum)

	_, err = votes.Create(ctx, objects.VotePayload{Topic: "lunch", Choice: "", Weight: 2, CastAt: 3})
	requireCode(t, err, codes.InvalidArgument)
}

func TestServer_Token(t *testing.T) {
	ts := startServer(t, "s3cret")
	ctx := context.Background()

	_, err := client.For(ts.client(t, "wrong"), objects.Expenses()).Sum(ctx)
	requireCode(t, err, codes.Unauthenticated)

	_, err = client.For(ts.client(t, ""), objects.Expenses()).Sum(ctx)
	requireCode(t, err, codes.Unauthenticated)

	_, err = client.For(ts.client(t, "s3cret"), objects.Expenses()).Sum(ctx)
	require.NoError(t, err)
}

func TestServer_RequestID(t *testing.T) {
	ts := startServer(t, "")

	conn, err := grpc.Dial("bufnet", ts.dialer(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	var header metadata.MD
	lc := grpcproto.NewLedgerClient(conn, objects.VotesService)
	_, err = lc.Sum(context.Background(), &emptypb.Empty{}, grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(RequestIDHeader), 1)
	require.NotEmpty(t, header.Get(RequestIDHeader)[0])
}

func TestToStatus(t *testing.T) {
	require.NoError(t, toStatus(nil))

	err := toStatus(&ledgerdb.NotFoundError{Shape: "vote", Op: "get", ID: 3})
	require.Equal(t, codes.NotFound, status.Code(err))

	err = toStatus(fmt.Errorf("wrapped: %w", &validate.Violation{Msg: "bad"}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	err = toStatus(fmt.Errorf("write: %w: %w", ledgerdb.ErrUnrecoverable, errors.New("disk full")))
	require.Equal(t, codes.Internal, status.Code(err))

	already := status.Error(codes.Unauthenticated, "no")
	require.Equal(t, already, toStatus(already))
}
