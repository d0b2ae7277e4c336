package checker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/S0me0neR0man/ourledger/internal/client"
	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/server"
)

func startClient(t *testing.T) *client.GRPCClient {
	t.Helper()

	conf := config.NewConfig()
	conf.Backend = memory.VolatileBackend
	conf.CompactEvery = "0"

	m, err := memory.NewManager(memory.NewVolatile(), getTestLogger())
	require.NoError(t, err)

	ss := server.NewLedgerServer(m, conf, getTestLogger())
	_, err = server.Mount(ss, objects.Expenses())
	require.NoError(t, err)
	_, err = server.Mount(ss, objects.Votes())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ss.Serve(ctx, lis)
	}()

	c, err := client.NewGRPCClient("bufnet", "", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, c.Close())
		cancel()
		ss.Wait()
		require.NoError(t, <-done)
		require.NoError(t, m.Close())
	})
	return c
}

func TestAttach_Ledgers(t *testing.T) {
	c := startClient(t)
	sv := NewSupervisor(getTestLogger())

	expenses, err := Attach(sv, objects.Expenses(), client.For(c, objects.Expenses()), ExpensePayloads(), 2, getTestLogger())
	require.NoError(t, err)
	require.Equal(t, "expense/create", expenses)

	votes, err := Attach(sv, objects.Votes(), client.For(c, objects.Votes()), VotePayloads(), 2, getTestLogger())
	require.NoError(t, err)

	sv.SetSourceFunc(Every(time.Millisecond, expenses, votes))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, sv.Run(ctx))

	stats := sv.Stats()
	require.Zero(t, stats.Failures)
	require.NotZero(t, stats.Completed)
}

func TestAttach_DuplicateKind(t *testing.T) {
	c := startClient(t)
	sv := NewSupervisor(getTestLogger())

	_, err := Attach(sv, objects.Votes(), client.For(c, objects.Votes()), VotePayloads(), 1, getTestLogger())
	require.NoError(t, err)
	_, err = Attach(sv, objects.Votes(), client.For(c, objects.Votes()), VotePayloads(), 1, getTestLogger())
	require.Error(t, err)
}

func TestPayloads_AreValid(t *testing.T) {
	expenses, votes := objects.Expenses(), objects.Votes()
	genE, genV := ExpensePayloads(), VotePayloads()

	for i := 0; i < 100; i++ {
		require.NoError(t, expenses.Shape.Rules.Check(genE()))
		require.NoError(t, votes.Shape.Rules.Check(genV()))
	}
}
