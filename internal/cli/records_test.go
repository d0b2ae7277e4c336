package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/server"
)

// startServer serves both record types over an in-memory listener and
// returns the dial option reaching it.
func startServer(t *testing.T, tok string) grpc.DialOption {
	t.Helper()

	conf := config.NewConfig()
	conf.Backend = memory.VolatileBackend
	conf.CompactEvery = "0"
	conf.Token = tok

	m, err := memory.NewManager(memory.NewVolatile(), zap.NewNop())
	require.NoError(t, err)

	ss := server.NewLedgerServer(m, conf, zap.NewNop())
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

	t.Cleanup(func() {
		cancel()
		ss.Wait()
		require.NoError(t, <-done)
		require.NoError(t, m.Close())
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

type result struct {
	out, errOut string
	err         error
}

func run(dial grpc.DialOption, args ...string) result {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	cmd := newRootCommand(&RootOptions{dialOptions: []grpc.DialOption{dial}})
	cmd.SetArgs(append([]string{"--addr", "bufnet"}, args...))
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.Execute()
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func decode(t *testing.T, r result) []map[string]interface{} {
	t.Helper()
	require.NoError(t, r.err, r.errOut)

	var resp struct {
		Status string                   `json:"status"`
		Data   []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &resp), r.out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRecords_ExpenseLifecycle(t *testing.T) {
	dial := startServer(t, "")

	created := decode(t, run(dial, "--format", "json", "expense", "create",
		"--description", "lunch", "--amount", "12.5", "--date", "1700000000"))
	require.Len(t, created, 1)
	assert.Equal(t, "0", created[0]["id"])
	assert.Equal(t, "lunch", created[0]["description"])
	assert.Equal(t, 12.5, created[0]["amount"])
	assert.Equal(t, "1700000000", created[0]["date"])
	assert.Nil(t, created[0]["updated_at"])

	updated := decode(t, run(dial, "--format", "json", "expense", "update", "0",
		"--description", "dinner", "--amount", "30", "--date", "1700000000"))
	require.Len(t, updated, 1)
	assert.Equal(t, "dinner", updated[0]["description"])
	assert.NotNil(t, updated[0]["updated_at"])

	got := run(dial, "expense", "get", "0")
	require.NoError(t, got.err)
	assert.Contains(t, got.out, "id  description")
	assert.Contains(t, got.out, "dinner")

	deleted := decode(t, run(dial, "--format", "json", "expense", "delete", "0"))
	require.Len(t, deleted, 1)
	assert.Equal(t, "dinner", deleted[0]["description"])

	missing := run(dial, "expense", "get", "0")
	require.Error(t, missing.err)
	assert.Equal(t, ExitFailure, GetExitCode(missing.err))
	assert.Equal(t, "Error [NotFound]: expense with id=0 not found\n", missing.errOut)
}

func TestRecords_Queries(t *testing.T) {
	dial := startServer(t, "")

	for _, args := range [][]string{
		{"--topic", "lunch", "--choice", "pizza", "--weight", "1.5", "--cast-at", "100"},
		{"--topic", "lunch", "--choice", "sushi", "--weight", "3", "--cast-at", "200"},
		{"--topic", "lunch", "--choice", "salad", "--weight", "0.25", "--cast-at", "300"},
	} {
		r := run(dial, append([]string{"vote", "create"}, args...)...)
		require.NoError(t, r.err, r.errOut)
	}

	inRange := decode(t, run(dial, "--format", "json", "vote", "range", "--start", "150", "--end", "300"))
	require.Len(t, inRange, 2)
	assert.Equal(t, "1", inRange[0]["id"])
	assert.Equal(t, "2", inRange[1]["id"])

	above := decode(t, run(dial, "--format", "json", "vote", "above", "1"))
	require.Len(t, above, 2)

	page := decode(t, run(dial, "--format", "json", "vote", "page", "--page", "2", "--per-page", "2"))
	require.Len(t, page, 1)
	assert.Equal(t, "salad", page[0]["choice"])

	sorted := decode(t, run(dial, "--format", "json", "vote", "sorted"))
	require.Len(t, sorted, 3)
	assert.Equal(t, "sushi", sorted[0]["choice"])
	assert.Equal(t, "salad", sorted[2]["choice"])

	sum := run(dial, "vote", "sum")
	require.NoError(t, sum.err)
	assert.Equal(t, "sum(weight): 4.75\n", sum.out)

	// votes and expenses are counted apart
	expenses := run(dial, "expense", "sum")
	require.NoError(t, expenses.err)
	assert.Equal(t, "sum(amount): 0\n", expenses.out)
}

func TestRecords_Rejected(t *testing.T) {
	dial := startServer(t, "")

	tests := []struct {
		name     string
		args     []string
		code     int
		contains string
	}{
		{"blank_description", []string{"expense", "create", "--amount", "1", "--date", "1"}, ExitFailure, "Error [InvalidArgument]: Description"},
		{"negative_amount", []string{"expense", "create", "--description", "x", "--amount", "-1", "--date", "1"}, ExitFailure, "Amount must be greater than zero"},
		{"missing_cast_at", []string{"vote", "create", "--topic", "t", "--choice", "c", "--weight", "1"}, ExitFailure, "Cast at must be a valid timestamp"},
		{"page_zero", []string{"vote", "page", "--page", "0"}, ExitFailure, "Error [InvalidArgument]"},
		{"bad_id", []string{"expense", "get", "first"}, ExitCommandError, `id "first" is not valid`},
		{"bad_threshold", []string{"expense", "above", "lots"}, ExitCommandError, `threshold "lots" is not valid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(dial, tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, tt.code, GetExitCode(r.err))
			assert.Contains(t, r.errOut, tt.contains)
		})
	}
}

func TestRecords_Token(t *testing.T) {
	dial := startServer(t, "s3cret")

	denied := run(dial, "expense", "sum")
	require.Error(t, denied.err)
	assert.Equal(t, ExitCommandError, GetExitCode(denied.err))
	assert.Contains(t, denied.errOut, "Error [Unauthenticated]")

	allowed := run(dial, "--token", "s3cret", "expense", "sum")
	require.NoError(t, allowed.err, allowed.errOut)
}
