package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/S0me0neR0man/ourledger/internal/codec"
)

func TestManager_PartitionBinding(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBadger(dir, getTestLogger())
	require.NoError(t, err)

	m, err := NewManager(b, getTestLogger())
	require.NoError(t, err)
	instance := m.Instance()

	_, err = m.Partition(0, "expense.counter")
	require.NoError(t, err)
	_, err = m.Partition(0, "expense.counter")
	require.NoError(t, err)

	_, err = m.Partition(0, "vote.counter")
	require.ErrorIs(t, err, ErrPartitionMismatch)

	_, err = m.Partition(MetaPartition, "anything")
	require.ErrorIs(t, err, ErrReservedPartition)

	require.NoError(t, m.Close())

	b, err = OpenBadger(dir, getTestLogger())
	require.NoError(t, err)
	m, err = NewManager(b, getTestLogger())
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, instance, m.Instance())

	_, err = m.Partition(0, "vote.counter")
	require.ErrorIs(t, err, ErrPartitionMismatch)
	_, err = m.Partition(0, "expense.counter")
	require.NoError(t, err)
}

func TestManager_LayoutVersion(t *testing.T) {
	v := NewVolatile()
	require.NoError(t, v.Partition(MetaPartition).Set(layoutKey, codec.PutUint64(LayoutVersion+1)))

	_, err := NewManager(v, getTestLogger())
	require.ErrorIs(t, err, ErrLayoutVersion)
}
