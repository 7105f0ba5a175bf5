package spillbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelql/kestrel/pkg/value"
)

func keyOfFirstCol(row value.Row) value.RowKey {
	return value.RowKeyOf(row, 1, nil)
}

func drain(t *testing.T, b SpillBackend) []value.Row {
	require.NoError(t, b.Reset())
	var out []value.Row
	for {
		row, ok, err := b.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out
}

func TestTempTableBackendPreservesInsertionOrder(t *testing.T) {
	b := NewTempTableBackend()
	rows := []value.Row{
		{value.NewBigInt(3)},
		{value.NewBigInt(1)},
		{value.NewBigInt(2)},
	}
	for _, r := range rows {
		_, err := b.AddRow(r)
		require.NoError(t, err)
	}

	out := drain(t, b)
	require.Len(t, out, 3)
	assert.Equal(t, int64(3), out[0][0].I64)
	assert.Equal(t, int64(1), out[1][0].I64)
	assert.Equal(t, int64(2), out[2][0].I64)
}

func TestTempTableBackendRejectsDistinctOps(t *testing.T) {
	b := NewTempTableBackend()
	_, err := b.Contains(value.Row{value.NewBigInt(1)})
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = b.RemoveRow(value.Row{value.NewBigInt(1)})
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestTempTableBackendCloneReadOnlyIsIndependent(t *testing.T) {
	b := NewTempTableBackend()
	_, err := b.AddRow(value.Row{value.NewBigInt(1)})
	require.NoError(t, err)

	clonedBackend, ok := b.CloneReadOnly()
	require.True(t, ok)

	_, err = b.AddRow(value.Row{value.NewBigInt(2)})
	require.NoError(t, err)

	assert.Len(t, drain(t, clonedBackend), 1)
	assert.Len(t, drain(t, b), 2)
}

func TestMVTempBackendDistinctAwareInsertIfAbsent(t *testing.T) {
	b := NewMVTempBackend(keyOfFirstCol, true)

	n, err := b.AddRow(value.Row{value.NewBigInt(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.AddRow(value.Row{value.NewBigInt(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "duplicate key must not grow the backend")

	n, err = b.AddRow(value.Row{value.NewBigInt(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMVTempBackendContainsAndRemove(t *testing.T) {
	b := NewMVTempBackend(keyOfFirstCol, true)
	row := value.Row{value.NewBigInt(7)}
	_, err := b.AddRow(row)
	require.NoError(t, err)

	ok, err := b.Contains(row)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = b.RemoveRow(row)
	require.NoError(t, err)

	ok, err = b.Contains(row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMVTempBackendIterationIsInsertionOrder(t *testing.T) {
	b := NewMVTempBackend(keyOfFirstCol, true)
	for _, v := range []int64{30, 10, 20} {
		_, err := b.AddRow(value.Row{value.NewBigInt(v)})
		require.NoError(t, err)
	}

	out := drain(t, b)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{30, 10, 20}, []int64{out[0][0].I64, out[1][0].I64, out[2][0].I64})
}
