package resultbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelql/kestrel/pkg/session"
	"github.com/kestrelql/kestrel/pkg/sortorder"
	"github.com/kestrelql/kestrel/pkg/value"
)

func intCols(n int) []ColumnMeta {
	cols := make([]ColumnMeta, n)
	for i := range cols {
		cols[i] = ColumnMeta{ColumnName: "c", Type: value.LType{Id: value.LTID_BIGINT}}
	}
	return cols
}

func transientSession() *session.Session {
	return session.New("test", session.Policy{})
}

func collectAll(t *testing.T, rb *ResultBuffer) []int64 {
	require.NoError(t, rb.Reset())
	var out []int64
	for {
		ok, err := rb.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rb.CurrentRow()[0].I64)
	}
	return out
}

func TestDistinctPreservesInsertionOrderWhenUnsorted(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	require.NoError(t, rb.ConfigureDistinct())

	for _, v := range []int64{5, 3, 5, 1, 3, 2} {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(v)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, []int64{5, 3, 1, 2}, collectAll(t, rb))
	assert.Equal(t, 4, rb.RowCount())
}

func TestDistinctWithSortOrdersCollapsedRows(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	require.NoError(t, rb.ConfigureDistinct())
	rb.SetSort(sortorder.New(sortorder.Key{ColIdx: 0, Type: sortorder.OT_ASC}))

	for _, v := range []int64{5, 3, 5, 1, 3, 2} {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(v)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, []int64{1, 2, 3, 5}, collectAll(t, rb), "distinct collapse must not skip sorting when a comparator is configured")
	assert.Equal(t, 4, rb.RowCount())
}

func TestSortThenOffsetFetch(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetSort(sortorder.New(sortorder.Key{ColIdx: 0, Type: sortorder.OT_ASC}))
	rb.SetOffset(2)
	rb.SetLimit(3)

	for _, v := range []int64{7, 1, 9, 3, 5, 2, 8, 4, 6} {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(v)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, []int64{3, 4, 5}, collectAll(t, rb))
	assert.Equal(t, 3, rb.RowCount())
}

func TestWithTiesExtendsWindowTail(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetSort(sortorder.New(sortorder.Key{ColIdx: 0, Type: sortorder.OT_ASC}))
	rb.SetLimit(2)
	rb.SetWithTies(true)

	for _, v := range []int64{1, 2, 2, 2, 3} {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(v)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, []int64{1, 2, 2, 2}, collectAll(t, rb))
	assert.Equal(t, 4, rb.RowCount())
}

func TestFetchPercentRoundsUpOracleStyle(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetSort(sortorder.New(sortorder.Key{ColIdx: 0, Type: sortorder.OT_ASC}))
	rb.SetLimit(50)
	rb.SetFetchPercent(true)

	for i := int64(1); i <= 7; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	// ceil(50 * 7 / 100) = ceil(3.5) = 4
	assert.Equal(t, []int64{1, 2, 3, 4}, collectAll(t, rb))
}

func TestFetchPercentOutOfRangeFails(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetLimit(150)
	rb.SetFetchPercent(true)
	require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(1)}))

	err := rb.Done()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestOffsetPastEndProducesEmptyResult(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetOffset(10)

	for i := int64(0); i < 3; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, 0, rb.RowCount())
	assert.Empty(t, collectAll(t, rb))
}

func TestSpillPromotionOnPlainBuffer(t *testing.T) {
	sess := transientSession()
	rb := New(sess, intCols(1), 1)
	rb.SetMaxMemoryRows(3)

	for i := int64(0); i < 10; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, 10, rb.RowCount())
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, collectAll(t, rb))
}

func TestDistinctOnIndexesSurvivesSpill(t *testing.T) {
	sess := transientSession()
	rb := New(sess, intCols(2), 2)
	rb.SetMaxMemoryRows(2)
	require.NoError(t, rb.ConfigureDistinctOn([]int{0}))

	rows := [][2]int64{{1, 10}, {2, 20}, {1, 11}, {3, 30}, {2, 21}, {4, 40}}
	for _, r := range rows {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(r[0]), value.NewBigInt(r[1])}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, 4, rb.RowCount())
}

func TestAddRowAfterDoneFails(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	require.NoError(t, rb.Done())

	err := rb.AddRow(value.Row{value.NewBigInt(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfigureDistinctAfterStartedFails(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(1)}))

	err := rb.ConfigureDistinct()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRemoveDistinctRowAndContains(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	require.NoError(t, rb.ConfigureDistinct())
	require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(1)}))
	require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(2)}))

	ok, err := rb.ContainsDistinct(value.Row{value.NewBigInt(1)})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rb.RemoveDistinctRow(value.Row{value.NewBigInt(1)}))

	ok, err = rb.ContainsDistinct(value.Row{value.NewBigInt(1)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, rb.RowCount())
}

func TestShallowCopyProducesIndependentCursor(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	for i := int64(0); i < 3; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	other := session.New("other", session.Policy{})
	copyRB := rb.ShallowCopy(other)
	require.NotNil(t, copyRB)

	_, err := rb.Next()
	require.NoError(t, err)
	assert.Equal(t, -1, copyRB.RowID(), "the copy's cursor must start independently rewound")
	assert.Equal(t, collectAll(t, rb), collectAll(t, copyRB))
}

func TestShallowCopyRejectsWhenBufferContainsLobs(t *testing.T) {
	rb := New(transientSession(), []ColumnMeta{{Type: value.LType{Id: value.LTID_BLOB}}}, 1)
	require.NoError(t, rb.AddRow(value.Row{value.NewLazyBlob([]byte("x"))}))
	require.NoError(t, rb.Done())

	assert.Nil(t, rb.ShallowCopy(session.New("other", session.Policy{})))
}

func TestCloseIsIdempotent(t *testing.T) {
	sess := transientSession()
	rb := New(sess, intCols(1), 1)
	rb.SetMaxMemoryRows(1)
	for i := int64(0); i < 5; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	require.NoError(t, rb.Close())
	require.NoError(t, rb.Close())
	assert.True(t, rb.IsClosed())
}

func TestLimitsWereAppliedSkipsWindowing(t *testing.T) {
	rb := New(transientSession(), intCols(1), 1)
	rb.SetOffset(1)
	rb.SetLimit(1)
	rb.LimitsWereApplied()

	for i := int64(0); i < 5; i++ {
		require.NoError(t, rb.AddRow(value.Row{value.NewBigInt(i)}))
	}
	require.NoError(t, rb.Done())

	assert.Equal(t, 5, rb.RowCount(), "Done must not window when the caller already applied limits")
}
