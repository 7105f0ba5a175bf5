// Package sortorder implements the multi-column comparator used to order
// result-buffer rows: an ordered list of (column, direction, null-position)
// keys compared left to right until one is decisive.
package sortorder

import (
	"sort"

	"github.com/kestrelql/kestrel/pkg/value"
)

type OrderType int

const (
	OT_INVALID OrderType = iota
	OT_ASC
	OT_DESC
)

type OrderByNullType int

const (
	OBNT_INVALID OrderByNullType = iota
	OBNT_NULLS_FIRST
	OBNT_NULLS_LAST
)

// Key is one ORDER BY column: which row position to compare and how.
type Key struct {
	ColIdx   int
	Type     OrderType
	NullType OrderByNullType
}

// SortOrder is an ordered list of Keys compared left to right, the first
// non-zero comparison deciding row order.
type SortOrder struct {
	Keys []Key
}

func New(keys ...Key) *SortOrder {
	return &SortOrder{Keys: keys}
}

// Compare returns <0, 0, >0 the way a stdlib comparator does.
func (so *SortOrder) Compare(a, b value.Row) int {
	for _, k := range so.Keys {
		av, bv := a[k.ColIdx], b[k.ColIdx]
		c := compareOne(av, bv, k.NullType)
		explicitNulls := k.NullType != OBNT_INVALID && (av.IsNull || bv.IsNull)
		if k.Type == OT_DESC && !explicitNulls {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareOne(a, b value.Value, nullType OrderByNullType) int {
	if a.IsNull || b.IsNull {
		if a.IsNull == b.IsNull {
			return 0
		}
		first := nullType != OBNT_NULLS_LAST
		if a.IsNull {
			if first {
				return -1
			}
			return 1
		}
		if first {
			return 1
		}
		return -1
	}
	return a.Compare(b)
}

// Sort fully orders rows in place.
func (so *SortOrder) Sort(rows []value.Row) {
	sort.Slice(rows, func(i, j int) bool {
		return so.Compare(rows[i], rows[j]) < 0
	})
}

// SortPartial guarantees only that rows[offset:offset+limit] ends up holding
// the globally correct rows for that window, in correct order; rows outside
// the window are left in unspecified order. This is the introselect-style
// partial sort: two quickselect passes bracketing the window, followed by a
// full sort of just the window, avoiding the cost of ordering rows the
// caller will never look at.
func (so *SortOrder) SortPartial(rows []value.Row, offset, limit int) {
	n := len(rows)
	if n == 0 || limit <= 0 || offset >= n {
		return
	}
	end := offset + limit
	if end > n {
		end = n
	}
	if offset > 0 {
		so.quickselect(rows, 0, n-1, offset)
	}
	if end < n {
		so.quickselect(rows, offset, n-1, end-1)
	}
	window := rows[offset:end]
	sort.Slice(window, func(i, j int) bool {
		return so.Compare(window[i], window[j]) < 0
	})
}

// quickselect partitions rows[lo:hi+1] in place so that rows[k] holds the
// element that would occupy position k in sorted order, with everything in
// [lo,k) <= rows[k] <= everything in (k,hi].
func (so *SortOrder) quickselect(rows []value.Row, lo, hi, k int) {
	for lo < hi {
		p := so.partition(rows, lo, hi)
		switch {
		case k == p:
			return
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func (so *SortOrder) partition(rows []value.Row, lo, hi int) int {
	mid := lo + (hi-lo)/2
	rows[mid], rows[hi] = rows[hi], rows[mid]
	pivot := rows[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if so.Compare(rows[i], pivot) < 0 {
			rows[i], rows[store] = rows[store], rows[i]
			store++
		}
	}
	rows[store], rows[hi] = rows[hi], rows[store]
	return store
}
