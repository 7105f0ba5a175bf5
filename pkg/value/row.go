package value

import "github.com/huandu/go-clone"

// Row is a fixed-arity tuple of Values produced by the query plan. The
// first visibleColumnCount entries (tracked by the caller, not by Row
// itself) are returned to the consumer; any trailing entries are sort or
// distinct helper columns.
type Row []Value

// Clone deep-copies the row using the clone.Clone(x).(T) idiom. A plain
// slice copy would alias the underlying LOB handle's byte slice across
// rows; deep cloning through go-clone avoids that without RowKeyOf or
// ShallowCopy needing to know about lobHandle.
func (r Row) Clone() Row {
	return clone.Clone(r).(Row)
}

// RowKey is a hashable, comparable projection of a Row used only as a
// distinct-map key. Equality and hashing are defined element-wise over the
// projected Values rather than through a boxed interface.
type RowKey struct {
	vals []Value
}

// RowKeyOf projects a row onto either its visible prefix or the supplied
// column indexes: distinct-on-indexes wins when given, otherwise the
// projection is the row's visible-column prefix.
func RowKeyOf(row Row, visibleColumnCount int, distinctIndexes []int) RowKey {
	if distinctIndexes != nil {
		vals := make([]Value, len(distinctIndexes))
		for i, idx := range distinctIndexes {
			vals[i] = row[idx]
		}
		return RowKey{vals: vals}
	}
	if len(row) > visibleColumnCount {
		vals := make([]Value, visibleColumnCount)
		copy(vals, row[:visibleColumnCount])
		return RowKey{vals: vals}
	}
	return RowKey{vals: row.Clone()}
}

func (k RowKey) Equals(o RowKey) bool {
	if len(k.vals) != len(o.vals) {
		return false
	}
	for i := range k.vals {
		if !k.vals[i].Equals(o.vals[i]) {
			return false
		}
	}
	return true
}

// Compare implements a total order over RowKeys, used to keep them in a
// B-tree for the MV-temp spill backend's secondary index.
func (k RowKey) Compare(o RowKey) int {
	n := len(k.vals)
	if len(o.vals) < n {
		n = len(o.vals)
	}
	for i := 0; i < n; i++ {
		if c := compareNullFirst(k.vals[i], o.vals[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.vals) < len(o.vals):
		return -1
	case len(k.vals) > len(o.vals):
		return 1
	default:
		return 0
	}
}

func compareNullFirst(a, b Value) int {
	if a.IsNull || b.IsNull {
		switch {
		case a.IsNull == b.IsNull:
			return 0
		case a.IsNull:
			return -1
		default:
			return 1
		}
	}
	return a.Compare(b)
}

// EncodeKey returns a self-delimiting byte encoding of the key, suitable
// for use as a Go map key (via string conversion) in an insertion-ordered
// DistinctIndex; equal RowKeys always encode identically and distinct
// RowKeys never collide, because each component Value is self-delimiting
// (see Value.encodeForHash's length-prefixed variable-length encoding).
func (k RowKey) EncodeKey() string {
	var buf []byte
	for _, v := range k.vals {
		buf = append(buf, v.encodeForHash()...)
	}
	return string(buf)
}

func (k RowKey) Hash() uint64 {
	h := uint64(len(k.vals)) + 1
	for _, v := range k.vals {
		h = h*1099511628211 ^ v.Hash()
	}
	return h
}
