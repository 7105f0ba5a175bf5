package resultbuffer

import (
	"container/list"

	"github.com/kestrelql/kestrel/pkg/value"
)

// distinctIndex is an insertion-ordered map from an encoded RowKey to its
// canonical row, the in-memory half of the buffer's distinct filter. Go's
// standard library has no ordered-map type, and no available third-party
// map type preserves insertion order either — container/list paired with
// a plain map is the idiomatic Go substitute for a LinkedHashMap, and is
// the one place in this package that falls back to the standard library;
// see DESIGN.md.
type distinctIndex struct {
	order *list.List
	index map[string]*list.Element
}

type distinctEntry struct {
	key string
	row value.Row
}

func newDistinctIndex() *distinctIndex {
	return &distinctIndex{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// putIfAbsent inserts row under key unless key is already present, in
// which case the existing row wins (first insertion wins). Returns the
// index's size after the operation.
func (d *distinctIndex) putIfAbsent(key string, row value.Row) int {
	if _, ok := d.index[key]; !ok {
		elem := d.order.PushBack(&distinctEntry{key: key, row: row})
		d.index[key] = elem
	}
	return d.order.Len()
}

func (d *distinctIndex) get(key string) (value.Row, bool) {
	elem, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*distinctEntry).row, true
}

// remove deletes the entry for key, returning the new size.
func (d *distinctIndex) remove(key string) int {
	if elem, ok := d.index[key]; ok {
		d.order.Remove(elem)
		delete(d.index, key)
	}
	return d.order.Len()
}

func (d *distinctIndex) size() int {
	return d.order.Len()
}

// values returns the rows in first-insertion order.
func (d *distinctIndex) values() []value.Row {
	out := make([]value.Row, 0, d.order.Len())
	for e := d.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*distinctEntry).row)
	}
	return out
}
