package spillbackend

import (
	"github.com/tidwall/btree"

	"github.com/kestrelql/kestrel/pkg/value"
)

type mvEntry struct {
	seq int64
	key value.RowKey
	row value.Row
}

func mvHeapLess(a, b *mvEntry) bool {
	return a.seq < b.seq
}

func mvKeyLess(a, b *mvEntry) bool {
	if c := a.key.Compare(b.key); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

// MVTempBackend is the MV-temp backend selected whenever the buffer needs
// a composite-key-capable temp table: any distinct buffer, or (when
// distinctAware is false) any case the caller wants a composite-key-capable
// store without deduplication. It
// keeps two B-tree indexes over the same entries: a sequence-ordered heap
// for insertion-order scanning and a key-ordered secondary index for
// O(log n) Contains/RemoveRow/insert-if-absent — a heap-plus-secondary-
// index shape, without the block/page machinery a real storage engine's
// table and index files would carry.
type MVTempBackend struct {
	keyOf         KeyFunc
	distinctAware bool

	heap    *btree.BTreeG[*mvEntry]
	keyIdx  *btree.BTreeG[*mvEntry]
	nextSeq int64
	cursor  *btree.IterG[*mvEntry]
}

func NewMVTempBackend(keyOf KeyFunc, distinctAware bool) *MVTempBackend {
	return &MVTempBackend{
		keyOf:         keyOf,
		distinctAware: distinctAware,
		heap:          btree.NewBTreeG(mvHeapLess),
		keyIdx:        btree.NewBTreeG(mvKeyLess),
	}
}

// findByKey returns the lowest-sequence entry whose key equals key. The
// key index orders by key then seq, so the probe uses a seq below every
// real one and the scan stops at the first entry at or after it.
func (b *MVTempBackend) findByKey(key value.RowKey) (*mvEntry, bool) {
	var found *mvEntry
	b.keyIdx.Ascend(&mvEntry{seq: -1, key: key}, func(e *mvEntry) bool {
		if e.key.Compare(key) == 0 {
			found = e
		}
		return false
	})
	return found, found != nil
}

func (b *MVTempBackend) AddRow(row value.Row) (int, error) {
	key := b.keyOf(row)
	if b.distinctAware {
		if _, found := b.findByKey(key); found {
			return b.heap.Len(), nil
		}
	}
	e := &mvEntry{seq: b.nextSeq, key: key, row: row}
	b.nextSeq++
	b.heap.Set(e)
	b.keyIdx.Set(e)
	return b.heap.Len(), nil
}

func (b *MVTempBackend) AddRows(rows []value.Row) (int, error) {
	n := b.heap.Len()
	for _, row := range rows {
		var err error
		n, err = b.AddRow(row)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (b *MVTempBackend) RemoveRow(row value.Row) (int, error) {
	found, ok := b.findByKey(b.keyOf(row))
	if !ok {
		return b.heap.Len(), nil
	}
	b.keyIdx.Delete(found)
	b.heap.Delete(found)
	return b.heap.Len(), nil
}

func (b *MVTempBackend) Contains(row value.Row) (bool, error) {
	_, ok := b.findByKey(b.keyOf(row))
	return ok, nil
}

func (b *MVTempBackend) Reset() error {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
	return nil
}

func (b *MVTempBackend) Next() (value.Row, bool, error) {
	if b.cursor == nil {
		iter := b.heap.Iter()
		b.cursor = &iter
		if !b.cursor.First() {
			b.cursor.Release()
			b.cursor = nil
			return nil, false, nil
		}
		return b.cursor.Item().row, true, nil
	}
	if !b.cursor.Next() {
		b.cursor.Release()
		b.cursor = nil
		return nil, false, nil
	}
	return b.cursor.Item().row, true, nil
}

func (b *MVTempBackend) Close() error {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
	b.heap = nil
	b.keyIdx = nil
	return nil
}

func (b *MVTempBackend) CloneReadOnly() (SpillBackend, bool) {
	return &MVTempBackend{
		keyOf:         b.keyOf,
		distinctAware: b.distinctAware,
		heap:          b.heap.Copy(),
		keyIdx:        b.keyIdx.Copy(),
		nextSeq:       b.nextSeq,
	}, true
}
