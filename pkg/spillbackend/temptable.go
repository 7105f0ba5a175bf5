package spillbackend

import (
	"github.com/tidwall/btree"

	"github.com/kestrelql/kestrel/pkg/value"
)

type seqEntry struct {
	seq int64
	row value.Row
}

func seqLess(a, b *seqEntry) bool {
	return a.seq < b.seq
}

// TempTableBackend is the plain temp-table backend: an append-only,
// sequence-ordered row set with no distinctness support, selected as the
// default spill backend policy branch. It is backed by a B-tree purely to
// get an ordered, copy-on-write-cloneable structure for free (see
// CloneReadOnly); a plain slice would do the same job without the clone
// support.
type TempTableBackend struct {
	tree    *btree.BTreeG[*seqEntry]
	nextSeq int64
	cursor  *btree.IterG[*seqEntry]
}

func NewTempTableBackend() *TempTableBackend {
	return &TempTableBackend{tree: btree.NewBTreeG(seqLess)}
}

func (b *TempTableBackend) AddRow(row value.Row) (int, error) {
	b.tree.Set(&seqEntry{seq: b.nextSeq, row: row})
	b.nextSeq++
	return b.tree.Len(), nil
}

func (b *TempTableBackend) AddRows(rows []value.Row) (int, error) {
	for _, row := range rows {
		if _, err := b.AddRow(row); err != nil {
			return b.tree.Len(), err
		}
	}
	return b.tree.Len(), nil
}

func (b *TempTableBackend) RemoveRow(value.Row) (int, error) {
	return 0, ErrNotSupported
}

func (b *TempTableBackend) Contains(value.Row) (bool, error) {
	return false, ErrNotSupported
}

func (b *TempTableBackend) Reset() error {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
	return nil
}

func (b *TempTableBackend) Next() (value.Row, bool, error) {
	if b.cursor == nil {
		iter := b.tree.Iter()
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

func (b *TempTableBackend) Close() error {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
	b.tree = nil
	return nil
}

func (b *TempTableBackend) CloneReadOnly() (SpillBackend, bool) {
	return &TempTableBackend{tree: b.tree.Copy(), nextSeq: b.nextSeq}, true
}
