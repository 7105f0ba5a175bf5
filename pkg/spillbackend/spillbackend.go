// Package spillbackend implements the on-disk tuple set a result buffer
// promotes into once its row population exceeds the configured memory
// threshold. Both concrete backends are B-tree backed
// (github.com/tidwall/btree) rather than driving any real file I/O: an
// in-process persistent B-tree stands in for the B-tree/MV-store temp
// table a real storage engine would allocate, since the on-disk layout
// itself is external to this package's concerns.
package spillbackend

import (
	"errors"

	"github.com/kestrelql/kestrel/pkg/value"
)

var ErrNotSupported = errors.New("spillbackend: operation not supported by this backend")

// SpillBackend is the abstract on-disk tuple set a ResultBuffer spills
// into. The buffer calls it through this interface only; it never knows
// which concrete backend it is talking to.
type SpillBackend interface {
	AddRow(row value.Row) (int, error)
	AddRows(rows []value.Row) (int, error)
	RemoveRow(row value.Row) (int, error)
	Contains(row value.Row) (bool, error)
	Reset() error
	Next() (value.Row, bool, error)
	Close() error
	CloneReadOnly() (SpillBackend, bool)
}

// KeyFunc projects a row onto the key used for distinctness and ordering,
// following value.RowKeyOf's visible-prefix/indexed-projection rule.
type KeyFunc func(row value.Row) value.RowKey
