package resultbuffer

import "github.com/kestrelql/kestrel/pkg/value"

// ColumnMeta carries the per-column metadata the buffer exposes to a
// consumer: alias, source table/schema/column names, type, precision,
// scale, display size, nullability and auto-increment status, collapsed
// into a plain immutable struct rather than a live expression tree.
type ColumnMeta struct {
	Alias         string
	TableName     string
	SchemaName    string
	ColumnName    string
	Type          value.LType
	Precision     int
	Scale         int
	DisplaySize   int
	Nullable      bool
	AutoIncrement bool
}
