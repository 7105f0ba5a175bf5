// Package value implements the SQL datum used by the result buffer: a
// comparable, hashable, optionally-LOB-backed value together with the
// row and row-key types built out of it.
package value

import "fmt"

// LTypeId is the declared-type tag of a column, trimmed to the types a
// materialized result row can actually carry.
type LTypeId int

const (
	LTID_INVALID LTypeId = iota
	LTID_BOOLEAN
	LTID_BIGINT
	LTID_DOUBLE
	LTID_DECIMAL
	LTID_VARCHAR
	LTID_BLOB
	LTID_CLOB
)

var lTypeIdToStr = map[LTypeId]string{
	LTID_INVALID: "LTID_INVALID",
	LTID_BOOLEAN: "LTID_BOOLEAN",
	LTID_BIGINT:  "LTID_BIGINT",
	LTID_DOUBLE:  "LTID_DOUBLE",
	LTID_DECIMAL: "LTID_DECIMAL",
	LTID_VARCHAR: "LTID_VARCHAR",
	LTID_BLOB:    "LTID_BLOB",
	LTID_CLOB:    "LTID_CLOB",
}

func (id LTypeId) String() string {
	if s, has := lTypeIdToStr[id]; has {
		return s
	}
	return fmt.Sprintf("LTID_UNKNOWN(%d)", int(id))
}

// IsLob reports whether values of this type carry out-of-line payload that
// must be materialized via the LOB coordinator before the owning row can be
// stored safely.
func (id LTypeId) IsLob() bool {
	return id == LTID_BLOB || id == LTID_CLOB
}

// LType is the declared type of a column: the type tag plus precision/scale.
type LType struct {
	Id    LTypeId
	Width int
	Scale int
}
