package value

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/govalues/decimal"

	"github.com/kestrelql/kestrel/pkg/util"
)

// lobHandle is the out-of-line payload a BLOB/CLOB value points to. Owned is
// false for an unmaterialized handle whose Bytes still alias the caller's
// payload and need a copy-on-materialize pass; Owned marks a handle whose
// bytes already live in session-owned storage and therefore need no
// further copying.
type lobHandle struct {
	Bytes []byte
	Owned bool
}

// Value is an opaque SQL datum: equality, hashing and ordering are defined
// over its fields directly rather than through an interface, a flat
// type-tagged struct with LOB handle support.
type Value struct {
	Typ    LType
	IsNull bool

	Bool bool
	I64  int64
	F64  float64
	Dec  decimal.Decimal
	Str  string

	lob *lobHandle
}

func Null(typ LType) Value {
	return Value{Typ: typ, IsNull: true}
}

func NewBigInt(v int64) Value {
	return Value{Typ: LType{Id: LTID_BIGINT}, I64: v}
}

func NewDouble(v float64) Value {
	return Value{Typ: LType{Id: LTID_DOUBLE}, F64: v}
}

// NewDecimal builds an exact fixed-point value backed by
// github.com/govalues/decimal rather than approximating DECIMAL with a
// float64.
func NewDecimal(d decimal.Decimal, width, scale int) Value {
	return Value{Typ: LType{Id: LTID_DECIMAL, Width: width, Scale: scale}, Dec: d}
}

func NewBoolean(v bool) Value {
	return Value{Typ: LType{Id: LTID_BOOLEAN}, Bool: v}
}

func NewVarchar(v string) Value {
	return Value{Typ: LType{Id: LTID_VARCHAR}, Str: v}
}

// NewLazyBlob builds a BLOB value whose payload is not yet owned by any
// session: the first call to Materialize will copy it into owned storage.
func NewLazyBlob(payload []byte) Value {
	return Value{Typ: LType{Id: LTID_BLOB}, lob: &lobHandle{Bytes: payload, Owned: false}}
}

func NewLazyClob(text string) Value {
	return Value{Typ: LType{Id: LTID_CLOB}, lob: &lobHandle{Bytes: []byte(text), Owned: false}}
}

func (v Value) String() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Typ.Id {
	case LTID_BOOLEAN:
		return fmt.Sprintf("%v", v.Bool)
	case LTID_BIGINT:
		return fmt.Sprintf("%d", v.I64)
	case LTID_DOUBLE:
		return fmt.Sprintf("%v", v.F64)
	case LTID_DECIMAL:
		return v.Dec.String()
	case LTID_VARCHAR:
		return v.Str
	case LTID_BLOB, LTID_CLOB:
		return fmt.Sprintf("<lob %d bytes>", len(v.lob.Bytes))
	default:
		panic("usp")
	}
}

// Equals implements element-wise equality, used by RowKey comparisons.
func (v Value) Equals(o Value) bool {
	if v.IsNull != o.IsNull {
		return false
	}
	if v.IsNull {
		return true
	}
	if v.Typ.Id != o.Typ.Id {
		return false
	}
	switch v.Typ.Id {
	case LTID_BOOLEAN:
		return v.Bool == o.Bool
	case LTID_BIGINT:
		return v.I64 == o.I64
	case LTID_DOUBLE:
		return v.F64 == o.F64
	case LTID_DECIMAL:
		return v.Dec.Cmp(o.Dec) == 0
	case LTID_VARCHAR:
		return v.Str == o.Str
	case LTID_BLOB, LTID_CLOB:
		return string(v.lob.Bytes) == string(o.lob.Bytes)
	default:
		panic("usp")
	}
}

// Compare implements the sort ordering used by SortOrder. NULLs sort first.
func (v Value) Compare(o Value) int {
	if v.IsNull || o.IsNull {
		switch {
		case v.IsNull && o.IsNull:
			return 0
		case v.IsNull:
			return -1
		default:
			return 1
		}
	}
	switch v.Typ.Id {
	case LTID_BOOLEAN:
		return boolCompare(v.Bool, o.Bool)
	case LTID_BIGINT:
		return int64Compare(v.I64, o.I64)
	case LTID_DOUBLE:
		return float64Compare(v.F64, o.F64)
	case LTID_DECIMAL:
		return v.Dec.Cmp(o.Dec)
	case LTID_VARCHAR:
		switch {
		case v.Str < o.Str:
			return -1
		case v.Str > o.Str:
			return 1
		default:
			return 0
		}
	default:
		panic("usp")
	}
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Hash produces a hash of the value's logical content, used as the
// component hash of a RowKey. It delegates to util.HashBytes over a
// deterministic byte encoding of the value.
func (v Value) Hash() uint64 {
	buf := v.encodeForHash()
	if len(buf) == 0 {
		return 0
	}
	return util.HashBytes(util.BytesSliceToPointer(buf), uint64(len(buf)))
}

func (v Value) encodeForHash() []byte {
	if v.IsNull {
		return []byte{0}
	}
	switch v.Typ.Id {
	case LTID_BOOLEAN:
		if v.Bool {
			return []byte{1, 1}
		}
		return []byte{1, 0}
	case LTID_BIGINT:
		buf := make([]byte, 9)
		buf[0] = 2
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.I64))
		return buf
	case LTID_DOUBLE:
		buf := make([]byte, 9)
		buf[0] = 3
		f := v.F64
		if f == 0 {
			f = 0 // -0.0 equals 0.0, so both encode as +0.0
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
		return buf
	case LTID_DECIMAL:
		// Trim trailing zeros so that equal values of different scale
		// (1.10 and 1.1) encode identically.
		return appendLengthPrefixed(6, []byte(v.Dec.Trim(0).String()))
	case LTID_VARCHAR:
		return appendLengthPrefixed(4, []byte(v.Str))
	case LTID_BLOB, LTID_CLOB:
		return appendLengthPrefixed(5, v.lob.Bytes)
	default:
		panic("usp")
	}
}

// appendLengthPrefixed builds a self-delimiting [tag][uint32 len][payload]
// encoding so that concatenating several of these (as RowKey.EncodeKey
// does) stays injective across value boundaries.
func appendLengthPrefixed(tag byte, payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// IsLob reports whether this value owns an out-of-line LOB handle.
func (v Value) IsLob() bool {
	return v.lob != nil
}

// Materialize returns either the receiver unchanged (already owned, or not
// a LOB) or a new Value holding a session-owned copy of the LOB payload,
// together with a flag reporting whether a copy was made. Ownership of the
// returned handle's lifetime belongs to whichever session the caller
// registers it with (see session.Session.AddTemporaryLob).
func (v Value) Materialize() (Value, bool) {
	if v.lob == nil || v.lob.Owned {
		return v, false
	}
	owned := &lobHandle{
		Bytes: append([]byte(nil), v.lob.Bytes...),
		Owned: true,
	}
	v2 := v
	v2.lob = owned
	return v2, true
}
