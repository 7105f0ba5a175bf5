// Package resultbuffer implements the materialized query-result buffer:
// the single-producer/single-consumer structure that collects, deduplicates,
// sorts and windows the tuples a query plan produces before handing them to
// a client cursor. It plays the same role an OFFSET/FETCH/TOP operator
// plays in a row-at-a-time plan, with spill and distinct support added.
package resultbuffer

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/kestrelql/kestrel/pkg/util"
	"github.com/kestrelql/kestrel/pkg/value"

	"github.com/kestrelql/kestrel/pkg/session"
	"github.com/kestrelql/kestrel/pkg/sortorder"
	"github.com/kestrelql/kestrel/pkg/spillbackend"
)

// ResultBuffer is the materialized, windowed result set described in the
// package doc. It is built by a single producer (AddRow/Configure*/Set*
// calls), finalized once by Done, and then consumed by a single forward
// cursor (Reset/Next/CurrentRow) until Close.
type ResultBuffer struct {
	sess               *session.Session
	columns            []ColumnMeta
	visibleColumnCount int
	maxMemoryRows      int // -1 means unbounded

	rowID      int
	rowCount   int
	rows       []value.Row
	currentRow value.Row

	sort              *sortorder.SortOrder
	offset            int
	limit             int // -1 means unbounded, 0 means empty
	fetchPercent      bool
	withTies          bool
	limitsWereApplied bool

	distinct        bool
	distinctIndexes []int
	distinctIdx     *distinctIndex

	backend spillbackend.SpillBackend

	containsLobs bool
	started      bool
	finished     bool
	closed       bool
}

// New constructs a buffer owned by sess over the given column metadata;
// visibleColumnCount is the prefix of columns returned to the consumer,
// with any remaining columns available only for sorting/distinct. The
// default max-memory-rows threshold is inherited from the session's
// policy (see SetMaxMemoryRows).
func New(sess *session.Session, columns []ColumnMeta, visibleColumnCount int) *ResultBuffer {
	util.AssertFunc(visibleColumnCount <= len(columns))
	return &ResultBuffer{
		sess:               sess,
		columns:            columns,
		visibleColumnCount: visibleColumnCount,
		maxMemoryRows:      sess.MaxMemoryRows(),
		rowID:              -1,
		limit:              -1,
	}
}

func (rb *ResultBuffer) isAnyDistinct() bool {
	return rb.distinct || rb.distinctIndexes != nil
}

func (rb *ResultBuffer) rowKeyOf(row value.Row) value.RowKey {
	return value.RowKeyOf(row, rb.visibleColumnCount, rb.distinctIndexes)
}

// ConfigureDistinct enables all-visible-column duplicate elimination.
func (rb *ResultBuffer) ConfigureDistinct() error {
	if rb.started {
		return newStateError("ConfigureDistinct", "buffer has already started receiving rows")
	}
	if rb.distinctIndexes != nil {
		return newStateError("ConfigureDistinct", "distinct-on-indexes already configured")
	}
	rb.distinct = true
	rb.distinctIdx = newDistinctIndex()
	return nil
}

// ConfigureDistinctOn enables duplicate elimination keyed on the given
// column indexes, mutually exclusive with ConfigureDistinct.
func (rb *ResultBuffer) ConfigureDistinctOn(indexes []int) error {
	if rb.started {
		return newStateError("ConfigureDistinctOn", "buffer has already started receiving rows")
	}
	if rb.distinct {
		return newStateError("ConfigureDistinctOn", "all-column distinct already configured")
	}
	rb.distinctIndexes = indexes
	rb.distinctIdx = newDistinctIndex()
	return nil
}

// SetSort installs the comparator used at Done time. Replacing a
// previously set SortOrder is allowed; the last call wins.
func (rb *ResultBuffer) SetSort(sort *sortorder.SortOrder) {
	rb.sort = sort
}

func (rb *ResultBuffer) SetOffset(offset int) {
	rb.offset = offset
}

// SetLimit sets the row limit; -1 means unbounded, 0 means empty result.
func (rb *ResultBuffer) SetLimit(limit int) {
	rb.limit = limit
}

func (rb *ResultBuffer) SetFetchPercent(fetchPercent bool) {
	rb.fetchPercent = fetchPercent
}

func (rb *ResultBuffer) SetWithTies(withTies bool) {
	rb.withTies = withTies
}

// SetMaxMemoryRows overrides the spill threshold.
func (rb *ResultBuffer) SetMaxMemoryRows(n int) {
	rb.maxMemoryRows = n
}

// LimitsWereApplied tells Done to skip window application because the
// caller already applied OFFSET/FETCH externally.
func (rb *ResultBuffer) LimitsWereApplied() {
	rb.limitsWereApplied = true
}

func (rb *ResultBuffer) RowCount() int {
	return rb.rowCount
}

func (rb *ResultBuffer) VisibleColumnCount() int {
	return rb.visibleColumnCount
}

func (rb *ResultBuffer) IsClosed() bool {
	return rb.closed
}

func (rb *ResultBuffer) exceedsMemoryBudget(size int) bool {
	return rb.maxMemoryRows >= 0 && size > rb.maxMemoryRows
}

// AddRow performs the insertion protocol in order: LOB materialization,
// then either the distinct filter or the plain append, then the
// memory-budget check that decides spill promotion.
func (rb *ResultBuffer) AddRow(row value.Row) error {
	if rb.finished {
		return newStateError("AddRow", "Done has already been called")
	}
	rb.started = true

	for i, v := range row {
		materialized, changed := v.Materialize()
		if changed {
			row[i] = materialized
			rb.sess.AddTemporaryLob(materialized)
			rb.containsLobs = true
		}
	}

	if rb.isAnyDistinct() {
		return rb.addDistinctRow(row)
	}
	return rb.addPlainRow(row)
}

func (rb *ResultBuffer) addDistinctRow(row value.Row) error {
	key := rb.rowKeyOf(row)

	if rb.backend != nil {
		n, err := rb.backend.AddRow(row)
		if err != nil {
			return newBackendError("AddRow", err)
		}
		rb.rowCount = n
		return nil
	}

	n := rb.distinctIdx.putIfAbsent(key.EncodeKey(), row)
	rb.rowCount = n

	if rb.exceedsMemoryBudget(n) {
		if err := rb.promote(); err != nil {
			return err
		}
	}
	return nil
}

func (rb *ResultBuffer) addPlainRow(row value.Row) error {
	rb.rows = append(rb.rows, row)
	rb.rowCount++

	if rb.backend != nil {
		if rb.exceedsMemoryBudget(len(rb.rows)) {
			if err := rb.flushToBackend(); err != nil {
				return err
			}
		}
		return nil
	}

	if rb.exceedsMemoryBudget(len(rb.rows)) {
		if err := rb.promote(); err != nil {
			return err
		}
	}
	return nil
}

// promote allocates the spill backend chosen by selectSpillBackend,
// transfers whatever is currently buffered in memory into it in iteration
// order, and discards the now-redundant in-memory structures. It runs the
// first time the configured row count exceeds maxMemoryRows, and again
// from applyWindowSpilled when the trimmed window still exceeds it.
func (rb *ResultBuffer) promote() error {
	rb.backend = rb.selectSpillBackend()

	if rb.distinctIdx != nil {
		rows := rb.distinctIdx.values()
		if _, err := rb.backend.AddRows(rows); err != nil {
			return newBackendError("promote", err)
		}
		rb.distinctIdx = nil
		rb.rowCount = len(rows)
		return nil
	}

	if err := rb.flushToBackend(); err != nil {
		return err
	}
	return nil
}

func (rb *ResultBuffer) flushToBackend() error {
	n, err := rb.backend.AddRows(rb.rows)
	if err != nil {
		return newBackendError("flushToBackend", err)
	}
	rb.rows = nil
	if rb.isAnyDistinct() {
		rb.rowCount = n
	}
	return nil
}

// selectSpillBackend picks which backend to promote into. The
// composite-key backend (MVTempBackend) is used for every distinct buffer,
// since TempTableBackend has no distinctness support, and whenever the
// owning session runs an MV-store-capable page store that always prefers
// composite-key temp indexes.
func (rb *ResultBuffer) selectSpillBackend() spillbackend.SpillBackend {
	needsCompositeKey := rb.sess.IsMVStore() || rb.isAnyDistinct()

	if needsCompositeKey {
		return spillbackend.NewMVTempBackend(rb.rowKeyOf, rb.isAnyDistinct())
	}
	return spillbackend.NewTempTableBackend()
}

// RemoveDistinctRow removes one row matching row's projection from an
// all-distinct (or distinct-on) buffer.
func (rb *ResultBuffer) RemoveDistinctRow(row value.Row) error {
	if !rb.isAnyDistinct() {
		return newStateError("RemoveDistinctRow", "buffer is not configured for distinctness")
	}
	key := rb.rowKeyOf(row)
	if rb.backend != nil {
		n, err := rb.backend.RemoveRow(row)
		if err != nil {
			return newBackendError("RemoveDistinctRow", err)
		}
		rb.rowCount = n
		return nil
	}
	rb.rowCount = rb.distinctIdx.remove(key.EncodeKey())
	return nil
}

// ContainsDistinct is a membership test valid only for distinct buffers.
func (rb *ResultBuffer) ContainsDistinct(row value.Row) (bool, error) {
	if !rb.isAnyDistinct() {
		return false, newStateError("ContainsDistinct", "buffer is not configured for distinctness")
	}
	key := rb.rowKeyOf(row)
	if rb.backend != nil {
		ok, err := rb.backend.Contains(row)
		if err != nil {
			return false, newBackendError("ContainsDistinct", err)
		}
		return ok, nil
	}
	_, ok := rb.distinctIdx.get(key.EncodeKey())
	return ok, nil
}

// Done finalizes the buffer: flush any pending in-memory rows or collapse
// the distinct map (whichever applies), then independently sort (fully or
// partially) when a comparator is configured, apply the window, and
// rewind the cursor. Flush/collapse and sort are not mutually exclusive:
// a distinct buffer with a sort comparator collapses its distinct map and
// then sorts the collapsed rows.
func (rb *ResultBuffer) Done() error {
	if rb.finished {
		return newStateError("Done", "Done has already been called")
	}
	rb.finished = true

	if rb.backend != nil {
		if len(rb.rows) > 0 {
			if err := rb.flushToBackend(); err != nil {
				return err
			}
		}
	} else if rb.distinctIdx != nil {
		rb.rows = rb.distinctIdx.values()
		rb.distinctIdx = nil
	} else if rb.rows == nil {
		rb.rows = []value.Row{}
	}

	if rb.sort != nil && rb.limit != 0 {
		if rb.offset > 0 || (rb.limit > 0 && !rb.withTies) {
			rb.sort.SortPartial(rb.rows, rb.offset, rb.effectiveInMemoryLimit())
		} else {
			rb.sort.Sort(rb.rows)
		}
	}

	if !rb.limitsWereApplied {
		if err := rb.applyWindow(); err != nil {
			return err
		}
	}

	return rb.Reset()
}

// effectiveInMemoryLimit mirrors applyWindow's limit resolution but without
// the PERCENT/empty-window side effects, since SortPartial only needs a
// window size to bracket, not the final applied semantics.
func (rb *ResultBuffer) effectiveInMemoryLimit() int {
	if rb.limit < 0 {
		return len(rb.rows) - rb.offset
	}
	if rb.fetchPercent {
		return percentCeil(rb.limit, len(rb.rows))
	}
	return rb.limit
}

func percentCeil(limit, rowCount int) int {
	return (limit*rowCount + 99) / 100
}

// applyWindow applies OFFSET/FETCH/PERCENT/WITH TIES over either the
// in-memory row list or the spill backend, depending on which is
// populated.
func (rb *ResultBuffer) applyWindow() error {
	if rb.fetchPercent && (rb.limit < 0 || rb.limit > 100) {
		return newValueError("FETCH PERCENT", rb.limit)
	}

	offset := rb.offset
	if offset < 0 {
		offset = 0
	}

	effectiveLimit := rb.limit
	if rb.fetchPercent && rb.limit >= 0 {
		effectiveLimit = percentCeil(rb.limit, rb.rowCount)
	}

	if offset >= rb.rowCount || effectiveLimit == 0 {
		rb.clearRows()
		return nil
	}

	if rb.backend != nil {
		return rb.applyWindowSpilled(offset, effectiveLimit)
	}
	return rb.applyWindowInMemory(offset, effectiveLimit)
}

func (rb *ResultBuffer) clearRows() {
	rb.rows = []value.Row{}
	rb.rowCount = 0
}

func (rb *ResultBuffer) applyWindowInMemory(offset, limit int) error {
	rowCount := len(rb.rows)
	end := rowCount
	if limit >= 0 {
		take := limit
		if take > rowCount-offset {
			take = rowCount - offset
		}
		end = offset + take
	}

	if rb.withTies && rb.sort != nil && end > 0 && end < rowCount {
		last := rb.rows[end-1]
		for end < rowCount && rb.sort.Compare(rb.rows[end], last) == 0 {
			end++
		}
	}

	window := make([]value.Row, end-offset)
	copy(window, rb.rows[offset:end])
	rb.rows = window
	rb.rowCount = len(window)
	return nil
}

// applyWindowSpilled trims the spilled data set by replaying the backend's
// streaming cursor: skip offset rows, take limit rows, then continue
// taking while tie-extension matches. If the resulting staging list
// overflows the memory budget again, it is promoted back into a fresh
// backend.
func (rb *ResultBuffer) applyWindowSpilled(offset, limit int) error {
	if err := rb.backend.Reset(); err != nil {
		return newBackendError("applyWindowSpilled", err)
	}

	for i := 0; i < offset; i++ {
		_, ok, err := rb.backend.Next()
		if err != nil {
			return newBackendError("applyWindowSpilled", err)
		}
		if !ok {
			break
		}
	}

	var window []value.Row
	for limit < 0 || len(window) < limit {
		row, ok, err := rb.backend.Next()
		if err != nil {
			return newBackendError("applyWindowSpilled", err)
		}
		if !ok {
			break
		}
		window = append(window, row)
	}

	if rb.withTies && rb.sort != nil && len(window) > 0 {
		last := window[len(window)-1]
		for {
			row, ok, err := rb.backend.Next()
			if err != nil {
				return newBackendError("applyWindowSpilled", err)
			}
			if !ok || rb.sort.Compare(row, last) != 0 {
				break
			}
			window = append(window, row)
		}
	}

	if err := rb.backend.Close(); err != nil {
		return newBackendError("applyWindowSpilled", err)
	}
	rb.backend = nil

	if rb.exceedsMemoryBudget(len(window)) {
		rb.rows = window
		rb.rowCount = len(window)
		return rb.promote()
	}

	rb.rows = window
	rb.rowCount = len(window)
	return nil
}

// Reset rewinds the cursor to just before the first row.
func (rb *ResultBuffer) Reset() error {
	rb.rowID = -1
	rb.currentRow = nil
	if rb.backend != nil {
		if err := rb.backend.Reset(); err != nil {
			return newBackendError("Reset", err)
		}
	}
	return nil
}

// Next advances the cursor by one row.
func (rb *ResultBuffer) Next() (bool, error) {
	if rb.rowID+1 >= rb.rowCount {
		rb.rowID = rb.rowCount
		rb.currentRow = nil
		return false, nil
	}

	if rb.backend != nil {
		row, ok, err := rb.backend.Next()
		if err != nil {
			return false, newBackendError("Next", err)
		}
		if !ok {
			rb.rowID = rb.rowCount
			rb.currentRow = nil
			return false, nil
		}
		rb.rowID++
		rb.currentRow = row
		return true, nil
	}

	rb.rowID++
	rb.currentRow = rb.rows[rb.rowID]
	return true, nil
}

func (rb *ResultBuffer) CurrentRow() value.Row {
	return rb.currentRow
}

func (rb *ResultBuffer) HasNext() bool {
	return rb.rowID+1 < rb.rowCount
}

func (rb *ResultBuffer) IsAfterLast() bool {
	return rb.rowID >= rb.rowCount
}

func (rb *ResultBuffer) RowID() int {
	return rb.rowID
}

// ShallowCopy returns an independent cursor over the same finalized data
// for targetSession, or nil when any precondition fails.
func (rb *ResultBuffer) ShallowCopy(targetSession *session.Session) *ResultBuffer {
	if !rb.finished {
		return nil
	}
	if rb.backend == nil && (rb.rows == nil || len(rb.rows) < rb.rowCount) {
		return nil
	}
	if rb.containsLobs {
		return nil
	}

	sc := &ResultBuffer{
		sess:               targetSession,
		columns:            rb.columns,
		visibleColumnCount: rb.visibleColumnCount,
		maxMemoryRows:      rb.maxMemoryRows,
		rowID:              -1,
		rowCount:           rb.rowCount,
		rows:               rb.rows,
		distinct:           rb.distinct,
		distinctIndexes:    rb.distinctIndexes,
		started:            true,
		finished:           true,
		limit:              -1,
	}

	if rb.backend != nil {
		cloned, ok := rb.backend.CloneReadOnly()
		if !ok {
			return nil
		}
		sc.backend = cloned
	}

	return sc
}

// Close releases spill resources. Idempotent; the in-memory row list, if
// any, remains available for metadata access afterward.
func (rb *ResultBuffer) Close() error {
	if rb.closed {
		return nil
	}
	rb.closed = true
	if rb.backend != nil {
		err := rb.backend.Close()
		rb.backend = nil
		if err != nil {
			return newBackendError("Close", err)
		}
	}
	return nil
}

func (rb *ResultBuffer) ColumnMetaAt(i int) ColumnMeta {
	return rb.columns[i]
}

func (rb *ResultBuffer) ColumnCount() int {
	return len(rb.columns)
}

// Dump renders the buffer's configuration and finalized row count as a
// treeprint.Tree, for use in debug logging.
func (rb *ResultBuffer) Dump() string {
	tree := treeprint.New()
	tree.AddNode(fmt.Sprintf("columns: %d (visible %d)", len(rb.columns), rb.visibleColumnCount))
	tree.AddNode(fmt.Sprintf("rowCount: %d", rb.rowCount))
	tree.AddNode(fmt.Sprintf("distinct: %v, distinctIndexes: %v", rb.distinct, rb.distinctIndexes))
	tree.AddNode(fmt.Sprintf("offset: %d, limit: %d, fetchPercent: %v, withTies: %v", rb.offset, rb.limit, rb.fetchPercent, rb.withTies))
	state := tree.AddBranch("state")
	state.AddNode(fmt.Sprintf("started=%v finished=%v closed=%v spilled=%v", rb.started, rb.finished, rb.closed, rb.backend != nil))
	return tree.String()
}
