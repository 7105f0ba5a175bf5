// Package session implements the minimal owning-session handle the result
// buffer needs: a temporary-LOB registry and the three database policy
// predicates that decide the default memory threshold and spill backend
// choice. It is a named, single-owner handle with a monotonic id, trimmed
// to the handful of capabilities a result buffer actually calls.
package session

import (
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/kestrelql/kestrel/pkg/util"
	"github.com/kestrelql/kestrel/pkg/value"
)

var nextSessionID atomic.Uint64

// Policy carries the database-level facts that decide the result buffer's
// default memory threshold and spill backend choice.
type Policy struct {
	Persistent bool
	ReadOnly   bool
	MVStore    bool
	// MaxMemoryRows is the configured spill threshold inherited when the
	// session is not transient. See ResultBuffer.SetMaxMemoryRows.
	MaxMemoryRows int
}

// Session is the owning collaborator a ResultBuffer is built against. The
// buffer never locks it; ownerGoroutine backs an always-on assertion,
// checked when a temporary LOB is registered, that catches accidental use
// from more than one goroutine.
type Session struct {
	id             uint64
	name           string
	policy         Policy
	tempLobs       []value.Value
	ownerGoroutine int64
}

func New(name string, policy Policy) *Session {
	return &Session{
		id:             nextSessionID.Add(1),
		name:           name,
		policy:         policy,
		ownerGoroutine: goid.Get(),
	}
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) Name() string {
	return s.name
}

// assertOwner panics when called from a goroutine other than the one that
// created the session, rather than returning a caller-recoverable error:
// concurrent access to a session is undefined behavior, so this is a
// tripwire, not part of the contract.
func (s *Session) assertOwner() {
	util.AssertFunc(goid.Get() == s.ownerGoroutine)
}

// AddTemporaryLob registers a materialized LOB value so that it outlives
// the result buffer that created it; the session releases these on
// teardown (not modeled here, since session teardown is outside a result
// buffer's scope).
func (s *Session) AddTemporaryLob(v value.Value) {
	s.assertOwner()
	s.tempLobs = append(s.tempLobs, v)
}

func (s *Session) TemporaryLobCount() int {
	return len(s.tempLobs)
}

func (s *Session) MaxMemoryRows() int {
	if s.policy.Persistent && !s.policy.ReadOnly {
		return s.policy.MaxMemoryRows
	}
	return -1 // unbounded, the transient-session default.
}

func (s *Session) IsPersistent() bool {
	return s.policy.Persistent
}

func (s *Session) IsReadOnly() bool {
	return s.policy.ReadOnly
}

func (s *Session) IsMVStore() bool {
	return s.policy.MVStore
}
