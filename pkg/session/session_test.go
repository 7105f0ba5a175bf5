package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelql/kestrel/pkg/value"
)

func TestMaxMemoryRowsTransientIsUnbounded(t *testing.T) {
	s := New("transient", Policy{Persistent: false, MaxMemoryRows: 100})
	assert.Equal(t, -1, s.MaxMemoryRows())

	s2 := New("readonly", Policy{Persistent: true, ReadOnly: true, MaxMemoryRows: 100})
	assert.Equal(t, -1, s2.MaxMemoryRows())
}

func TestMaxMemoryRowsPersistentInheritsPolicy(t *testing.T) {
	s := New("persistent", Policy{Persistent: true, MaxMemoryRows: 250})
	assert.Equal(t, 250, s.MaxMemoryRows())
}

func TestSessionIdentityAndPolicyFlags(t *testing.T) {
	s := New("main", Policy{Persistent: true, MVStore: true})
	assert.Equal(t, "main", s.Name())
	assert.True(t, s.IsPersistent())
	assert.True(t, s.IsMVStore())
	assert.False(t, s.IsReadOnly())

	s2 := New("other", Policy{})
	assert.NotEqual(t, s.ID(), s2.ID())
}

func TestAddTemporaryLobTracksCount(t *testing.T) {
	s := New("main", Policy{})
	assert.Equal(t, 0, s.TemporaryLobCount())

	s.AddTemporaryLob(value.NewLazyBlob([]byte("x")))
	s.AddTemporaryLob(value.NewLazyBlob([]byte("y")))
	assert.Equal(t, 2, s.TemporaryLobCount())
}
