package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession("s1", 2)
	assert.Equal(t, SessionConnected, s.State())

	_, ok := s.Identity()
	assert.False(t, ok)
	require.NoError(t, s.Authenticate("m1"))
	id, ok := s.Identity()
	assert.True(t, ok)
	assert.Equal(t, "m1", id)

	added, err := s.MarkJoined("r1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, SessionJoined, s.State())

	added, err = s.MarkJoined("r1")
	require.NoError(t, err)
	assert.False(t, added, "second join is a no-op")

	_, _ = s.MarkJoined("r0")
	assert.Equal(t, []string{"r0", "r1"}, s.Rooms())

	assert.True(t, s.MarkLeft("r0"))
	assert.False(t, s.MarkLeft("r0"))
	assert.Equal(t, SessionJoined, s.State())

	assert.True(t, s.MarkLeft("r1"))
	assert.Equal(t, SessionConnected, s.State())

	_, _ = s.MarkJoined("r2")
	assert.Equal(t, []string{"r2"}, s.Close())
	assert.Equal(t, SessionDisconnected, s.State())
	assert.Nil(t, s.Close(), "close is idempotent")
	assert.Empty(t, s.Rooms())

	_, err = s.MarkJoined("r3")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Authenticate("m2"), ErrSessionClosed)
}

func TestSession_DeliverNeverBlocks(t *testing.T) {
	s := NewSession("s1", 1)

	assert.True(t, s.Deliver([]byte("a")))
	assert.False(t, s.Deliver([]byte("b")), "full queue drops")
	assert.Equal(t, uint64(1), s.Dropped())

	assert.Equal(t, []byte("a"), <-s.Outbound())

	s.Close()
	assert.False(t, s.Deliver([]byte("c")))
	_, open := <-s.Outbound()
	assert.False(t, open)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "connected", SessionConnected.String())
	assert.Equal(t, "joined", SessionJoined.String())
	assert.Equal(t, "disconnected", SessionDisconnected.String())
	assert.Equal(t, "unknown", SessionState(9).String())
}

func TestSendResult_LatestPointerUpdated(t *testing.T) {
	assert.True(t, (&SendResult{}).LatestPointerUpdated())
	assert.False(t, (&SendResult{PointerErr: ErrPersistence}).LatestPointerUpdated())
}
