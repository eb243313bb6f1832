package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minefield/common/config"
	"minefield/internal/store"
)

type fakeConn struct {
	nick       string
	messages   []sentMessage
	disconnect bool
}

type sentMessage struct {
	typ  string
	data map[string]any
}

func (c *fakeConn) Send(msgType string, data map[string]any) {
	c.messages = append(c.messages, sentMessage{typ: msgType, data: data})
}
func (c *fakeConn) Shutdown() { c.disconnect = true }

func (c *fakeConn) last() sentMessage { return c.messages[len(c.messages)-1] }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bolt, err := store.OpenBolt(filepath.Join(t.TempDir(), "rooms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	s, err := New(context.Background(), bolt, config.RoomConf{})
	require.NoError(t, err)
	return s
}

func TestAddPlayerEntersWaitingPool(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{nick: "Akagi"}
	key := s.AddPlayer("Akagi", conn)
	assert.NotEmpty(t, key)
	_, waiting := s.Stats()
	assert.Equal(t, 1, waiting)
}

func TestRemovePlayerLeavesWaitingPool(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{nick: "Akagi"}
	s.AddPlayer("Akagi", conn)
	s.RemovePlayer(conn)
	assert.False(t, conn.disconnect) // RemovePlayer itself never shuts the conn down
	_, waiting := s.Stats()
	assert.Equal(t, 0, waiting)
}

func TestJoinPairsWaitingPlayer(t *testing.T) {
	s := newTestServer(t)
	conn1 := &fakeConn{nick: "Akagi"}
	key := s.AddPlayer("Akagi", conn1)

	conn2 := &fakeConn{nick: "Washizu"}
	s.JoinPlayer(conn2, "Washizu", key)

	rooms, waiting := s.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 0, waiting)
	assert.Equal(t, "room", conn1.last().typ)
	assert.Equal(t, "room", conn2.last().typ)
}

func TestJoinFailsOnUnknownKey(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{nick: "Washizu"}
	s.JoinPlayer(conn, "Washizu", "nonexistent-key")
	assert.Equal(t, "join_failed", conn.last().typ)
}

func TestAbortPropagatesToBothSeats(t *testing.T) {
	s := newTestServer(t)
	conn1 := &fakeConn{nick: "Akagi"}
	key := s.AddPlayer("Akagi", conn1)
	conn2 := &fakeConn{nick: "Washizu"}
	s.JoinPlayer(conn2, "Washizu", key)

	// a malformed hand payload is a protocol violation and aborts the
	// room (mirrors ServerTest.test_abort).
	ok := s.Dispatch(conn1, "hand", "wrong type")
	require.True(t, ok, "conn1 is seated, so Dispatch should route the message")

	s.mu.Lock()
	mr := s.connRoom[conn1]
	s.mu.Unlock()
	require.NotNil(t, mr)
	assert.True(t, mr.room.Finished())
	assert.True(t, conn1.disconnect)
	assert.True(t, conn2.disconnect)
}

func TestRejoinEvictsPriorOccupant(t *testing.T) {
	s := newTestServer(t)
	conn1 := &fakeConn{nick: "Akagi"}
	key := s.AddPlayer("Akagi", conn1)
	conn2 := &fakeConn{nick: "Washizu"}
	s.JoinPlayer(conn2, "Washizu", key)

	roomKey := conn1.last().data["key"].(string)

	reconnect := &fakeConn{nick: "Akagi"}
	ok := s.RejoinPlayer(reconnect, roomKey, 0)
	require.True(t, ok)

	assert.True(t, conn1.disconnect, "the socket rejoin displaces should be shut down")
	assert.False(t, reconnect.disconnect)
}

func TestSaveRoomPopulatesSnapshot(t *testing.T) {
	s := newTestServer(t)
	conn1 := &fakeConn{nick: "Akagi"}
	key := s.AddPlayer("Akagi", conn1)
	conn2 := &fakeConn{nick: "Washizu"}
	s.JoinPlayer(conn2, "Washizu", key)

	s.mu.Lock()
	mr := s.connRoom[conn1]
	s.mu.Unlock()
	require.NotNil(t, mr)

	s.saveRoom(mr.room)

	snaps, err := s.st.LoadUnfinishedRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, mr.room.ID, snaps[0].ID)
	assert.NotEmpty(t, snaps[0].Messages[0])
	assert.NotEmpty(t, snaps[0].Messages[1])
}

func TestDescribeGamesListsWaitingPlayer(t *testing.T) {
	s := newTestServer(t)
	conn1 := &fakeConn{nick: "Akagi"}
	s.AddPlayer("Akagi", conn1)

	descs := s.DescribeGames()
	require.Len(t, descs, 1)
	assert.Equal(t, "player", descs[0].Type)
}
