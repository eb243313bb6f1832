package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minefield/internal/game"
	"minefield/internal/tile"
)

type fakeSeat struct {
	entries  []Entry
	finished bool
}

func (f *fakeSeat) Send(e Entry) { f.entries = append(f.entries, e) }
func (f *fakeSeat) Shutdown()    { f.finished = true }

func fixedDeal() game.DealSource {
	return func() []tile.Tile { return tile.FullDeck() }
}

func TestJoinSendsImmediately(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 0)
	r.Start()

	require.NotEmpty(t, seat0.entries)
	assert.Equal(t, game.EventPhaseOne, seat0.entries[0].Event.Type)
	assert.False(t, seat0.entries[0].Replay)
}

func TestJoinReplaysBacklogSkippingMoveEvents(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()

	// seat 0 connects only after phase_one + start_move have already
	// been journaled; it should see phase_one replayed but not
	// start_move (resent instead via SendMove).
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 0)

	foundPhaseOne := false
	for _, e := range seat0.entries {
		if e.Event.Type == game.EventStartMove && e.Replay {
			t.Fatalf("start_move should never be replayed")
		}
		if e.Event.Type == game.EventPhaseOne {
			foundPhaseOne = true
			assert.True(t, e.Replay)
		}
	}
	assert.True(t, foundPhaseOne)

	// the pending move is resent live (not tagged as replay) via
	// Game.SendMove.
	last := seat0.entries[len(seat0.entries)-1]
	assert.Equal(t, game.EventStartMove, last.Event.Type)
	assert.False(t, last.Replay)
}

func TestJoinHonorsAlreadyReceivedCount(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()
	// seat 0 already has the phase_one + start_move (2 entries) from a
	// prior connection; rejoining with nReceived=2 should replay nothing
	// new except the resent pending move.
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 2)
	for _, e := range seat0.entries {
		assert.False(t, e.Replay, "nothing before nReceived should replay")
	}
}

func TestDispatchMalformedPayloadAborts(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()
	seat0 := &fakeSeat{}
	seat1 := &fakeSeat{}
	r.Join(0, seat0, 0)
	r.Join(1, seat1, 0)

	r.Dispatch(0, "hand", "not a hand")

	assert.True(t, r.Finished())
	assert.True(t, seat0.finished)
	assert.True(t, seat1.finished)
}

func TestDispatchUnknownTypeAborts(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 0)

	r.Dispatch(0, "riichi", nil)
	assert.True(t, r.Finished())
}

func TestLeaveDetachesWithoutAborting(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 0)
	r.Leave(0)
	assert.False(t, r.Finished())
}

func TestAbortIsTerminal(t *testing.T) {
	r := New([2]string{"alice", "bob"}, 0, fixedDeal())
	r.Start()
	seat0 := &fakeSeat{}
	r.Join(0, seat0, 0)
	r.Abort()
	assert.True(t, r.Finished())
	assert.True(t, seat0.finished)
	r.Beat() // must be a no-op, not a panic
}
