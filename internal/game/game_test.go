package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minefield/internal/tile"
)

// fixedDeal returns a DealSource that always replays order — usually
// the 136-tile deck in tile.FullDeck order, whose tiles 68 and 69
// become the dora and uradora indicators. Tests that need specific
// hands reorder the front of the deck directly.
func fixedDeal(order []tile.Tile) DealSource {
	return func() []tile.Tile { return order }
}

func fullOrderedDeck() []tile.Tile {
	return tile.FullDeck()
}

// recorder captures every emitted event for assertion.
type recorder struct {
	events []Event
}

func (r *recorder) collect(e Event) { r.events = append(r.events, e) }

func (r *recorder) last(seat int, typ EventType) *Event {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Seat == seat && r.events[i].Type == typ {
			return &r.events[i]
		}
	}
	return nil
}

func (r *recorder) count(typ EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestStartDealsPhaseOneToBothSeats(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()

	assert.NotNil(t, rec.last(0, EventPhaseOne))
	assert.NotNil(t, rec.last(1, EventPhaseOne))
	assert.Equal(t, PhaseHandSelection, g.Phase())
	assert.NotNil(t, rec.last(0, EventStartMove))
	assert.NotNil(t, rec.last(1, EventStartMove))
}

func TestOnHandTransitionsToPhaseTwo(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()

	hand0 := append([]tile.Tile{}, g.initialTiles[0][:13]...)
	hand1 := append([]tile.Tile{}, g.initialTiles[1][:13]...)

	g.OnHand(0, hand0)
	assert.Equal(t, PhaseHandSelection, g.Phase())
	assert.NotNil(t, rec.last(0, EventWaitForPhaseTwo))

	g.OnHand(1, hand1)
	assert.Equal(t, PhaseDiscards, g.Phase())
	assert.Equal(t, 2, rec.count(EventPhaseTwo))
	assert.Equal(t, 0, g.PlayerTurn())
}

func TestOnHandRejectsWrongTileCount(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()

	g.OnHand(0, g.initialTiles[0][:12])
	assert.True(t, g.Finished())
	ev := rec.last(0, EventAbort)
	require.NotNil(t, ev)
	assert.Equal(t, 0, ev.Data["culprit"])
}

func TestBeatAbortsOnHandTimeout(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()

	for i := 0; i < HandTimeLimit+ExtraTime; i++ {
		g.Beat()
	}
	assert.True(t, g.Finished())
	assert.NotNil(t, rec.last(0, EventAbort))
}

func TestBeatAbortsOnDiscardTimeout(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()
	g.OnHand(0, g.initialTiles[0][:13])
	g.OnHand(1, g.initialTiles[1][:13])

	require.Equal(t, PhaseDiscards, g.Phase())
	for i := 0; i < DiscardTimeLimit+ExtraTime; i++ {
		g.Beat()
	}
	assert.True(t, g.Finished())
}

func TestExhaustiveDrawScenario(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Start()
	g.OnHand(0, g.initialTiles[0][:13])
	g.OnHand(1, g.initialTiles[1][:13])

	for !g.Finished() {
		seat := g.PlayerTurn()
		if len(g.tiles[seat]) == 0 {
			t.Fatalf("seat %d ran out of spare tiles before the match finished", seat)
		}
		g.OnDiscard(seat, g.tiles[seat][0])
	}
	assert.Equal(t, Discards, len(g.discards[0]))
	assert.Equal(t, Discards, len(g.discards[1]))
	assert.NotNil(t, rec.last(0, EventDraw))
}

// buildRonDeck crafts a deck whose front 34+34 tiles give seat 1 a
// kokushi-eligible hand once fed the discard winning tile, mirroring
// original_source/server/game.py's test_win.
func buildRonDeck(t *testing.T) []tile.Tile {
	t.Helper()

	full := tile.FullDeck()
	// winner's 34-tile pool: the 13 kokushi tiles plus 21 padding tiles
	// that are never selected into the submitted hand.
	kokushi13 := []tile.Tile{
		tile.MustParse("M1"), tile.MustParse("M9"),
		tile.MustParse("P1"), tile.MustParse("P9"),
		tile.MustParse("S1"), tile.MustParse("S9"),
		tile.MustParse("X1"), tile.MustParse("X2"),
		tile.MustParse("X3"), tile.MustParse("X4"),
		tile.MustParse("X5"), tile.MustParse("X6"),
		tile.MustParse("X7"),
	}

	var winnerPool []tile.Tile
	winnerPool = append(winnerPool, kokushi13...)
	used := map[tile.Tile]int{}
	for _, tl := range kokushi13 {
		used[tl]++
	}
	for _, tl := range full {
		if len(winnerPool) >= PlayerTiles {
			break
		}
		if used[tl] > 0 {
			used[tl]--
			continue
		}
		winnerPool = append(winnerPool, tl)
	}

	var discarderPool []tile.Tile
	taken := map[tile.Tile]int{}
	for _, tl := range winnerPool {
		taken[tl]++
	}
	for _, tl := range full {
		if len(discarderPool) >= PlayerTiles {
			break
		}
		if taken[tl] > 0 {
			taken[tl]--
			continue
		}
		discarderPool = append(discarderPool, tl)
	}

	rest := full
	consumed := map[tile.Tile]int{}
	for _, tl := range winnerPool {
		consumed[tl]++
	}
	for _, tl := range discarderPool {
		consumed[tl]++
	}
	var remainder []tile.Tile
	for _, tl := range rest {
		if consumed[tl] > 0 {
			consumed[tl]--
			continue
		}
		remainder = append(remainder, tl)
	}

	deck := append([]tile.Tile{}, discarderPool...)
	deck = append(deck, winnerPool...)
	deck = append(deck, remainder...)
	require.GreaterOrEqual(t, len(deck), PlayerTiles*2+2)
	return deck
}

func TestKokushiRonEndsGame(t *testing.T) {
	rec := &recorder{}
	deck := buildRonDeck(t)
	g := New(0, fixedDeal(deck), rec.collect)
	g.Start()

	discarderHand := append([]tile.Tile{}, g.initialTiles[0][:13]...)
	winnerHand := []tile.Tile{
		tile.MustParse("M1"), tile.MustParse("M1"),
		tile.MustParse("M9"),
		tile.MustParse("P1"), tile.MustParse("P9"),
		tile.MustParse("S9"),
		tile.MustParse("X1"), tile.MustParse("X2"),
		tile.MustParse("X3"), tile.MustParse("X4"),
		tile.MustParse("X5"), tile.MustParse("X6"),
		tile.MustParse("X7"),
	}
	// 12 distinct terminal/honor types minus S1 (the discarder feeds it)
	// plus a second M1 as the pair; buildRonDeck's Man-suit padding
	// guarantees a spare M1 is in seat 1's pool.

	g.OnHand(0, discarderHand)
	g.OnHand(1, winnerHand)
	require.Equal(t, PhaseDiscards, g.Phase())
	require.False(t, g.Finished())

	require.Equal(t, 0, g.PlayerTurn())
	// discarder throws S1, completing winner's kokushi wait.
	g.tiles[0] = append(g.tiles[0], tile.MustParse("S1"))
	g.OnDiscard(0, tile.MustParse("S1"))

	assert.True(t, g.Finished())
	ev := rec.last(1, EventRon)
	require.NotNil(t, ev)
	assert.Equal(t, true, ev.Data["yakuman"])
}

func TestFuritenBlocksOwnDiscardFromRon(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.waits[1] = []tile.Tile{tile.MustParse("M5")}
	g.discards[1] = []tile.Tile{tile.MustParse("M5")}
	assert.True(t, g.furiten(1))
}

func TestFuritenIgnoresOwnMostRecentDiscardOnOpponentSide(t *testing.T) {
	g := New(0, fixedDeal(fullOrderedDeck()), func(Event) {})
	g.waits[0] = []tile.Tile{tile.MustParse("M5")}
	g.discards[1] = []tile.Tile{tile.MustParse("S1"), tile.MustParse("M5")}
	// M5 is the opponent's *most recent* discard, which seat 0 could
	// still ron on; furiten only locks on discards before that one.
	assert.False(t, g.furiten(0))
}

func TestAbortIsIdempotent(t *testing.T) {
	rec := &recorder{}
	g := New(0, fixedDeal(fullOrderedDeck()), rec.collect)
	g.Abort(0, "first")
	g.Abort(1, "second")
	// the first Abort broadcasts to both seats; the second emits nothing
	assert.Equal(t, 2, rec.count(EventAbort))
}
