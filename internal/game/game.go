// Package game implements the per-match phase machine (component E):
// hand selection, alternating discards, turn ordering, timeouts,
// furiten, ron, and abort.
//
// Grounded on original_source/server/game.py's Game class, restated
// in the teacher's engine idiom (explicit phase/turn state, a
// callback-driven event bus; see runtime/game/engines/mahjong/
// turn_manager.go for the state-field shape this borrows).
package game

import (
	"math/rand"
	"sort"

	"minefield/internal/rules"
	"minefield/internal/tile"
)

// Constants from §6.
const (
	PlayerTiles      = 34
	Discards         = 17
	HandTimeLimit    = 180
	DiscardTimeLimit = 15
	ExtraTime        = 10
)

// SeatWinds gives the seat-wind tile for (East, West) in the
// two-player layout (§6).
var SeatWinds = [2]tile.Tile{tile.MustParse("X1"), tile.MustParse("X3")}

// Phase is one of the three match phases (§4.2).
type Phase int

const (
	PhaseHandSelection Phase = 1
	PhaseDiscards      Phase = 2
	PhaseFinished      Phase = 3
)

// MoveType names the kind of pending move a seat owes.
type MoveType string

const (
	MoveHand    MoveType = "hand"
	MoveDiscard MoveType = "discard"
)

// Move is a seat's open obligation and its absolute deadline (in game
// seconds), carrying the EXTRA_TIME grace window server-side only.
type Move struct {
	Type     MoveType
	Deadline int
}

// EventType names one outbound event kind (§4.2's event protocol).
type EventType string

const (
	EventPhaseOne        EventType = "phase_one"
	EventPhaseTwo        EventType = "phase_two"
	EventStartMove       EventType = "start_move"
	EventEndMove         EventType = "end_move"
	EventHand            EventType = "hand"
	EventWaitForPhaseTwo EventType = "wait_for_phase_two"
	EventDiscarded       EventType = "discarded"
	EventRon             EventType = "ron"
	EventDraw            EventType = "draw"
	EventAbort           EventType = "abort"
)

// Event is one outbound message addressed to a single seat.
type Event struct {
	Seat int
	Type EventType
	Data map[string]any
}

// Callback receives every outbound event a Game emits, in emission
// order. The room layer (component F) journals and routes it.
type Callback func(Event)

// DealSource supplies the shuffled 136-tile deck a Game deals from.
// The default draws from a seedable PRNG; tests inject a
// deterministic sequence (§5's "injected deal source" redesign,
// replacing the source's global DEBUG flag).
type DealSource func() []tile.Tile

// Game is one match's state machine. Not safe for concurrent use —
// callers serialize access (the room layer does, per §5's
// single-threaded cooperative model).
type Game struct {
	callback Callback

	east int // 0 or 1

	initialTiles [2][]tile.Tile // the 34 tiles each seat started with
	tiles        [2][]tile.Tile // remaining undealt/unplayed pool
	hand         [2][]tile.Tile // chosen 13-tile hand, nil until set
	waits        [2][]tile.Tile

	discards [2][]tile.Tile

	doraInd    tile.Tile
	uradoraInd tile.Tile

	t        int
	moves    [2]*Move
	finished bool
}

// New builds a Game around a deal source and outbound callback. east,
// if non-negative, fixes the dealer seat; pass -1 to pick one at
// random.
func New(east int, deal DealSource, cb Callback) *Game {
	all := deal()
	if len(all) < PlayerTiles*2+2 {
		panic("game: deal source returned too few tiles")
	}
	if east < 0 {
		east = rand.Intn(2)
	}

	g := &Game{callback: cb, east: east}
	g.initialTiles[0] = append([]tile.Tile{}, all[:PlayerTiles]...)
	g.initialTiles[1] = append([]tile.Tile{}, all[PlayerTiles:PlayerTiles*2]...)
	g.tiles[0] = append([]tile.Tile{}, g.initialTiles[0]...)
	g.tiles[1] = append([]tile.Tile{}, g.initialTiles[1]...)
	g.doraInd = all[PlayerTiles*2]
	g.uradoraInd = all[PlayerTiles*2+1]
	return g
}

// Phase reports the current match phase (§4.2).
func (g *Game) Phase() Phase {
	if g.finished {
		return PhaseFinished
	}
	if g.hand[0] == nil || g.hand[1] == nil {
		return PhaseHandSelection
	}
	return PhaseDiscards
}

// Finished reports whether the match has ended (ron, draw, or abort).
func (g *Game) Finished() bool { return g.finished }

// State is a serializable snapshot of a Game's fields, the "game"
// entry of a Room's persistence snapshot (§6). Restoring gameplay from
// a State is out of scope (see internal/server.restoreRoom, which
// aborts a restored room rather than resuming it mid-hand) — this
// exists so the archived record carries the match's last known state,
// matching the snapshot shape §6 documents.
type State struct {
	East         int            `json:"east" bson:"east"`
	InitialTiles [2][]tile.Tile `json:"initial_tiles" bson:"initial_tiles"`
	Tiles        [2][]tile.Tile `json:"tiles" bson:"tiles"`
	Hand         [2][]tile.Tile `json:"hand" bson:"hand"`
	Discards     [2][]tile.Tile `json:"discards" bson:"discards"`
	DoraInd      tile.Tile      `json:"dora_ind" bson:"dora_ind"`
	UradoraInd   tile.Tile      `json:"uradora_ind" bson:"uradora_ind"`
	T            int            `json:"t" bson:"t"`
	Finished     bool           `json:"finished" bson:"finished"`
}

// State captures g's current fields for persistence.
func (g *Game) State() State {
	return State{
		East:         g.east,
		InitialTiles: g.initialTiles,
		Tiles:        g.tiles,
		Hand:         g.hand,
		Discards:     g.discards,
		DoraInd:      g.doraInd,
		UradoraInd:   g.uradoraInd,
		T:            g.t,
		Finished:     g.finished,
	}
}

// T returns elapsed game time in seconds, the basis for zombie-room
// detection (§4.4).
func (g *Game) T() int { return g.t }

// PlayerTurn returns the seat whose discard pile is shorter, or East
// on ties (§4.2's turn rule).
func (g *Game) PlayerTurn() int {
	if len(g.discards[0]) == len(g.discards[1]) {
		return g.east
	}
	return 1 - g.east
}

func (g *Game) emit(seat int, typ EventType, data map[string]any) {
	g.callback(Event{Seat: seat, Type: typ, Data: data})
}

func (g *Game) emitBoth(typ EventType, data map[string]any) {
	g.emit(0, typ, data)
	g.emit(1, typ, data)
}

// Abort ends the match with blame assigned to culprit (§4.2, §7).
// Idempotent once finished.
func (g *Game) Abort(culprit int, description string) {
	if g.finished {
		return
	}
	g.finished = true
	g.moves = [2]*Move{}
	g.emitBoth(EventAbort, map[string]any{"culprit": culprit, "description": description})
}

// Beat advances game time by one second, aborting the game if any
// open move's deadline has passed (§4.2's timeout rule). Safe to call
// on a finished game (no-op).
func (g *Game) Beat() {
	if g.finished {
		return
	}
	g.t++
	for seat, mv := range g.moves {
		if mv != nil && g.t >= mv.Deadline {
			g.Abort(seat, "time limit exceeded")
			return
		}
	}
}

func (g *Game) startMove(seat int, typ MoveType, timeLimit int) {
	if g.moves[seat] != nil {
		panic("game: startMove called with a move already pending")
	}
	g.moves[seat] = &Move{Type: typ, Deadline: g.t + timeLimit + ExtraTime}
	g.SendMove(seat)
}

func (g *Game) endMove(seat int) {
	g.moves[seat] = nil
	g.emit(seat, EventEndMove, nil)
}

// SendMove re-emits the current pending move for seat, or does
// nothing if none is open. Used by the room layer to reconstruct a
// reconnecting seat's pending move (§4.3.2).
func (g *Game) SendMove(seat int) {
	mv := g.moves[seat]
	if mv == nil {
		return
	}
	timeLimit := mv.Deadline - g.t - ExtraTime
	g.emit(seat, EventStartMove, map[string]any{"move_type": string(mv.Type), "time_limit": timeLimit})
}

// Start deals phase one to both seats and opens their hand-selection
// moves (§4.2).
func (g *Game) Start() {
	for i := 0; i < 2; i++ {
		g.emit(i, EventPhaseOne, map[string]any{
			"tiles":    append([]tile.Tile{}, g.initialTiles[i]...),
			"dora_ind": g.doraInd,
			"you":      i,
			"east":     g.east,
		})
		g.startMove(i, MoveHand, HandTimeLimit)
	}
}

// OnHand handles a seat's 13-tile hand submission (§4.2).
func (g *Game) OnHand(seat int, hand []tile.Tile) {
	if g.Phase() != PhaseHandSelection {
		g.Abort(seat, "on_hand: wrong phase")
		return
	}
	if len(hand) != 13 {
		g.Abort(seat, "on_hand: len != 13")
		return
	}
	if g.hand[seat] != nil {
		g.Abort(seat, "on_hand: hand already sent")
		return
	}

	pool := append([]tile.Tile{}, g.tiles[seat]...)
	for _, t := range hand {
		var ok bool
		pool, ok = tile.Remove(pool, t)
		if !ok {
			g.Abort(seat, "on_hand: tile not found in choices")
			return
		}
	}
	g.tiles[seat] = pool

	g.hand[seat] = append([]tile.Tile{}, hand...)
	sortedHand := append([]tile.Tile{}, hand...)
	tile.Sort(sortedHand)
	g.waits[seat] = rules.Waits(sortedHand, g.optionsFor(seat, false))

	g.endMove(seat)
	g.emit(seat, EventHand, map[string]any{"hand": append([]tile.Tile{}, hand...)})

	if g.hand[0] != nil && g.hand[1] != nil {
		g.emitBoth(EventPhaseTwo, nil)
		g.startMove(g.east, MoveDiscard, DiscardTimeLimit)
	} else {
		g.emit(seat, EventWaitForPhaseTwo, nil)
	}
}

// optionsFor builds the ScoringContext for seat, optionally revealing
// uradora (win-time only, §4.2's check_ron).
func (g *Game) optionsFor(seat int, uradora bool) rules.ScoringContext {
	opts := rules.ScoringContext{
		FanpaiWinds: []tile.Tile{SeatWinds[seat^g.east]},
		DoraInd:     g.doraInd,
		Hotei:       len(g.discards[0]) == Discards && len(g.discards[1]) == Discards,
		Ippatsu:     len(g.discards[1-seat]) == 1,
	}
	if uradora {
		u := g.uradoraInd
		opts.UraDoraInd = &u
	}
	return opts
}

// furiten reports whether seat is self-locked out of ron: any of its
// own waits appears among its own discards, or among the opponent's
// discards excluding the opponent's most recent one (§4.2).
func (g *Game) furiten(seat int) bool {
	locked := map[tile.Tile]bool{}
	for _, t := range g.discards[seat] {
		locked[t] = true
	}
	opp := g.discards[1-seat]
	for i := 0; i < len(opp)-1; i++ {
		locked[opp[i]] = true
	}
	for _, w := range g.waits[seat] {
		if locked[w] {
			return true
		}
	}
	return false
}

// OnDiscard handles a seat's discard of tile (§4.2).
func (g *Game) OnDiscard(seat int, t tile.Tile) {
	if g.Phase() != PhaseDiscards {
		g.Abort(seat, "on_discard: wrong phase")
		return
	}
	if g.PlayerTurn() != seat {
		g.Abort(seat, "on_discard: not your turn")
		return
	}
	pool, ok := tile.Remove(g.tiles[seat], t)
	if !ok {
		g.Abort(seat, "on_discard: tile not found in choices")
		return
	}
	g.tiles[seat] = pool
	g.discards[seat] = append(g.discards[seat], t)

	g.endMove(seat)
	g.emitBoth(EventDiscarded, map[string]any{"player": seat, "tile": t})

	opponent := 1 - seat
	if waits(g.waits[opponent], t) && !g.furiten(opponent) {
		if g.checkRon(seat, t) {
			return
		}
	}

	if len(g.discards[0]) == Discards && len(g.discards[1]) == Discards {
		g.finished = true
		g.emitBoth(EventDraw, nil)
		return
	}

	g.startMove(g.PlayerTurn(), MoveDiscard, DiscardTimeLimit)
}

func waits(set []tile.Tile, t tile.Tile) bool {
	for _, w := range set {
		if w == t {
			return true
		}
	}
	return false
}

// checkRon computes whether discarder's discard of t completes
// opponent's hand for at least mangan, broadcasting ron and finishing
// the match if so (§4.2). Returns whether a ron was declared.
func (g *Game) checkRon(discarder int, t tile.Tile) bool {
	winner := 1 - discarder
	full := append([]tile.Tile{}, g.hand[winner]...)
	full = append(full, t)
	tile.Sort(full)

	result := rules.BestHand(full, t, g.optionsFor(winner, false))
	if result == nil || result.Limit < rules.Mangan {
		return false
	}

	// Recompute with uradora revealed now that the hand has won.
	result = rules.BestHand(full, t, g.optionsFor(winner, true))

	g.finished = true
	names := make([]string, len(result.Yaku))
	for i, y := range result.Yaku {
		names[i] = y.String()
	}
	sort.Strings(names)

	g.emitBoth(EventRon, map[string]any{
		"player":      winner,
		"hand":        full,
		"tile":        t,
		"yaku":        names,
		"yakuman":     result.Yakuman,
		"dora":        result.Dora,
		"points":      result.Points,
		"limit":       int(result.Limit),
		"uradora_ind": g.uradoraInd,
	})
	return true
}
