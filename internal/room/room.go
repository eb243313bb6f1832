// Package room wraps one Game with a player-facing journal: it
// records every outbound event, replays the backlog to a
// (re)connecting seat, and isolates a seat's panic or protocol
// violation into an abort rather than letting it take the process
// down.
//
// Grounded on original_source/server-py/room.py's Room class (the
// journal/replay/beat/abort revision, chosen over server/room.py's
// simpler predecessor because it matches §4.3's reconnect contract),
// restated with the teacher's struct-and-methods shape from
// runtime/game/room_manager.go.
package room

import (
	"fmt"

	"github.com/google/uuid"

	"minefield/common/log"
	"minefield/internal/game"
	"minefield/internal/tile"
)

// Seat receives outbound events for one player. The transport layer
// (internal/transport/ws) implements this over a websocket connection.
type Seat interface {
	Send(journalEntry Entry)
	Shutdown()
}

// Entry is one journaled event, tagged with whether it is being
// delivered live or replayed after a reconnect (§4.3.2).
type Entry struct {
	Replay bool
	Event  game.Event
}

// Room owns one Game, its two nicknames, rejoin keys, and the journal
// of everything the game has ever emitted to each seat.
type Room struct {
	ID    string
	Nicks [2]string
	Keys  [2]string

	Game *game.Game

	seats   [2]Seat
	journal [2][]game.Event
	aborted bool
	logger  *log.Logger
}

// New builds a Room around a fresh Game, wiring the game's callback to
// the room's own journal. deal supplies the Game's shuffled deck; east
// fixes (or -1 randomizes) the dealer seat.
func New(nicks [2]string, east int, deal game.DealSource) *Room {
	r := &Room{
		ID:    uuid.NewString(),
		Nicks: nicks,
		Keys:  [2]string{uuid.NewString(), uuid.NewString()},
	}
	r.logger = log.With("room", r.ID)
	r.Game = game.New(east, deal, r.journalEvent)
	return r
}

func (r *Room) journalEvent(e game.Event) {
	r.journal[e.Seat] = append(r.journal[e.Seat], e)
	if seat := r.seats[e.Seat]; seat != nil {
		r.logger.Info("send", "seat", e.Seat, "type", e.Type)
		seat.Send(Entry{Event: e})
	}
}

// Start begins the match. Call once, after construction.
func (r *Room) Start() {
	r.logger.Info("starting")
	r.Game.Start()
}

// Join attaches seat as the occupant of idx, replaying its backlog
// from nReceived onward (§4.3.2: start_move/end_move are never
// replayed, only the move currently pending is resent).
func (r *Room) Join(idx int, seat Seat, nReceived int) {
	r.seats[idx] = seat
	backlog := r.journal[idx]
	if nReceived > len(backlog) {
		nReceived = len(backlog)
	}
	for _, e := range backlog[nReceived:] {
		if e.Type == game.EventStartMove || e.Type == game.EventEndMove {
			continue
		}
		r.logger.Info("replay", "seat", idx, "type", e.Type)
		seat.Send(Entry{Replay: true, Event: e})
	}
	r.Game.SendMove(idx)
}

// Leave detaches whichever seat currently occupies idx (a disconnect,
// not an abort — the game keeps running and §4.3.2 allows rejoin).
func (r *Room) Leave(idx int) {
	r.seats[idx] = nil
}

// Finished reports whether the room can be archived: the match ended
// on its own, or a seat's fault aborted it.
func (r *Room) Finished() bool {
	return r.aborted || r.Game.Finished()
}

// Aborted reports whether Abort was called on this room, as opposed to
// the underlying game ending on its own (ron, draw, or its own
// timeout-driven abort).
func (r *Room) Aborted() bool {
	return r.aborted
}

// Journal returns the per-seat event history recorded so far — the
// server persists it as a room snapshot's "messages" field (§6).
func (r *Room) Journal() [2][]game.Event {
	return r.journal
}

// Dispatch routes one inbound message from seat idx to the game,
// isolating any panic raised while handling it into a room abort
// (§4.3.3's fault-isolation contract — one room's crash never affects
// another).
func (r *Room) Dispatch(idx int, msgType string, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling message", "seat", idx, "type", msgType, "recover", rec)
			r.Abort()
		}
	}()

	switch msgType {
	case "hand":
		hand, ok := payload.([]tile.Tile)
		if !ok {
			r.logger.Warn("malformed hand payload", "seat", idx)
			r.Abort()
			return
		}
		r.Game.OnHand(idx, hand)
	case "discard":
		t, ok := payload.(tile.Tile)
		if !ok {
			r.logger.Warn("malformed discard payload", "seat", idx)
			r.Abort()
			return
		}
		r.Game.OnDiscard(idx, t)
	default:
		r.logger.Warn("unknown message type", "seat", idx, "type", msgType)
		r.Abort()
	}
}

// Beat advances game time by one tick, isolating a panic the same way
// Dispatch does.
func (r *Room) Beat() {
	if r.Finished() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during beat", "recover", rec)
			r.Abort()
		}
	}()
	r.Game.Beat()
}

// Abort force-ends the room: both seats are disconnected and the room
// is marked finished regardless of game state (§4.3.3).
func (r *Room) Abort() {
	r.aborted = true
	for idx, seat := range r.seats {
		if seat != nil {
			seat.Shutdown()
		}
		r.seats[idx] = nil
	}
}

// Describe returns a one-line human summary for admin listings
// (§4.4's describe_games, component G).
func (r *Room) Describe() string {
	phase := "finished"
	if !r.Finished() {
		phase = fmt.Sprintf("phase %d", r.Game.Phase())
	}
	return fmt.Sprintf("%s vs %s (%s): %s", r.Nicks[0], r.Nicks[1], r.ID, phase)
}
