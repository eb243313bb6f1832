// Package server is the top-level matchmaking and lifecycle
// coordinator: it pairs waiting players into rooms, routes rejoins,
// ticks every live room once a second, and periodically persists and
// garbage-collects them.
//
// Grounded on original_source/server/server.py's GameServer class,
// restated in the teacher's RoomManager/Worker idiom
// (runtime/game/room_manager.go, runtime/game/worker.go) minus the
// clustering/NATS/etcd layer those carry (out of scope, §F).
package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"minefield/common/config"
	"minefield/common/log"
	"minefield/internal/game"
	"minefield/internal/room"
	"minefield/internal/store"
	"minefield/internal/tile"
)

// Connection is what the transport layer (internal/transport/ws)
// gives the server: a way to push a typed message to one player and
// to force them off.
type Connection interface {
	Send(msgType string, data map[string]any)
	Shutdown()
}

type waitingEntry struct {
	nick string
	conn Connection
}

type managedRoom struct {
	room       *room.Room
	occupants  [2]Connection
	finishedAt time.Time
}

// Server is the single process-wide matchmaking and room registry.
// All methods assume the caller serializes access (the transport
// layer's accept loop and the ticking goroutine share one mutex).
type Server struct {
	mu sync.Mutex

	waiting map[string]*waitingEntry // join key -> waiting player
	connKey map[Connection]string    // waiting connection -> its key

	rooms    []*managedRoom
	connRoom map[Connection]*managedRoom

	st  store.Store
	cfg config.RoomConf
	t   int

	logger *log.Logger
}

// New builds a Server around a persistence backend, restoring any
// rooms that were unfinished when the process last stopped (§4.4).
func New(ctx context.Context, st store.Store, cfg config.RoomConf) (*Server, error) {
	s := &Server{
		waiting:  make(map[string]*waitingEntry),
		connKey:  make(map[Connection]string),
		connRoom: make(map[Connection]*managedRoom),
		st:       st,
		cfg:      cfg,
		logger:   log.With("component", "server"),
	}

	snaps, err := st.LoadUnfinishedRooms(ctx)
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		s.rooms = append(s.rooms, &managedRoom{room: restoreRoom(snap)})
	}
	s.logger.Info("restored unfinished rooms", "count", len(snaps))
	return s, nil
}

// restoreRoom rebuilds a Room shell around an archived snapshot. The
// snapshot carries the match's last known state (snap.Game) for the
// archival record, but resuming gameplay mid-hand from it is out of
// scope — a restored room is built with the snapshot's nicks, a fresh
// ID and fresh rejoin keys, started and immediately aborted. No seat
// is attached to it, so the abort sends nothing to either player.
func restoreRoom(snap store.Snapshot) *room.Room {
	r := room.New([2]string{snap.Nicks[0], snap.Nicks[1]}, 0, randomDeal())
	r.Start()
	r.Abort()
	return r
}

func randomDeal() game.DealSource {
	return func() []tile.Tile {
		deck := tile.FullDeck()
		rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
		return deck
	}
}

// AddPlayer enters conn into the waiting pool under nick and returns
// the join key an opponent needs to pair with them (§4.4).
func (s *Server) AddPlayer(nick string, conn Connection) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uuid.NewString()
	s.waiting[key] = &waitingEntry{nick: nick, conn: conn}
	s.connKey[conn] = key
	return key
}

// JoinPlayer pairs conn against the waiting player registered under
// key, starting a new room if found (§4.4).
func (s *Server) JoinPlayer(conn Connection, nick, key string) {
	s.mu.Lock()
	opponent, ok := s.waiting[key]
	if !ok {
		s.mu.Unlock()
		conn.Send("join_failed", map[string]any{"description": "Opponent not found."})
		return
	}
	delete(s.waiting, key)
	delete(s.connKey, opponent.conn)

	r := room.New([2]string{opponent.nick, nick}, rand.Intn(2), randomDeal())
	mr := &managedRoom{room: r, occupants: [2]Connection{opponent.conn, conn}}
	s.rooms = append(s.rooms, mr)
	s.connRoom[opponent.conn] = mr
	s.connRoom[conn] = mr
	s.mu.Unlock()

	r.Join(0, newSeatAdapter(opponent.conn), 0)
	r.Join(1, newSeatAdapter(conn), 0)
	r.Start()

	opponent.conn.Send("room", map[string]any{"key": r.Keys[0], "nicks": r.Nicks, "you": 0})
	conn.Send("room", map[string]any{"key": r.Keys[1], "nicks": r.Nicks, "you": 1})

	s.saveRoom(r)
}

// RejoinPlayer reconnects conn to whichever seat key belongs to,
// kicking off any prior occupant of that seat and replaying its
// backlog from nReceived (§4.3.2).
func (s *Server) RejoinPlayer(conn Connection, key string, nReceived int) bool {
	s.mu.Lock()
	var mr *managedRoom
	var idx int
	for _, candidate := range s.rooms {
		for i, k := range candidate.room.Keys {
			if k == key {
				mr, idx = candidate, i
			}
		}
	}
	if mr == nil {
		s.mu.Unlock()
		return false
	}

	old := mr.occupants[idx]
	if old != nil {
		delete(s.connRoom, old)
	}
	mr.occupants[idx] = conn
	s.connRoom[conn] = mr
	s.mu.Unlock()

	if old != nil && old != conn {
		old.Shutdown()
	}
	mr.room.Join(idx, newSeatAdapter(conn), nReceived)
	return true
}

// RemovePlayer detaches conn from wherever it currently sits — the
// waiting pool or a room seat (§4.4, called on disconnect).
func (s *Server) RemovePlayer(conn Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.connKey[conn]; ok {
		delete(s.waiting, key)
		delete(s.connKey, conn)
		return
	}
	if mr, ok := s.connRoom[conn]; ok {
		for idx, occ := range mr.occupants {
			if occ == conn {
				mr.room.Leave(idx)
				mr.occupants[idx] = nil
			}
		}
		delete(s.connRoom, conn)
	}
}

// GameDescriptor is one entry of DescribeGames' result (§4.4).
type GameDescriptor struct {
	Type  string    `json:"type"`
	Nicks [2]string `json:"nicks,omitempty"`
	Nick  string    `json:"nick,omitempty"`
	Key   string    `json:"key,omitempty"`
}

// DescribeGames lists every unfinished room and waiting player, for
// an admin or lobby listing (§4.4).
func (s *Server) DescribeGames() []GameDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []GameDescriptor
	for _, mr := range s.rooms {
		if !mr.room.Finished() {
			out = append(out, GameDescriptor{Type: "game", Nicks: mr.room.Nicks})
		}
	}
	for key, w := range s.waiting {
		out = append(out, GameDescriptor{Type: "player", Nick: w.nick, Key: key})
	}
	return out
}

// Beat advances every live room by one second and, every
// cfg.SaveInterval worth of ticks (30 when unset), persists the
// registry and evicts rooms no one can still reach (§4.4's maintenance
// cadence).
func (s *Server) Beat(ctx context.Context) {
	s.mu.Lock()
	s.t++
	t := s.t
	rooms := append([]*managedRoom{}, s.rooms...)
	s.mu.Unlock()

	for _, mr := range rooms {
		mr.room.Beat()
	}

	every := int(s.cfg.SaveInterval.Seconds())
	if every <= 0 {
		every = 30
	}
	if t%every != 0 {
		return
	}

	s.saveAll(ctx)
	s.collect(ctx)
}

func (s *Server) collect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rooms[:0]
	for _, mr := range s.rooms {
		unoccupied := mr.occupants[0] == nil && mr.occupants[1] == nil
		if mr.room.Finished() {
			if mr.finishedAt.IsZero() {
				mr.finishedAt = time.Now()
			}
			if unoccupied && time.Since(mr.finishedAt) > s.cfg.InactiveEviction {
				s.logger.Info("evicting inactive room", "room", mr.room.ID)
				if err := s.st.DeleteRoom(ctx, mr.room.ID); err != nil {
					s.logger.Warn("failed to delete evicted room", "room", mr.room.ID, "err", err)
				}
				continue
			}
		} else if mr.room.Game.T() > int(s.cfg.ZombieTimeout.Seconds()) {
			s.logger.Warn("aborting zombie room", "room", mr.room.ID)
			mr.room.Abort()
			s.saveRoom(mr.room)
		}
		kept = append(kept, mr)
	}
	s.rooms = kept
}

// Shutdown persists every room's current state. Call once, before the
// process exits, so a restart's restoreRoom has something to abort
// cleanly rather than losing track of the match entirely.
func (s *Server) Shutdown(ctx context.Context) {
	s.saveAll(ctx)
}

func (s *Server) saveAll(ctx context.Context) {
	s.mu.Lock()
	rooms := append([]*managedRoom{}, s.rooms...)
	s.mu.Unlock()

	s.logger.Debug("saving rooms", "count", len(rooms))
	for _, mr := range rooms {
		s.saveRoomCtx(ctx, mr.room)
	}
}

func (s *Server) saveRoom(r *room.Room) {
	s.saveRoomCtx(context.Background(), r)
}

func (s *Server) saveRoomCtx(ctx context.Context, r *room.Room) {
	journal := r.Journal()
	snap := store.Snapshot{
		ID:       r.ID,
		Nicks:    r.Nicks,
		Keys:     r.Keys,
		Aborted:  r.Aborted(),
		Game:     r.Game.State(),
		Finished: r.Finished(),
		Messages: [2][]store.Message{
			store.MarshalEvents(journal[0]),
			store.MarshalEvents(journal[1]),
		},
	}
	if err := s.st.SaveRoom(ctx, snap); err != nil {
		s.logger.Error("failed to save room", "room", r.ID, "err", err)
	}
}

// Dispatch routes an in-game message (hand/discard) from conn to its
// room, identifying which seat conn occupies. Returns false if conn
// is not currently seated in any room.
func (s *Server) Dispatch(conn Connection, msgType string, payload any) bool {
	s.mu.Lock()
	mr, ok := s.connRoom[conn]
	var idx int
	if ok {
		for i, occ := range mr.occupants {
			if occ == conn {
				idx = i
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	mr.room.Dispatch(idx, msgType, payload)
	return true
}

// Stats reports the current room/player counts for the metrics
// surface (§A.6).
func (s *Server) Stats() (rooms, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms), len(s.waiting)
}
