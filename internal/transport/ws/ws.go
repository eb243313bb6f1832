// Package ws adapts gorilla/websocket connections onto
// internal/server.Connection: one goroutine pair per connection (read
// loop, write loop), rate-limited inbound traffic, and a static
// dispatch table for inbound message types rather than reflection —
// the single predictable place an unknown or malformed message can be
// rejected (§5's "explicit dispatch over attribute lookup" redesign).
//
// Grounded on the teacher's framework/conn/connection.go (the
// read/write goroutine split, ping/pong keepalive, buffered write
// channel) adapted from its length-prefixed binary protocol to plain
// JSON text frames.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"minefield/common/log"
	"minefield/internal/server"
	"minefield/internal/tile"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	writeWait    = 10 * time.Second
	maxFrameSize = 8192

	// rateLimit and rateBurst bound a single seat's inbound message
	// rate; a connection that exceeds them is dropped, so a
	// hand-selection flood or a misbehaving client can't flood the
	// server (§4.5's abuse-resistance note).
	rateLimit = 5 // messages/second
	rateBurst = 10
)

// Conn is one player's live websocket connection.
type Conn struct {
	id      string
	ws      *websocket.Conn
	srv     *server.Server
	logger  *log.Logger
	limiter *rate.Limiter

	write     chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// Serve upgrades r to a websocket and runs the connection's read/write
// loops until it closes. Blocks until the connection ends.
func Serve(w http.ResponseWriter, r *http.Request, srv *server.Server) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	c := &Conn{
		id:      id,
		ws:      wsConn,
		srv:     srv,
		logger:  log.With("conn", id),
		limiter: rate.NewLimiter(rateLimit, rateBurst),
		write:   make(chan []byte, 32),
		done:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.writeLoop() }()
	go func() { defer wg.Done(); c.readLoop() }()
	wg.Wait()
}

// Send implements server.Connection: frame {"type": msgType, ...data}
// and enqueue it for the write loop.
func (c *Conn) Send(msgType string, data map[string]any) {
	frame := map[string]any{"type": msgType}
	for k, v := range data {
		frame[k] = v
	}
	b, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to marshal outbound frame", "type", msgType, "err", err)
		return
	}
	select {
	case c.write <- b:
	case <-c.done:
	default:
		c.logger.Warn("write buffer full, dropping connection", "type", msgType)
		c.Shutdown()
	}
}

// Shutdown closes the connection exactly once.
func (c *Conn) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case b, ok := <-c.write:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Warn("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer func() {
		c.srv.RemovePlayer(c)
		c.Shutdown()
	}()

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			c.logger.Warn("rate limit exceeded, dropping connection")
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Conn) handleFrame(raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("panic handling inbound frame", "recover", rec)
			c.Shutdown()
		}
	}()

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.logger.Warn("malformed frame", "err", err)
		c.Shutdown()
		return
	}

	handler, ok := dispatch[envelope.Type]
	if !ok {
		c.logger.Warn("unknown message type", "type", envelope.Type)
		c.Shutdown()
		return
	}
	handler(c, raw)
}

// dispatch is the static inbound message table (§5's redesign note).
// Every entry unmarshals raw into its own typed payload before acting
// — no generic map walking once past the envelope.
var dispatch = map[string]func(*Conn, []byte){
	"new_game":  handleNewGame,
	"join":      handleJoin,
	"rejoin":    handleRejoin,
	"get_games": handleGetGames,
	"hand":      handleHand,
	"discard":   handleDiscard,
}

type newGamePayload struct {
	Nick string `json:"nick"`
}

func handleNewGame(c *Conn, raw []byte) {
	var p newGamePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Nick == "" {
		c.Shutdown()
		return
	}
	key := c.srv.AddPlayer(p.Nick, c)
	c.Send("new_game", map[string]any{"key": key})
}

type joinPayload struct {
	Nick string `json:"nick"`
	Key  string `json:"key"`
}

func handleJoin(c *Conn, raw []byte) {
	var p joinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Nick == "" || p.Key == "" {
		c.Shutdown()
		return
	}
	c.srv.JoinPlayer(c, p.Nick, p.Key)
}

type rejoinPayload struct {
	Key       string `json:"key"`
	NReceived int    `json:"n_received"`
}

func handleRejoin(c *Conn, raw []byte) {
	var p rejoinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Key == "" {
		c.Shutdown()
		return
	}
	if !c.srv.RejoinPlayer(c, p.Key, p.NReceived) {
		c.Send("rejoin_failed", map[string]any{"description": "Game not found."})
	}
}

func handleGetGames(c *Conn, _ []byte) {
	c.Send("games", map[string]any{"games": c.srv.DescribeGames()})
}

type handPayload struct {
	Hand []string `json:"hand"`
}

func handleHand(c *Conn, raw []byte) {
	var p handPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Shutdown()
		return
	}
	hand := make([]tile.Tile, 0, len(p.Hand))
	for _, s := range p.Hand {
		t, err := tile.Parse(s)
		if err != nil {
			c.Shutdown()
			return
		}
		hand = append(hand, t)
	}
	if !c.srv.Dispatch(c, "hand", hand) {
		c.Shutdown()
	}
}

type discardPayload struct {
	Tile string `json:"tile"`
}

func handleDiscard(c *Conn, raw []byte) {
	var p discardPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Shutdown()
		return
	}
	t, err := tile.Parse(p.Tile)
	if err != nil {
		c.Shutdown()
		return
	}
	if !c.srv.Dispatch(c, "discard", t) {
		c.Shutdown()
	}
}
