package server

import "minefield/internal/room"

// seatAdapter bridges a transport Connection into room.Seat, wrapping
// replayed events the way original_source/server-py/room.py's
// replay_messages does: a replayed entry arrives as a "replay"
// envelope carrying the original type, so a reconnecting client can
// tell backlog from live traffic.
type seatAdapter struct {
	conn Connection
}

func newSeatAdapter(conn Connection) *seatAdapter {
	return &seatAdapter{conn: conn}
}

func (a *seatAdapter) Send(entry room.Entry) {
	if entry.Replay {
		inner := map[string]any{"type": string(entry.Event.Type)}
		for k, v := range entry.Event.Data {
			inner[k] = v
		}
		a.conn.Send("replay", map[string]any{"msg": inner})
		return
	}
	a.conn.Send(string(entry.Event.Type), entry.Event.Data)
}

func (a *seatAdapter) Shutdown() {
	a.conn.Shutdown()
}
