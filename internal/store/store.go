// Package store persists room snapshots and hands the unfinished ones
// back at startup. The server does not resume those rooms: it rebuilds
// and aborts them (see internal/server.restoreRoom). Two backends are
// provided: an embedded bbolt store for single-node deployments, and
// a MongoDB store for the original teacher's document-store idiom
// (grounded on common/database/mongo.go).
package store

import (
	"context"
	"encoding/json"

	"minefield/internal/game"
)

// Snapshot is the persisted record of one room: identity, keys, the
// game's last known state and the per-seat message journal.
type Snapshot struct {
	ID       string       `json:"id" bson:"_id"`
	Nicks    [2]string    `json:"nicks" bson:"nicks"`
	Keys     [2]string    `json:"keys" bson:"keys"`
	Aborted  bool         `json:"aborted" bson:"aborted"`
	Game     game.State   `json:"game" bson:"game"`
	Finished bool         `json:"finished" bson:"finished"`
	Messages [2][]Message `json:"messages" bson:"messages"`
}

// Message is one journaled game.Event, flattened for storage — the
// event's Data map round-trips through JSON either way, so this
// exists only to keep bson/json field names stable independent of
// game.Event's own tags.
type Message struct {
	Type game.EventType `json:"type" bson:"type"`
	Data map[string]any `json:"data" bson:"data"`
}

// Store is the persistence contract the server depends on (§A.4).
// Both backends below implement it.
type Store interface {
	SaveRoom(ctx context.Context, snap Snapshot) error
	LoadUnfinishedRooms(ctx context.Context) ([]Snapshot, error)
	DeleteRoom(ctx context.Context, id string) error
	Close() error
}

// MarshalEvents turns one seat's journaled events into storable
// Messages — called by the server when building a room's Snapshot,
// ahead of either backend's SaveRoom.
func MarshalEvents(events []game.Event) []Message {
	out := make([]Message, len(events))
	for i, e := range events {
		out[i] = Message{Type: e.Type, Data: e.Data}
	}
	return out
}

// MustMarshalJSON is a small helper the bbolt backend uses to encode
// a Snapshot into its value bytes.
func MustMarshalJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
