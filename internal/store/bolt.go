package store

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var roomsBucket = []byte("rooms")

// BoltStore is the default single-node backend: one bbolt file, one
// bucket keyed by room ID.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if absent) the bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(roomsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveRoom(_ context.Context, snap Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(roomsBucket).Put([]byte(snap.ID), MustMarshalJSON(snap))
	})
}

func (s *BoltStore) LoadUnfinishedRooms(_ context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(roomsBucket).ForEach(func(_, v []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			if !snap.Finished && !snap.Aborted {
				out = append(out, snap)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteRoom(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(roomsBucket).Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }
