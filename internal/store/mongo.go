package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"minefield/common/config"
)

// MongoStore is the alternative backend (§A.4), grounded on the
// teacher's common/database MongoManager — a single client, pinged at
// startup, with connection-pool limits taken from config.
type MongoStore struct {
	cli  *mongo.Client
	coll *mongo.Collection
}

// OpenMongo connects using the given config and returns a ready store.
func OpenMongo(ctx context.Context, conf config.MongoConf) (*MongoStore, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(conf.Url)
	if conf.MinPoolSize > 0 {
		opts.SetMinPoolSize(uint64(conf.MinPoolSize))
	}
	if conf.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(conf.MaxPoolSize))
	}
	if conf.Username != "" && conf.Password != "" {
		opts.SetAuth(options.Credential{Username: conf.Username, Password: conf.Password})
	}

	cli, err := mongo.Connect(dialCtx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(dialCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	return &MongoStore{
		cli:  cli,
		coll: cli.Database(conf.Db).Collection("rooms"),
	}, nil
}

func (s *MongoStore) SaveRoom(ctx context.Context, snap Snapshot) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": snap.ID}, snap, opts)
	return err
}

func (s *MongoStore) LoadUnfinishedRooms(ctx context.Context) ([]Snapshot, error) {
	cur, err := s.coll.Find(ctx, bson.M{"finished": false, "aborted": false})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Snapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) Close() error {
	return s.cli.Disconnect(context.Background())
}
