// Copyright 2018 The Nakama Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mongostore implements leaderboard.LogStore against MongoDB,
// grounded on the bson.M filter/update idiom of
// _examples/other_examples/405d6faa_eveonline-it-go-falcon__internal-zkillboard-services-aggregator.go.go
// and on the collection/document shape named in
// original_source/src/database/models/leaderboard_entry.rs (collection
// lb_entry, fields playerId/timestamp/scoreType/value).
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// CollectionName is the fixed Mongo collection backing every score type's
// log (spec.md §6.2).
const CollectionName = "lb_entry"

// document is the wire shape of one lb_entry row.
type document struct {
	PlayerID  string `bson:"playerId"`
	Timestamp int64  `bson:"timestamp"` // 64-bit millisecond epoch, per spec.md §6.2
	ScoreType string `bson:"scoreType"`
	Value     uint32 `bson:"value"`
}

// Store is a leaderboard.LogStore backed by a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

// Connect dials uri and returns a Store bound to dbName's lb_entry
// collection.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return New(client.Database(dbName).Collection(CollectionName)), nil
}

// New wraps an already-constructed collection handle.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

var _ leaderboard.LogStore = (*Store)(nil)

func (s *Store) Insert(ctx context.Context, entry leaderboard.Entry) error {
	_, err := s.coll.InsertOne(ctx, document{
		PlayerID:  entry.PlayerID,
		Timestamp: entry.Timestamp.UnixMilli(),
		ScoreType: entry.ScoreType.String(),
		Value:     entry.Value,
	})
	return err
}

func (s *Store) DeleteRange(ctx context.Context, r leaderboard.EntryRange) error {
	_, err := s.coll.DeleteMany(ctx, rangeFilter(r))
	return err
}

func (s *Store) FindRange(ctx context.Context, r leaderboard.EntryRange) (<-chan leaderboard.Entry, <-chan error) {
	out := make(chan leaderboard.Entry, leaderboard.LogStoreBatchSize)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		opts := options.Find().SetBatchSize(leaderboard.LogStoreBatchSize)
		cur, err := s.coll.Find(ctx, rangeFilter(r), opts)
		if err != nil {
			errc <- fmt.Errorf("mongostore: find: %w", err)
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc document
			if err := cur.Decode(&doc); err != nil {
				errc <- fmt.Errorf("mongostore: decode: %w", err)
				return
			}
			st, err := leaderboard.ParseScoreType(doc.ScoreType)
			if err != nil {
				errc <- fmt.Errorf("mongostore: decode score type: %w", err)
				return
			}
			select {
			case out <- leaderboard.Entry{
				PlayerID:  doc.PlayerID,
				ScoreType: st,
				Timestamp: msToTime(doc.Timestamp),
				Value:     doc.Value,
			}:
			case <-ctx.Done():
				return
			}
		}
		if err := cur.Err(); err != nil {
			errc <- fmt.Errorf("mongostore: cursor: %w", err)
		}
	}()

	return out, errc
}

func rangeFilter(r leaderboard.EntryRange) bson.M {
	filter := bson.M{"scoreType": r.ScoreType.String()}
	if r.PlayerID != "" {
		filter["playerId"] = r.PlayerID
	}
	ts := bson.M{"$lt": r.End.UnixMilli()}
	if r.HasStart {
		ts["$gte"] = r.Start.UnixMilli()
	}
	filter["timestamp"] = ts
	return filter
}
