package store

import (
	"context"
	"errors"
	"fmt"

	"nework/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpenMongo keeps one collection per table in database
func OpenMongo(ctx context.Context, client *mongo.Client, database string, opts Options) (*Store, error) {
	db := client.Database(database)
	for _, name := range []string{POSTS, EVENTS, JOBS, USERS} {
		index := mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}}
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, index); err != nil {
			return nil, fmt.Errorf("error creating owner index on %s: %w", name, err)
		}
	}
	return &Store{
		Posts:  newTable[model.Post](POSTS, &mongoBackend[model.Post]{collection: db.Collection(POSTS)}, opts),
		Events: newTable[model.Event](EVENTS, &mongoBackend[model.Event]{collection: db.Collection(EVENTS)}, opts),
		Jobs:   newTable[model.Job](JOBS, &mongoBackend[model.Job]{collection: db.Collection(JOBS)}, opts),
		Users:  newTable[model.User](USERS, &mongoBackend[model.User]{collection: db.Collection(USERS)}, opts),
	}, nil
}

type document[T Row] struct {
	ID      int64 `bson:"_id"`
	OwnerID int64 `bson:"owner_id"`
	Row     T     `bson:"row"`
}

type mongoBackend[T Row] struct {
	collection *mongo.Collection
}

func scopeFilter(scope Scope) bson.D {
	if scope.Owner == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "owner_id", Value: scope.Owner}}
}

func (b *mongoBackend[T]) upsert(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(rows))
	for _, r := range rows {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: r.Key()}}).
			SetReplacement(document[T]{ID: r.Key(), OwnerID: r.Owner(), Row: r}).
			SetUpsert(true))
	}
	_, err := b.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (b *mongoBackend[T]) sync(ctx context.Context, scope Scope, rows []T) ([]int64, error) {
	keep := make(map[int64]bool, len(rows))
	for _, r := range rows {
		keep[r.Key()] = true
	}
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}})
	cur, err := b.collection.Find(ctx, scopeFilter(scope), opts)
	if err != nil {
		return nil, err
	}
	var present []struct {
		ID int64 `bson:"_id"`
	}
	if err := cur.All(ctx, &present); err != nil {
		return nil, err
	}
	var evicted []int64
	for _, p := range present {
		if !keep[p.ID] {
			evicted = append(evicted, p.ID)
		}
	}
	if len(evicted) > 0 {
		filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: evicted}}}}
		if _, err := b.collection.DeleteMany(ctx, filter); err != nil {
			return nil, err
		}
	}
	return evicted, b.upsert(ctx, rows)
}

func (b *mongoBackend[T]) remove(ctx context.Context, id int64) error {
	_, err := b.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (b *mongoBackend[T]) get(ctx context.Context, id int64) (T, error) {
	var doc document[T]
	err := b.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc.Row, fmt.Errorf("%s %d: %w", b.collection.Name(), id, ErrNotFound)
	}
	return doc.Row, err
}

func (b *mongoBackend[T]) list(ctx context.Context, scope Scope) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := b.collection.Find(ctx, scopeFilter(scope), opts)
	if err != nil {
		return nil, err
	}
	var docs []document[T]
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]T, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, d.Row)
	}
	return rows, nil
}
