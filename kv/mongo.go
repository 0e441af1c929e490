package kv

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoCollection = "kv"

// Mongo stores each key as one document of the "kv" collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

func NewMongo(ctx context.Context, dsn, database string) (*Mongo, error) {
	if dsn == "" {
		return nil, errors.New("no MongoDB DSN supplied")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(mongoCollection),
	}, nil
}

func (m *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	var doc mongoDocument
	err := m.collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError("find "+key, err)
	}
	return doc.Value, true, nil
}

func (m *Mongo) Set(ctx context.Context, key, value string) error {
	_, err := m.collection.ReplaceOne(
		ctx,
		bson.D{{Key: "_id", Value: key}},
		&mongoDocument{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return ioError("replace "+key, err)
	}
	return nil
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
