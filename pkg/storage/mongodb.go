package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBClient connects and pings, so an unreachable server fails at start-up
func MongoDBClient(ctx context.Context, address string, port int) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%d/?directConnection=true", address, port)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb cannot be reached after connecting: %w", err)
	}
	return client, nil
}
