package db

import (
	"context"
	"time"

	"github.com/eventhub/apiserver/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// Collection names.
	UsersCollection  = "users"
	EventsCollection = "events"
)

// Conn wraps the Mongo client and the application database handle.
type Conn struct {
	client   *mongo.Client
	database *mongo.Database
}

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, cfg config.Config) (*Conn, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, err
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Conn{
		client:   client,
		database: client.Database(cfg.Mongo.Database),
	}, nil
}

// Database returns the application database handle.
func (c *Conn) Database() *mongo.Database {
	return c.database
}

// Close disconnects the underlying client.
func (c *Conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the collection indexes the application relies on:
// unique email and username on users; dateTime, mode, eventType, and a text
// index over eventName+description on events.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := database.Collection(UsersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "dateTime", Value: 1}}},
		{Keys: bson.D{{Key: "mode", Value: 1}}},
		{Keys: bson.D{{Key: "eventType", Value: 1}}},
		{Keys: bson.D{{Key: "eventName", Value: "text"}, {Key: "description", Value: "text"}}},
	}
	if _, err := database.Collection(EventsCollection).Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return err
	}

	return nil
}
