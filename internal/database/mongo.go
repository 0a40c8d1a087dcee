package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across the services.
const (
	ColUsers         = "users"
	ColSessions      = "sessions"
	ColProjects      = "projects"
	ColTasks         = "tasks"
	ColMilestones    = "milestones"
	ColMessages      = "messages"
	ColNotifications = "notifications"
	ColRisks         = "risks"
	ColEvents        = "calendar_events"
	ColOutbox        = "outbox"
)

// DB wraps the Mongo client and database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a Mongo connection and verifies it with a ping.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &DB{client: client, db: client.Database(dbName)}, nil
}

// Collection returns a handle to the named collection.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Database returns the underlying database handle.
func (d *DB) Database() *mongo.Database {
	return d.db
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the query paths rely on (idempotent).
func (d *DB) EnsureIndexes(ctx context.Context) error {
	type spec struct {
		col    string
		models []mongo.IndexModel
	}
	unique := options.Index().SetUnique(true)
	specs := []spec{
		{ColUsers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		}},
		{ColSessions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
		}},
		{ColProjects, []mongo.IndexModel{
			{Keys: bson.D{{Key: "clientId", Value: 1}}},
			{Keys: bson.D{{Key: "managers", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{ColTasks, []mongo.IndexModel{
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
			{Keys: bson.D{{Key: "assigneeId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{ColMilestones, []mongo.IndexModel{
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
		}},
		{ColMessages, []mongo.IndexModel{
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "recipientId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{ColNotifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{ColRisks, []mongo.IndexModel{
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
		}},
		{ColEvents, []mongo.IndexModel{
			{Keys: bson.D{{Key: "startsAt", Value: 1}}},
		}},
		{ColOutbox, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		}},
	}
	for _, s := range specs {
		if _, err := d.db.Collection(s.col).Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", s.col, err)
		}
	}
	return nil
}
