// Package conn provides the optional MongoDB connection used outside the
// timed benchmark path.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ErrNoURI is returned when Connect is called without a URI.
var ErrNoURI = errors.New("mongo uri is empty")

// Provider is a live handle that can be checked and released.
type Provider interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config selects the server, database and collection.
type Config struct {
	URI            string
	Database       string
	Collection     string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

// Mongo wraps a connected client and the configured collection.
type Mongo struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
	logger     *slog.Logger
}

// Connect creates a client for cfg. The driver connects lazily; call
// Ping to verify the server is reachable.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, ErrNoURI
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetWriteConcern(writeconcern.W1())

	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	db := client.Database(cfg.Database)

	logger.InfoContext(ctx, "mongo client created",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)

	return &Mongo{
		client:     client,
		database:   db,
		collection: db.Collection(cfg.Collection),
		logger:     logger,
	}, nil
}

// Database returns the configured database handle.
func (m *Mongo) Database() *mongo.Database { return m.database }

// Collection returns the configured collection handle.
func (m *Mongo) Collection() *mongo.Collection { return m.collection }

// Ping checks that the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}

	m.logger.DebugContext(ctx, "mongo client disconnected")

	return nil
}
