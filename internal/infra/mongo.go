package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

const mongoConnectTimeout = 10 * time.Second

type mongoDialer func(ctx context.Context, uri string) (*mongo.Client, error)

// MongoConnector owns the process-wide Mongo client. The first Client call
// connects; concurrent first callers share that attempt. A failed attempt is
// not cached, so the next caller retries.
type MongoConnector struct {
	uri  string
	dial mongoDialer

	mu     sync.RWMutex
	client *mongo.Client
	group  singleflight.Group
}

// NewMongoConnector prepares a lazy connector for uri.
func NewMongoConnector(uri string) *MongoConnector {
	return &MongoConnector{uri: uri, dial: dialMongo}
}

func dialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Client returns the shared client, connecting on first use.
func (m *MongoConnector) Client(ctx context.Context) (*mongo.Client, error) {
	if client := m.current(); client != nil {
		return client, nil
	}
	if m.uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	v, err, _ := m.group.Do("connect", func() (any, error) {
		if client := m.current(); client != nil {
			return client, nil
		}
		// The attempt outlives any single caller's cancellation.
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mongoConnectTimeout)
		defer cancel()
		client, err := m.dial(dialCtx, m.uri)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.client = client
		m.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

// Ping checks connectivity, connecting first if needed.
func (m *MongoConnector) Ping(ctx context.Context) error {
	client, err := m.Client(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the shared client if one was established.
func (m *MongoConnector) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *MongoConnector) current() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}
