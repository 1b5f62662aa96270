package mongorepo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// Store owns the mongo client and the entity collections of one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logrus.Logger
}

// Open connects to uri, pings the primary and ensures the unique email index.
func Open(ctx context.Context, uri, database string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(newRegistry()).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), log: log}
	if err := s.Health(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.WithField("database", database).Info("mongo store initialized")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(store.UsersName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}
	return nil
}

func (s *Store) Collections() *store.Collections {
	return &store.Collections{
		Tasks:      NewCollection[models.Task](s.db.Collection(store.TasksName)),
		Categories: NewCollection[models.Category](s.db.Collection(store.CategoriesName)),
		Notes:      NewCollection[models.Note](s.db.Collection(store.NotesName)),
		Users:      NewCollection[models.User](s.db.Collection(store.UsersName)),
	}
}

func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
