// Package mongorepo implements the collection store on MongoDB.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/internal/store"
)

type Collection[T any] struct {
	coll *mongo.Collection
}

func NewCollection[T any](coll *mongo.Collection) *Collection[T] {
	return &Collection[T]{coll: coll}
}

func (c *Collection[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return translate("insert", err)
	}
	return nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return c.FindOne(ctx, store.Filter{store.Eq("_id", id)})
}

func (c *Collection[T]) FindOne(ctx context.Context, filter store.Filter) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, toBSON(filter)).Decode(&doc); err != nil {
		return nil, translate("find one", err)
	}
	return &doc, nil
}

func (c *Collection[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	opts := options.Find()
	if len(q.Sort) > 0 {
		sort := bson.D{}
		for _, s := range q.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		opts.SetSort(sort)
	}

	cur, err := c.coll.Find(ctx, toBSON(q.Filter), opts)
	if err != nil {
		return nil, translate("find", err)
	}
	defer cur.Close(ctx)

	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("find", err)
	}
	return docs, nil
}

func (c *Collection[T]) Update(ctx context.Context, id uuid.UUID, doc *T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return translate("update", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) (*T, error) {
	var doc T
	if err := c.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return nil, translate("delete", err)
	}
	return &doc, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, translate("count", err)
	}
	return n, nil
}

func toBSON(filter store.Filter) bson.D {
	out := bson.D{}
	for _, cond := range filter {
		switch cond.Op {
		case store.OpContainsFold:
			out = append(out, bson.E{Key: cond.Field, Value: primitive.Regex{
				Pattern: regexp.QuoteMeta(fmt.Sprint(cond.Value)),
				Options: "i",
			}})
		default:
			out = append(out, bson.E{Key: cond.Field, Value: cond.Value})
		}
	}
	return out
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateKey)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
