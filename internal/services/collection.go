package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"taskboard/internal/events"
	"taskboard/internal/logging"
	"taskboard/internal/store"
)

// Clock returns the time stamped on created and updated documents.
type Clock func() time.Time

// systemClock keeps millisecond precision, the finest MongoDB stores, so a
// timestamp reads back exactly as it was returned.
func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// serverKeys are assigned by the service; update bodies cannot set them.
var serverKeys = []string{"id", "createdAt", "updatedAt"}

// Options are shared by every service constructor. The zero value logs to
// logging.Logger, uses the system clock and publishes nothing.
type Options struct {
	Bus    *events.Bus
	Logger *logrus.Logger
	Clock  Clock
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.Logger
	}
	if o.Clock == nil {
		o.Clock = systemClock
	}
	return o
}

// collection holds the CRUD steps every entity service shares.
type collection[T any] struct {
	entity string
	name   string
	store  store.Collection[T]
	bus    *events.Bus
	log    *logrus.Logger
	now    Clock
}

func newCollection[T any](entity, name string, s store.Collection[T], opts Options) collection[T] {
	opts = opts.withDefaults()
	return collection[T]{
		entity: entity,
		name:   name,
		store:  s,
		bus:    opts.Bus,
		log:    opts.Logger,
		now:    opts.Clock,
	}
}

func (c *collection[T]) logger(id uuid.UUID) *logrus.Entry {
	return c.log.WithFields(logrus.Fields{"collection": c.name, "id": id.String()})
}

func (c *collection[T]) fail(op string, err error) error {
	c.bus.Publish(events.Failed{Collection: c.name, Op: op, Err: err})
	return err
}

func (c *collection[T]) list(ctx context.Context, q store.Query) ([]T, error) {
	docs, err := c.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return docs, nil
}

func (c *collection[T]) get(ctx context.Context, rawID string) (uuid.UUID, *T, error) {
	id, err := store.ParseID(rawID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	doc, err := c.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return id, nil, &NotFoundError{Entity: c.entity}
	}
	if err != nil {
		return id, nil, fmt.Errorf("get %s %s: %w", strings.ToLower(c.entity), id, err)
	}
	return id, doc, nil
}

func (c *collection[T]) insert(ctx context.Context, id uuid.UUID, doc *T) error {
	if err := c.store.Insert(ctx, doc); err != nil {
		return c.fail("create", fmt.Errorf("create %s: %w", strings.ToLower(c.entity), err))
	}
	c.logger(id).Infof("%s created", strings.ToLower(c.entity))
	c.bus.Publish(events.Created{Collection: c.name, ID: id, Document: doc})
	return nil
}

// merge decodes changes over the stored document, lets restore re-apply the
// fields callers may not change, and writes the result back. No schema
// validation runs on this path.
func (c *collection[T]) merge(ctx context.Context, rawID string, changes []byte, restore func(merged, stored *T)) (*T, error) {
	id, stored, err := c.get(ctx, rawID)
	if err != nil {
		return nil, err
	}

	merged := *stored
	if len(changes) > 0 {
		changes, err = dropKeys(changes, serverKeys...)
		if err == nil {
			err = json.Unmarshal(changes, &merged)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s update: %w", strings.ToLower(c.entity), err)
		}
	}
	restore(&merged, stored)

	if err := c.store.Update(ctx, id, &merged); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Entity: c.entity}
		}
		return nil, c.fail("update", fmt.Errorf("update %s %s: %w", strings.ToLower(c.entity), id, err))
	}

	c.logger(id).Infof("%s updated", strings.ToLower(c.entity))
	c.bus.Publish(events.Updated{Collection: c.name, ID: id, Document: &merged})
	return &merged, nil
}

// touch returns the next updatedAt for a document last stamped at prev. It
// is strictly after prev even when the clock has not moved past it.
func (c *collection[T]) touch(prev time.Time) time.Time {
	t := c.now()
	if !t.After(prev) {
		t = prev.Add(time.Millisecond)
	}
	return t
}

func dropKeys(doc []byte, keys ...string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(fields, k)
	}
	return json.Marshal(fields)
}

func (c *collection[T]) remove(ctx context.Context, rawID string) error {
	id, err := store.ParseID(rawID)
	if err != nil {
		return err
	}

	if _, err := c.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: c.entity}
		}
		return c.fail("delete", fmt.Errorf("delete %s %s: %w", strings.ToLower(c.entity), id, err))
	}

	c.logger(id).Infof("%s deleted", strings.ToLower(c.entity))
	c.bus.Publish(events.Deleted{Collection: c.name, ID: id})
	return nil
}

func (c *collection[T]) count(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := c.store.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}
