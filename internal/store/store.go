// Package store defines the per-collection persistence contract shared by the
// SQL and document backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrMalformedID  = errors.New("malformed identifier")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Collection is one entity collection. Every method is a single-document
// operation except Find and Count.
type Collection[T any] interface {
	Insert(ctx context.Context, doc *T) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	// Find never returns a nil slice.
	Find(ctx context.Context, q Query) ([]T, error)
	// Update replaces the stored document carrying the same id.
	Update(ctx context.Context, id uuid.UUID, doc *T) error
	// Delete removes the document and returns what was stored.
	Delete(ctx context.Context, id uuid.UUID) (*T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// ParseID parses a textual identifier. Failures wrap ErrMalformedID.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMalformedID, s)
	}
	return id, nil
}
