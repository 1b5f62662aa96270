package repositories

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// Collection is the gorm implementation of store.Collection. The table is
// derived from T by gorm's naming strategy.
//
// Exact conditions run in SQL; case-folded search is applied in Go to the
// rows SQL returns, so it folds the full Unicode range on every driver.
type Collection[T any] struct {
	db *gorm.DB

	schemaOnce sync.Once
	schema     *schema.Schema
	schemaErr  error
}

func NewCollection[T any](db *gorm.DB) *Collection[T] {
	return &Collection[T]{db: db}
}

// NewCollections wires the four entity tables of db.
func NewCollections(db *gorm.DB) *store.Collections {
	return &store.Collections{
		Tasks:      NewCollection[models.Task](db),
		Categories: NewCollection[models.Category](db),
		Notes:      NewCollection[models.Note](db),
		Users:      NewCollection[models.User](db),
	}
}

func (c *Collection[T]) Insert(ctx context.Context, doc *T) error {
	if err := c.db.WithContext(ctx).Create(doc).Error; err != nil {
		return translate("insert", err)
	}
	return nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var doc T
	err := c.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Take(&doc).Error
	if err != nil {
		return nil, translate("find by id", err)
	}
	return &doc, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, filter store.Filter) (*T, error) {
	exact, folded := filter.Split()
	if len(folded) > 0 {
		docs, err := c.Find(ctx, store.Query{Filter: filter})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, store.ErrNotFound
		}
		return &docs[0], nil
	}

	var doc T
	if err := applyFilter(c.db.WithContext(ctx), exact).Take(&doc).Error; err != nil {
		return nil, translate("find one", err)
	}
	return &doc, nil
}

func (c *Collection[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	exact, folded := q.Filter.Split()

	tx := applyFilter(c.db.WithContext(ctx).Model(new(T)), exact)
	for _, s := range q.Sort {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
	}

	docs := make([]T, 0)
	if err := tx.Find(&docs).Error; err != nil {
		return nil, translate("find", err)
	}
	if len(folded) == 0 {
		return docs, nil
	}
	return c.keepMatching(ctx, docs, folded)
}

// Update writes every column of doc, zero values included, to the row
// identified by id.
func (c *Collection[T]) Update(ctx context.Context, id uuid.UUID, doc *T) error {
	res := c.db.WithContext(ctx).
		Model(doc).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Select("*").
		Updates(doc)
	if res.Error != nil {
		return translate("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) (*T, error) {
	doc, err := c.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res := c.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Delete(new(T))
	if res.Error != nil {
		return nil, translate("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter store.Filter) (int64, error) {
	exact, folded := filter.Split()
	if len(folded) > 0 {
		docs, err := c.Find(ctx, store.Query{Filter: filter})
		if err != nil {
			return 0, err
		}
		return int64(len(docs)), nil
	}

	var n int64
	if err := applyFilter(c.db.WithContext(ctx).Model(new(T)), exact).Count(&n).Error; err != nil {
		return 0, translate("count", err)
	}
	return n, nil
}

func applyFilter(tx *gorm.DB, exact store.Filter) *gorm.DB {
	for _, cond := range exact {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: cond.Field}, Value: cond.Value})
	}
	return tx
}

func (c *Collection[T]) modelSchema() (*schema.Schema, error) {
	c.schemaOnce.Do(func() {
		stmt := &gorm.Statement{DB: c.db}
		c.schemaErr = stmt.Parse(new(T))
		c.schema = stmt.Schema
	})
	return c.schema, c.schemaErr
}

// keepMatching drops the documents whose fields do not contain every folded
// search term. Order is preserved.
func (c *Collection[T]) keepMatching(ctx context.Context, docs []T, folded store.Filter) ([]T, error) {
	sch, err := c.modelSchema()
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	fields := make([]*schema.Field, len(folded))
	for i, cond := range folded {
		if fields[i] = sch.LookUpField(cond.Field); fields[i] == nil {
			return nil, fmt.Errorf("find: unknown field %q on %s", cond.Field, sch.Table)
		}
	}

	out := docs[:0]
	for i := range docs {
		rv := reflect.ValueOf(&docs[i]).Elem()
		match := true
		for j, cond := range folded {
			v, _ := fields[j].ValueOf(ctx, rv)
			if !store.FoldContains(fmt.Sprint(v), fmt.Sprint(cond.Value)) {
				match = false
				break
			}
		}
		if match {
			out = append(out, docs[i])
		}
	}
	return out, nil
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateKey)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
