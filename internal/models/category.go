package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	DefaultCategoryColor = "#3498db"
	DefaultCategoryIcon  = "folder"
)

// Category names are not unique.
type Category struct {
	ID    uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" bson:"_id"`
	Name  string    `json:"name" gorm:"not null;index" bson:"name" binding:"required"`
	Color string    `json:"color" bson:"color"`
	Icon  string    `json:"icon" bson:"icon"`
}

type CategoryInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

// NewCategory carries no timestamps; now is accepted for symmetry with the
// other constructors and ignored.
func NewCategory(in CategoryInput, _ time.Time) (*Category, error) {
	category := &Category{
		ID:    uuid.Must(uuid.NewV4()),
		Name:  stringOr(in.Name, ""),
		Color: stringOr(in.Color, DefaultCategoryColor),
		Icon:  stringOr(in.Icon, DefaultCategoryIcon),
	}
	if err := validate("Category", category); err != nil {
		return nil, err
	}
	return category, nil
}
