package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const DefaultTheme = "light"

// User.Password is kept in plain text; the HTTP layer never serializes it.
type User struct {
	ID        uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid" bson:"_id"`
	Username  string       `json:"username" gorm:"not null" bson:"username" binding:"required"`
	Email     string       `json:"email" gorm:"not null;uniqueIndex" bson:"email" binding:"required"`
	Password  string       `json:"password" gorm:"not null" bson:"password" binding:"required"`
	Avatar    *string      `json:"avatar" bson:"avatar"`
	Settings  UserSettings `json:"settings" gorm:"embedded;embeddedPrefix:settings_" bson:"settings"`
	CreatedAt time.Time    `json:"createdAt" gorm:"index;autoCreateTime:false" bson:"created_at"`
}

type UserSettings struct {
	Theme         string `json:"theme" bson:"theme"`
	Notifications bool   `json:"notifications" bson:"notifications"`
}

type UserInput struct {
	Username *string            `json:"username"`
	Email    *string            `json:"email"`
	Password *string            `json:"password"`
	Avatar   *string            `json:"avatar"`
	Settings *UserSettingsInput `json:"settings"`
}

type UserSettingsInput struct {
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
}

func NewUser(in UserInput, now time.Time) (*User, error) {
	user := &User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: stringOr(in.Username, ""),
		Email:    stringOr(in.Email, ""),
		Password: stringOr(in.Password, ""),
		Avatar:   in.Avatar,
		Settings: UserSettings{
			Theme:         DefaultTheme,
			Notifications: true,
		},
		CreatedAt: now,
	}
	if s := in.Settings; s != nil {
		user.Settings.Theme = stringOr(s.Theme, DefaultTheme)
		if s.Notifications != nil {
			user.Settings.Notifications = *s.Notifications
		}
	}
	if err := validate("User", user); err != nil {
		return nil, err
	}
	return user, nil
}
