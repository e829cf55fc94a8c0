package domain

import (
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         *string    `json:"name"`
	Position     *string    `json:"position,omitempty"`
	Avatar       *string    `json:"avatar"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// DisplayName is the name if set, otherwise the email.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
