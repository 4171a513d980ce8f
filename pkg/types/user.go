package types

import (
	"time"

	"github.com/mesh-intelligence/codemarshall/pkg/validate"
)

// User owns snippets. ID and CreatedAt are assigned by the store.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser returns an unsaved user, or a validation error.
func NewUser(username string) (*User, error) {
	u := &User{}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

// SetUsername replaces the username if it passes validation.
func (u *User) SetUsername(username string) error {
	if err := validate.Username(username); err != nil {
		return err
	}
	u.Username = username
	return nil
}
