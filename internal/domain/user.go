// Package domain contains core domain types for the envmon messaging and alerting server.
package domain

import (
	"time"
)

// User is a directory entry. Account management lives outside this service;
// the directory only holds what routing and search need.
type User struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity returns the session identity for the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Handle: u.Handle}
}

// Identity is the stable reference to an authenticated user.
// It is fixed for the lifetime of a connection or request.
type Identity struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

// IsZero reports whether no identity is bound.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// RegisterUserRequest adds a user to the directory.
type RegisterUserRequest struct {
	Handle      string `json:"handle" validate:"required,handle"`
	DisplayName string `json:"display_name" validate:"max=120"`
}
