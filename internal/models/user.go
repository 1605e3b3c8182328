package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account row. Anonymous visitors get a row keyed by a cookie
// id; authenticated visitors are keyed by the proxy-provided email.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email,omitempty"`
	AnonID    string    `json:"-"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAnonymous reports whether the user was never identified by email.
func (u *User) IsAnonymous() bool {
	return u.Email == ""
}

// DisplayName falls back from the chosen name to the email local part to
// a generic guest label, matching what the roster shows.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			return u.Email[:at]
		}
		return u.Email
	}
	return "Guest"
}

// SessionUser is a roster entry for one tablet: a user joined with their
// presence heartbeat and effective permission. It is computed per request
// and never persisted as its own entity.
type SessionUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"isOnline"`
	CanEdit  bool   `json:"canEdit"`
	IsOwner  bool   `json:"isOwner"`
}
