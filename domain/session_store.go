package domain

import (
	"context"
	"time"
)

// SessionUser is the snapshot kept in a logged-in session. It never carries
// the password hash and may go stale until the next login or profile update.
type SessionUser struct {
	ID        string   `bson:"id" json:"_id"`
	FirstName string   `bson:"firstName" json:"firstName"`
	LastName  string   `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Email     string   `bson:"email" json:"email"`
	UserType  UserType `bson:"userType" json:"userType"`
	City      string   `bson:"city,omitempty" json:"city,omitempty"`
}

type Session struct {
	ID         string       `bson:"_id" json:"id"`
	IsLoggedIn bool         `bson:"isLoggedIn" json:"isLoggedIn"`
	User       *SessionUser `bson:"user,omitempty" json:"user,omitempty"`
	ExpiresAt  time.Time    `bson:"expiresAt" json:"expiresAt"`
}

// Authenticated reports whether the session carries a logged-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.IsLoggedIn && s.User != nil
}

// Role is the authorization subject for the session.
func (s *Session) Role() string {
	if !s.Authenticated() {
		return "anonymous"
	}
	return string(s.User.UserType)
}

func NewSessionUser(user *User) *SessionUser {
	return &SessionUser{
		ID:        user.ID.Hex(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		UserType:  user.UserType,
		City:      user.City,
	}
}

type SessionStore interface {
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Destroy(ctx context.Context, id string) error
	// Regenerate destroys the old id and returns a copy of the session under a new one.
	Regenerate(ctx context.Context, session *Session) (*Session, error)
}
