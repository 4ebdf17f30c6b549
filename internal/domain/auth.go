// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// UserKind tags which identity model a User belongs to.
type UserKind string

const (
	// UserKindLocal is a username/password account.
	UserKindLocal UserKind = "local"
	// UserKindFederated is an account created by a federated (Google) sign-in.
	UserKindFederated UserKind = "federated"
)

// User represents an authenticated user in the system. Local users carry
// Username and PasswordHash; federated users carry the Google fields.
type User struct {
	ID           string    `json:"id"`
	Kind         UserKind  `json:"kind"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"google_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	PictureURL   string    `json:"profile_picture_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Name returns the label shown for the user in session status.
func (u *User) Name() string {
	if u.Kind == UserKindFederated {
		if u.DisplayName != "" {
			return u.DisplayName
		}
		return u.Email
	}
	return u.Username
}

// FederatedProfile is the identity asserted by the federated provider.
type FederatedProfile struct {
	GoogleID    string
	Email       string
	DisplayName string
	PictureURL  string
}

// Session represents an active user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository defines the port for user persistence operations. Lookups
// return (nil, nil) when no user matches.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, u User) error
	// UpsertFederated updates the mutable profile fields of the user with
	// the same GoogleID, or inserts a new federated user with a fresh id.
	UpsertFederated(ctx context.Context, p FederatedProfile, now time.Time) error
}

// SessionRepository defines the port for session persistence operations.
// GetByToken returns (nil, nil) for unknown tokens.
type SessionRepository interface {
	Create(ctx context.Context, s Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
