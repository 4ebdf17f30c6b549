// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthreport/internal/domain"
	"healthreport/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingCredentials indicates an empty username or password.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrUsernameTaken indicates a registration for an existing username.
	ErrUsernameTaken = fmt.Errorf("username %w", domain.ErrConflict)
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Cookie    string
	ExpiresAt time.Time
	User      *domain.User
}

// SessionStatus describes the principal behind a cookie, if any.
type SessionStatus struct {
	LoggedIn bool    `json:"logged_in"`
	UserID   string  `json:"user_id,omitempty"`
	Username *string `json:"username,omitempty"`
}

// AuthService handles accounts, authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	signer   *SessionSigner
	ttl      time.Duration
	log      *logger.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, signer *SessionSigner, ttl time.Duration, log *logger.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		signer:   signer,
		ttl:      ttl,
		log:      log,
	}
}

// Register creates a local account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Kind:         domain.UserKindLocal,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return &u, nil
}

// Login authenticates a local user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent, ip string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil || user.Kind != domain.UserKindLocal {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, userAgent, ip)
}

// UpsertFederated merges a federated profile by Google id and returns the
// stored record.
func (s *AuthService) UpsertFederated(ctx context.Context, p domain.FederatedProfile) (*domain.User, error) {
	if p.GoogleID == "" {
		return nil, fmt.Errorf("%w: google id is required", domain.ErrInvalidInput)
	}
	if err := s.users.UpsertFederated(ctx, p, time.Now().UTC()); err != nil {
		return nil, err
	}
	user, err := s.users.GetByGoogleID(ctx, p.GoogleID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// LoginFederated upserts the federated user and creates a session for it.
func (s *AuthService) LoginFederated(ctx context.Context, p domain.FederatedProfile, userAgent, ip string) (*LoginResult, error) {
	user, err := s.UpsertFederated(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, userAgent, ip)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User, userAgent, ip string) (*LoginResult, error) {
	now := time.Now().UTC()
	session := domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	cookie, err := s.signer.Sign(session.Token, user.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Cookie: cookie, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout invalidates the session behind a cookie. Unknown or malformed
// cookies are ignored.
func (s *AuthService) Logout(ctx context.Context, cookie string) error {
	token, _, err := s.signer.Parse(cookie)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks that a cookie names a live session created from the
// same user agent and returns its user.
func (s *AuthService) ValidateSession(ctx context.Context, cookie, userAgent string) (*domain.User, error) {
	token, _, err := s.signer.Parse(cookie)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if session.UserAgent != userAgent {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Status reports whether cookie belongs to a live session.
func (s *AuthService) Status(ctx context.Context, cookie, userAgent string) SessionStatus {
	if cookie == "" {
		return SessionStatus{}
	}
	user, err := s.ValidateSession(ctx, cookie, userAgent)
	if err != nil {
		return SessionStatus{}
	}
	name := user.Name()
	return SessionStatus{LoggedIn: true, UserID: user.ID, Username: &name}
}

// PurgeExpiredSessions removes expired sessions from the store.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}
