package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"healthreport/internal/domain"
)

var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

const userColumns = "id, kind, username, password_hash, google_id, email, display_name, profile_picture_url, created_at, updated_at"

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func (d *DB) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		u                                            domain.User
		kind                                         string
		username, hash, googleID, email, name, photo sql.NullString
	)
	err := d.sql.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg).
		Scan(&u.ID, &kind, &username, &hash, &googleID, &email, &name, &photo, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Kind = domain.UserKind(kind)
	u.Username = username.String
	u.PasswordHash = hash.String
	u.GoogleID = googleID.String
	u.Email = email.String
	u.DisplayName = name.String
	u.PictureURL = photo.String
	return &u, nil
}

// GetByUsername retrieves a local user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.getUser(ctx, "kind = 'local' AND username = $1", username)
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return d.getUser(ctx, "id = $1", id)
}

// GetByGoogleID retrieves a federated user by Google subject.
func (d *DB) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return d.getUser(ctx, "kind = 'federated' AND google_id = $1", googleID)
}

// Create creates a new local user.
func (d *DB) Create(ctx context.Context, u domain.User) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (id, kind, username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID, string(u.Kind), u.Username, u.PasswordHash, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

// UpsertFederated inserts a federated user or refreshes its profile fields.
func (d *DB) UpsertFederated(ctx context.Context, p domain.FederatedProfile, now time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO users (id, kind, google_id, email, display_name, profile_picture_url, created_at, updated_at)
		VALUES ($1, 'federated', $2, $3, $4, $5, $6, $6)
		ON CONFLICT (google_id) WHERE kind = 'federated'
		DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name,
			profile_picture_url = EXCLUDED.profile_picture_url, updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), p.GoogleID, p.Email, p.DisplayName, p.PictureURL, now.UTC(),
	)
	return err
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, user_agent, ip, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		s.Token, s.UserID, s.UserAgent, s.IP, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now().UTC())
	return err
}
