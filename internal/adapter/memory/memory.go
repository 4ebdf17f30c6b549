// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"healthreport/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu          sync.Mutex
	activities  []domain.Activity
	users       []*domain.User
	reflections []domain.WeeklyReflection
	sessions    map[string]*domain.Session
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.ActivityRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.ReflectionRepository = (*DB)(nil)
var _ domain.LoadRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- ActivityRepository ---

// InsertActivity stores a new activity.
func (db *DB) InsertActivity(ctx context.Context, a domain.Activity) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.activities = append(db.activities, a)
	return nil
}

// ListActivities returns the user's activities newest start time first.
func (db *DB) ListActivities(ctx context.Context, userID string, r domain.ActivityRange) ([]domain.Activity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := []domain.Activity{}
	for _, a := range db.activities {
		if a.UserID != userID {
			continue
		}
		if r.Start != nil && a.StartTime.Before(*r.Start) {
			continue
		}
		if r.End != nil && a.EndTime.After(*r.End) {
			continue
		}
		result = append(result, a)
	}

	slices.SortStableFunc(result, func(x, y domain.Activity) int {
		return y.StartTime.Compare(x.StartTime)
	})
	return result, nil
}

// GetActivity returns one activity, or nil when missing or owned by someone else.
func (db *DB) GetActivity(ctx context.Context, id, userID string) (*domain.Activity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.activities {
		if a.ID == id && a.UserID == userID {
			ret := a
			return &ret, nil
		}
	}
	return nil, nil
}

// UpdateActivity applies a patch to the matching activity.
func (db *DB) UpdateActivity(ctx context.Context, id, userID string, patch domain.ActivityPatch, updatedAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, a := range db.activities {
		if a.ID == id && a.UserID == userID {
			a = patch.Apply(a)
			a.UpdatedAt = updatedAt.UTC()
			db.activities[i] = a
			return nil
		}
	}
	return nil
}

// DeleteActivity removes the matching activity; missing rows are not an error.
func (db *DB) DeleteActivity(ctx context.Context, id, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.activities = slices.DeleteFunc(db.activities, func(a domain.Activity) bool {
		return a.ID == id && a.UserID == userID
	})
	return nil
}

// --- LoadRepository ---

func (db *DB) summarize(userID string, weekStart civil.Date) domain.WeeklyLoadSummary {
	db.mu.Lock()
	defer db.mu.Unlock()

	var mine []domain.Activity
	for _, a := range db.activities {
		if a.UserID == userID {
			mine = append(mine, a)
		}
	}
	return domain.SummarizeLoad(mine, weekStart)
}

// WeeklyLoadPoints sums load points over the week starting on weekStart.
func (db *DB) WeeklyLoadPoints(ctx context.Context, userID string, weekStart civil.Date) (float64, error) {
	return db.summarize(userID, weekStart).TotalLoadPoints, nil
}

// DailyLoad returns per-day minutes and load points for the week.
func (db *DB) DailyLoad(ctx context.Context, userID string, weekStart civil.Date) ([]domain.DailyLoad, error) {
	return db.summarize(userID, weekStart).Daily, nil
}

// --- ReflectionRepository ---

// FindReflectionID returns the id of the user's record for week.
func (db *DB) FindReflectionID(ctx context.Context, userID string, week civil.Date) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, r := range db.reflections {
		if r.UserID == userID && r.WeekStartDate == week {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

// InsertReflection stores a new weekly reflection.
func (db *DB) InsertReflection(ctx context.Context, r domain.WeeklyReflection) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r.Questions = slices.Clone(r.Questions)
	db.reflections = append(db.reflections, r)
	return nil
}

// UpdateReflection rewrites the mutable fields of the record with r.ID.
func (db *DB) UpdateReflection(ctx context.Context, r domain.WeeklyReflection) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, cur := range db.reflections {
		if cur.ID != r.ID {
			continue
		}
		cur.ReflectionNotes = r.ReflectionNotes
		cur.Title = r.Title
		cur.Questions = slices.Clone(r.Questions)
		cur.Anxieties = r.Anxieties
		cur.GoodThings = r.GoodThings
		cur.AIDiagnosisResult = r.AIDiagnosisResult
		cur.WeeklyTotalLoadPoints = r.WeeklyTotalLoadPoints
		cur.UpdatedAt = r.UpdatedAt
		db.reflections[i] = cur
		return nil
	}
	return domain.ErrNotFound
}

// ListReflections returns the user's records newest week first.
func (db *DB) ListReflections(ctx context.Context, userID string, week *civil.Date) ([]domain.WeeklyReflection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := []domain.WeeklyReflection{}
	for _, r := range db.reflections {
		if r.UserID != userID {
			continue
		}
		if week != nil && r.WeekStartDate != *week {
			continue
		}
		r.Questions = slices.Clone(r.Questions)
		result = append(result, r)
	}

	slices.SortStableFunc(result, func(x, y domain.WeeklyReflection) int {
		return y.WeekStartDate.Compare(x.WeekStartDate)
	})
	return result, nil
}

// --- UserRepository ---

// GetByUsername retrieves a local user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return db.findUser(func(u *domain.User) bool {
		return u.Kind == domain.UserKindLocal && u.Username == username
	}), nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return db.findUser(func(u *domain.User) bool { return u.ID == id }), nil
}

// GetByGoogleID retrieves a federated user by Google subject.
func (db *DB) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return db.findUser(func(u *domain.User) bool {
		return u.Kind == domain.UserKindFederated && u.GoogleID == googleID
	}), nil
}

func (db *DB) findUser(match func(*domain.User) bool) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if match(u) {
			ret := *u
			return &ret
		}
	}
	// Return nil if not found
	return nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, u domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.users {
		if u.Kind == domain.UserKindLocal && existing.Kind == domain.UserKindLocal && existing.Username == u.Username {
			return domain.ErrConflict
		}
	}
	db.users = append(db.users, &u)
	return nil
}

// UpsertFederated merges a federated profile keyed by Google id.
func (db *DB) UpsertFederated(ctx context.Context, p domain.FederatedProfile, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Kind == domain.UserKindFederated && u.GoogleID == p.GoogleID {
			u.Email = p.Email
			u.DisplayName = p.DisplayName
			u.PictureURL = p.PictureURL
			u.UpdatedAt = now.UTC()
			return nil
		}
	}
	db.users = append(db.users, &domain.User{
		ID:          uuid.NewString(),
		Kind:        domain.UserKindFederated,
		GoogleID:    p.GoogleID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PictureURL:  p.PictureURL,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	})
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[s.Token] = &s
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		ret := *s
		return &ret, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
