package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthreport/internal/domain"
	"healthreport/internal/logger"

	"github.com/google/uuid"
)

// ActivityService encapsulates activity journaling use cases.
type ActivityService struct {
	repo domain.ActivityRepository
	log  *logger.Logger
}

// NewActivityService creates an ActivityService backed by the given repository.
func NewActivityService(repo domain.ActivityRepository, log *logger.Logger) *ActivityService {
	return &ActivityService{repo: repo, log: log}
}

// Create stores a new activity with a server-assigned id and timestamps.
func (s *ActivityService) Create(ctx context.Context, userID string, in domain.ActivityInput) (*domain.Activity, error) {
	now := time.Now().UTC()
	a := domain.Activity{
		ID:              uuid.NewString(),
		UserID:          userID,
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
		ActivityContent: in.ActivityContent,
		CategoryID:      in.CategoryID,
		FatigueLevel:    in.FatigueLevel,
		FatigueNotes:    in.FatigueNotes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertActivity(ctx, a); err != nil {
		s.log.Error("insert activity failed", "user_id", userID, "error", err)
		if errors.Is(err, domain.ErrInsertFailed) {
			return nil, domain.ErrInsertFailed
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInsertFailed, err)
	}
	return &a, nil
}

// List returns the user's activities, newest start time first.
func (s *ActivityService) List(ctx context.Context, userID string, r domain.ActivityRange) ([]domain.Activity, error) {
	items, err := s.repo.ListActivities(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Activity{}
	}
	return items, nil
}

// Get returns one activity owned by userID.
func (s *ActivityService) Get(ctx context.Context, id, userID string) (*domain.Activity, error) {
	a, err := s.repo.GetActivity(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// Update rewrites only the supplied fields and refreshes updated_at. An
// empty patch returns the stored record unchanged.
func (s *ActivityService) Update(ctx context.Context, id, userID string, patch domain.ActivityPatch) (*domain.Activity, error) {
	current, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	if err := s.repo.UpdateActivity(ctx, id, userID, patch, time.Now().UTC()); err != nil {
		return nil, domain.ClassifyWarehouseError(err)
	}
	return s.Get(ctx, id, userID)
}

// Delete removes an activity and confirms the removal by re-reading it.
func (s *ActivityService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	if err := s.repo.DeleteActivity(ctx, id, userID); err != nil {
		return domain.ClassifyWarehouseError(err)
	}

	remaining, err := s.repo.GetActivity(ctx, id, userID)
	if err != nil {
		return err
	}
	if remaining != nil {
		return fmt.Errorf("activity %s still present after delete", id)
	}
	return nil
}
