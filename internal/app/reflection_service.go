package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"healthreport/internal/domain"
	"healthreport/internal/logger"
)

// DiagnosisErrorPrefix starts the inline text returned when the AI call fails.
const DiagnosisErrorPrefix = "An error occurred while generating the AI comment: "

// ReflectionService encapsulates weekly reflection use cases.
//
// Upsert is check-then-branch on (user, week). Two concurrent upserts for the
// same key can both miss the existing record; adapters without a unique
// constraint on that key may then hold two records.
type ReflectionService struct {
	repo      domain.ReflectionRepository
	load      domain.LoadRepository
	commenter domain.Commenter
	log       *logger.Logger
}

// NewReflectionService creates a ReflectionService.
func NewReflectionService(repo domain.ReflectionRepository, load domain.LoadRepository, commenter domain.Commenter, log *logger.Logger) *ReflectionService {
	return &ReflectionService{repo: repo, load: load, commenter: commenter, log: log}
}

// LoadScore returns the week's total load points; 0 when nothing qualifies.
func (s *ReflectionService) LoadScore(ctx context.Context, userID string, weekStart civil.Date) (float64, error) {
	return s.load.WeeklyLoadPoints(ctx, userID, weekStart)
}

// Upsert creates or updates the record for (userID, in.WeekStartDate) and
// stores the recomputed weekly load score with it.
func (s *ReflectionService) Upsert(ctx context.Context, userID string, in domain.ReflectionInput) (*domain.WeeklyReflection, error) {
	existingID, found, err := s.repo.FindReflectionID(ctx, userID, in.WeekStartDate)
	if err != nil {
		return nil, err
	}

	points, err := s.LoadScore(ctx, userID, in.WeekStartDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := domain.WeeklyReflection{
		UserID:                userID,
		WeekStartDate:         in.WeekStartDate,
		ReflectionNotes:       in.ReflectionNotes,
		Title:                 in.Title,
		Questions:             in.Questions,
		Anxieties:             in.Anxieties,
		GoodThings:            in.GoodThings,
		AIDiagnosisResult:     in.AIDiagnosisResult,
		WeeklyTotalLoadPoints: points,
		UpdatedAt:             now,
	}
	if r.Questions == nil {
		r.Questions = []domain.Question{}
	}

	if found {
		r.ID = existingID
		if err := s.repo.UpdateReflection(ctx, r); err != nil {
			s.log.Error("update weekly reflection failed", "user_id", userID, "id", existingID, "error", err)
			return nil, domain.ClassifyWarehouseError(err)
		}
		return s.fetch(ctx, userID, in.WeekStartDate)
	}

	r.ID = uuid.NewString()
	r.CreatedAt = now
	if err := s.repo.InsertReflection(ctx, r); err != nil {
		s.log.Error("insert weekly reflection failed", "user_id", userID, "error", err)
		return nil, err
	}
	// A concurrent first save may have merged into an existing row.
	return s.fetch(ctx, userID, in.WeekStartDate)
}

func (s *ReflectionService) fetch(ctx context.Context, userID string, week civil.Date) (*domain.WeeklyReflection, error) {
	items, err := s.repo.ListReflections(ctx, userID, &week)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	return &items[0], nil
}

// List returns the user's reflections newest week first, optionally only
// the one for week.
func (s *ReflectionService) List(ctx context.Context, userID string, week *civil.Date) ([]domain.WeeklyReflection, error) {
	items, err := s.repo.ListReflections(ctx, userID, week)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.WeeklyReflection{}
	}
	return items, nil
}

// Diagnose asks the commenter for a short comment on the survey. Failures
// are returned inline as text, never as an error. Nothing is persisted.
func (s *ReflectionService) Diagnose(ctx context.Context, req DiagnosisRequest) string {
	if s.commenter == nil {
		return DiagnosisErrorPrefix + "no AI provider configured"
	}
	text, err := s.commenter.Comment(ctx, BuildDiagnosisPrompt(req))
	if err != nil {
		s.log.Warn("ai diagnosis failed", "error", err)
		return DiagnosisErrorPrefix + err.Error()
	}
	return strings.TrimSpace(text)
}

// WeeklySummary returns per-day activity minutes and load points for the
// week starting on weekStart, plus the week's total.
func (s *ReflectionService) WeeklySummary(ctx context.Context, userID string, weekStart civil.Date) (*domain.WeeklyLoadSummary, error) {
	days, err := s.load.DailyLoad(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	out := &domain.WeeklyLoadSummary{Daily: make([]domain.DailyLoad, 0, len(days))}
	for _, d := range days {
		out.Daily = append(out.Daily, d)
		out.TotalLoadPoints += d.LoadPoints
	}
	return out, nil
}

// ParseWeekStart parses a YYYY-MM-DD week start date.
func ParseWeekStart(v string) (civil.Date, error) {
	if v == "" {
		return civil.Date{}, errors.New("week_start_date is required")
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, fmt.Errorf("week_start_date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}
