package domain

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// Question is one self-assessment item of a weekly survey.
type Question struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// WeeklyReflection is the per-(user, week) survey record.
type WeeklyReflection struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	WeekStartDate         civil.Date `json:"week_start_date"`
	ReflectionNotes       *string    `json:"reflection_notes"`
	Title                 *string    `json:"title"`
	Questions             []Question `json:"questions"`
	Anxieties             *string    `json:"anxieties"`
	GoodThings            *string    `json:"good_things"`
	AIDiagnosisResult     *string    `json:"ai_diagnosis_result"`
	WeeklyTotalLoadPoints float64    `json:"weekly_total_load_points"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ReflectionInput carries the user-supplied survey fields.
type ReflectionInput struct {
	WeekStartDate     civil.Date
	ReflectionNotes   *string
	Title             *string
	Questions         []Question
	Anxieties         *string
	GoodThings        *string
	AIDiagnosisResult *string
}

// DailyLoad is one day of a weekly load summary.
type DailyLoad struct {
	Date            civil.Date `json:"date"`
	ActivityMinutes int64      `json:"activity_minutes"`
	LoadPoints      float64    `json:"load_points"`
}

// WeeklyLoadSummary is the per-day breakdown of a week plus its total.
type WeeklyLoadSummary struct {
	TotalLoadPoints float64     `json:"total_load_points"`
	Daily           []DailyLoad `json:"daily"`
}

// ReflectionRepository is the port for weekly reflection persistence.
type ReflectionRepository interface {
	// FindReflectionID returns the id of the record for (userID, week), if any.
	FindReflectionID(ctx context.Context, userID string, week civil.Date) (string, bool, error)
	InsertReflection(ctx context.Context, r WeeklyReflection) error
	// UpdateReflection rewrites the survey fields, load points and updated_at
	// of the record with r.ID.
	UpdateReflection(ctx context.Context, r WeeklyReflection) error
	// ListReflections returns records newest week first, optionally only week.
	ListReflections(ctx context.Context, userID string, week *civil.Date) ([]WeeklyReflection, error)
}

// LoadRepository aggregates activity load over a week window.
type LoadRepository interface {
	WeeklyLoadPoints(ctx context.Context, userID string, weekStart civil.Date) (float64, error)
	DailyLoad(ctx context.Context, userID string, weekStart civil.Date) ([]DailyLoad, error)
}

// Commenter turns a prompt into a natural-language comment.
type Commenter interface {
	Comment(ctx context.Context, prompt string) (string, error)
}
