package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"healthreport/internal/domain"
)

type activityRow struct {
	ID              string        `bigquery:"id"`
	UserID          string        `bigquery:"user_id"`
	StartTime       time.Time     `bigquery:"start_time"`
	EndTime         time.Time     `bigquery:"end_time"`
	ActivityContent string        `bigquery:"activity_content"`
	CategoryID      string        `bigquery:"category_id"`
	FatigueLevel    int64         `bigquery:"fatigue_level"`
	FatigueNotes    bq.NullString `bigquery:"fatigue_notes"`
	CreatedAt       time.Time     `bigquery:"created_at"`
	UpdatedAt       time.Time     `bigquery:"updated_at"`
}

func toActivityRow(a domain.Activity) activityRow {
	return activityRow{
		ID:              a.ID,
		UserID:          a.UserID,
		StartTime:       a.StartTime.UTC(),
		EndTime:         a.EndTime.UTC(),
		ActivityContent: a.ActivityContent,
		CategoryID:      a.CategoryID,
		FatigueLevel:    int64(a.FatigueLevel),
		FatigueNotes:    nullString(a.FatigueNotes),
		CreatedAt:       a.CreatedAt.UTC(),
		UpdatedAt:       a.UpdatedAt.UTC(),
	}
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:              r.ID,
		UserID:          r.UserID,
		StartTime:       r.StartTime.UTC(),
		EndTime:         r.EndTime.UTC(),
		ActivityContent: r.ActivityContent,
		CategoryID:      r.CategoryID,
		FatigueLevel:    int(r.FatigueLevel),
		FatigueNotes:    stringPtr(r.FatigueNotes),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type userRow struct {
	ID                string        `bigquery:"id"`
	Kind              string        `bigquery:"kind"`
	Username          bq.NullString `bigquery:"username"`
	PasswordHash      bq.NullString `bigquery:"password_hash"`
	GoogleID          bq.NullString `bigquery:"google_id"`
	Email             bq.NullString `bigquery:"email"`
	DisplayName       bq.NullString `bigquery:"display_name"`
	ProfilePictureURL bq.NullString `bigquery:"profile_picture_url"`
	CreatedAt         time.Time     `bigquery:"created_at"`
	UpdatedAt         time.Time     `bigquery:"updated_at"`
}

func toUserRow(u domain.User) userRow {
	opt := func(s string) bq.NullString {
		return bq.NullString{StringVal: s, Valid: s != ""}
	}
	return userRow{
		ID:                u.ID,
		Kind:              string(u.Kind),
		Username:          opt(u.Username),
		PasswordHash:      opt(u.PasswordHash),
		GoogleID:          opt(u.GoogleID),
		Email:             opt(u.Email),
		DisplayName:       opt(u.DisplayName),
		ProfilePictureURL: opt(u.PictureURL),
		CreatedAt:         u.CreatedAt.UTC(),
		UpdatedAt:         u.UpdatedAt.UTC(),
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Kind:         domain.UserKind(r.Kind),
		Username:     r.Username.StringVal,
		PasswordHash: r.PasswordHash.StringVal,
		GoogleID:     r.GoogleID.StringVal,
		Email:        r.Email.StringVal,
		DisplayName:  r.DisplayName.StringVal,
		PictureURL:   r.ProfilePictureURL.StringVal,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// reflectionRow stores questions as a JSON string column.
type reflectionRow struct {
	ID                    string        `bigquery:"id"`
	UserID                string        `bigquery:"user_id"`
	WeekStartDate         civil.Date    `bigquery:"week_start_date"`
	ReflectionNotes       bq.NullString `bigquery:"reflection_notes"`
	Title                 bq.NullString `bigquery:"title"`
	Questions             bq.NullString `bigquery:"questions"`
	Anxieties             bq.NullString `bigquery:"anxieties"`
	GoodThings            bq.NullString `bigquery:"good_things"`
	AIDiagnosisResult     bq.NullString `bigquery:"ai_diagnosis_result"`
	WeeklyTotalLoadPoints float64       `bigquery:"weekly_total_load_points"`
	CreatedAt             time.Time     `bigquery:"created_at"`
	UpdatedAt             time.Time     `bigquery:"updated_at"`
}

func encodeQuestions(qs []domain.Question) (string, error) {
	if qs == nil {
		qs = []domain.Question{}
	}
	b, err := json.Marshal(qs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeQuestions(ns bq.NullString) ([]domain.Question, error) {
	out := []domain.Question{}
	if !ns.Valid || ns.StringVal == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(ns.StringVal), &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}

func toReflectionRow(r domain.WeeklyReflection) (reflectionRow, error) {
	questions, err := encodeQuestions(r.Questions)
	if err != nil {
		return reflectionRow{}, err
	}
	return reflectionRow{
		ID:                    r.ID,
		UserID:                r.UserID,
		WeekStartDate:         r.WeekStartDate,
		ReflectionNotes:       nullString(r.ReflectionNotes),
		Title:                 nullString(r.Title),
		Questions:             bq.NullString{StringVal: questions, Valid: true},
		Anxieties:             nullString(r.Anxieties),
		GoodThings:            nullString(r.GoodThings),
		AIDiagnosisResult:     nullString(r.AIDiagnosisResult),
		WeeklyTotalLoadPoints: r.WeeklyTotalLoadPoints,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}, nil
}

func (r reflectionRow) toDomain() (domain.WeeklyReflection, error) {
	questions, err := decodeQuestions(r.Questions)
	if err != nil {
		return domain.WeeklyReflection{}, err
	}
	return domain.WeeklyReflection{
		ID:                    r.ID,
		UserID:                r.UserID,
		WeekStartDate:         r.WeekStartDate,
		ReflectionNotes:       stringPtr(r.ReflectionNotes),
		Title:                 stringPtr(r.Title),
		Questions:             questions,
		Anxieties:             stringPtr(r.Anxieties),
		GoodThings:            stringPtr(r.GoodThings),
		AIDiagnosisResult:     stringPtr(r.AIDiagnosisResult),
		WeeklyTotalLoadPoints: r.WeeklyTotalLoadPoints,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}, nil
}

type dailyRow struct {
	Date            civil.Date `bigquery:"date"`
	ActivityMinutes int64      `bigquery:"activity_minutes"`
	LoadPoints      float64    `bigquery:"load_points"`
}

type totalRow struct {
	Total bq.NullFloat64 `bigquery:"total"`
}

type idRow struct {
	ID string `bigquery:"id"`
}

func nullString(p *string) bq.NullString {
	if p == nil {
		return bq.NullString{}
	}
	return bq.NullString{StringVal: *p, Valid: true}
}

func stringPtr(ns bq.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.StringVal
	return &s
}
