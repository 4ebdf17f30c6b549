package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"healthreport/internal/domain"
)

var _ domain.ReflectionRepository = (*DB)(nil)

const reflectionColumns = "id, user_id, week_start_date, reflection_notes, title, questions, anxieties, good_things, ai_diagnosis_result, weekly_total_load_points, created_at, updated_at"

func encodeQuestions(qs []domain.Question) ([]byte, error) {
	if qs == nil {
		qs = []domain.Question{}
	}
	return json.Marshal(qs)
}

func scanReflection(s scanner) (domain.WeeklyReflection, error) {
	var (
		r                           domain.WeeklyReflection
		week                        time.Time
		notes, title, anx, good, ai sql.NullString
		questions                   []byte
	)
	if err := s.Scan(&r.ID, &r.UserID, &week, &notes, &title, &questions, &anx, &good, &ai, &r.WeeklyTotalLoadPoints, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	r.WeekStartDate = civil.DateOf(week)
	r.ReflectionNotes = stringPtr(notes)
	r.Title = stringPtr(title)
	r.Anxieties = stringPtr(anx)
	r.GoodThings = stringPtr(good)
	r.AIDiagnosisResult = stringPtr(ai)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.Questions = []domain.Question{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &r.Questions); err != nil {
			return r, fmt.Errorf("decode questions: %w", err)
		}
	}
	return r, nil
}

// FindReflectionID returns the id of the record for (userID, week).
func (d *DB) FindReflectionID(ctx context.Context, userID string, week civil.Date) (string, bool, error) {
	var id string
	err := d.sql.QueryRowContext(ctx,
		"SELECT id FROM weekly_reflections WHERE user_id = $1 AND week_start_date = $2::date LIMIT 1;",
		userID, week.String(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// InsertReflection inserts a record. A concurrent insert for the same
// (user, week) turns into an update of the survey fields instead of a
// duplicate row.
func (d *DB) InsertReflection(ctx context.Context, r domain.WeeklyReflection) error {
	questions, err := encodeQuestions(r.Questions)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO weekly_reflections (`+reflectionColumns+`)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, week_start_date) DO UPDATE SET
			reflection_notes = EXCLUDED.reflection_notes,
			title = EXCLUDED.title,
			questions = EXCLUDED.questions,
			anxieties = EXCLUDED.anxieties,
			good_things = EXCLUDED.good_things,
			ai_diagnosis_result = EXCLUDED.ai_diagnosis_result,
			weekly_total_load_points = EXCLUDED.weekly_total_load_points,
			updated_at = EXCLUDED.updated_at;`,
		r.ID, r.UserID, r.WeekStartDate.String(),
		nullString(r.ReflectionNotes), nullString(r.Title), questions,
		nullString(r.Anxieties), nullString(r.GoodThings), nullString(r.AIDiagnosisResult),
		r.WeeklyTotalLoadPoints, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	return err
}

// UpdateReflection rewrites the survey fields of the record with r.ID.
func (d *DB) UpdateReflection(ctx context.Context, r domain.WeeklyReflection) error {
	questions, err := encodeQuestions(r.Questions)
	if err != nil {
		return err
	}
	res, err := d.sql.ExecContext(ctx,
		`UPDATE weekly_reflections SET reflection_notes = $1, title = $2, questions = $3,
			anxieties = $4, good_things = $5, ai_diagnosis_result = $6,
			weekly_total_load_points = $7, updated_at = $8
		WHERE id = $9;`,
		nullString(r.ReflectionNotes), nullString(r.Title), questions,
		nullString(r.Anxieties), nullString(r.GoodThings), nullString(r.AIDiagnosisResult),
		r.WeeklyTotalLoadPoints, r.UpdatedAt.UTC(), r.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListReflections returns records newest week first, optionally one week only.
func (d *DB) ListReflections(ctx context.Context, userID string, week *civil.Date) ([]domain.WeeklyReflection, error) {
	q := "SELECT " + reflectionColumns + " FROM weekly_reflections WHERE user_id = $1"
	args := []any{userID}
	if week != nil {
		args = append(args, week.String())
		q += " AND week_start_date = $2::date"
	}
	q += " ORDER BY week_start_date DESC;"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WeeklyReflection{}
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
