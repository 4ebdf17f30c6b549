package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthreport/internal/domain"
)

var _ domain.ActivityRepository = (*DB)(nil)

const activityColumns = "id, user_id, start_time, end_time, activity_content, category_id, fatigue_level, fatigue_notes, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (domain.Activity, error) {
	var (
		a     domain.Activity
		notes sql.NullString
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.StartTime, &a.EndTime, &a.ActivityContent, &a.CategoryID, &a.FatigueLevel, &notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.FatigueNotes = stringPtr(notes)
	return a, nil
}

// InsertActivity inserts a new activity row.
func (d *DB) InsertActivity(ctx context.Context, a domain.Activity) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO activities("+activityColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);",
		a.ID, a.UserID, a.StartTime.UTC(), a.EndTime.UTC(), a.ActivityContent, a.CategoryID, a.FatigueLevel, nullString(a.FatigueNotes), a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	return err
}

// ListActivities returns the user's activities newest start time first.
func (d *DB) ListActivities(ctx context.Context, userID string, r domain.ActivityRange) ([]domain.Activity, error) {
	q := "SELECT " + activityColumns + " FROM activities WHERE user_id = $1"
	args := []any{userID}
	if r.Start != nil {
		args = append(args, r.Start.UTC())
		q += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if r.End != nil {
		args = append(args, r.End.UTC())
		q += fmt.Sprintf(" AND end_time <= $%d", len(args))
	}
	q += " ORDER BY start_time DESC;"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetActivity returns one activity or nil when it does not exist for userID.
func (d *DB) GetActivity(ctx context.Context, id, userID string) (*domain.Activity, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = $1 AND user_id = $2;",
		id, userID,
	)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateActivity rewrites the patched columns and updated_at. Column names
// come from domain.ActivityField only.
func (d *DB) UpdateActivity(ctx context.Context, id, userID string, patch domain.ActivityPatch, updatedAt time.Time) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+3)
	for _, f := range fields {
		args = append(args, f.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Field.Column(), len(args)))
	}
	args = append(args, updatedAt.UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id, userID)

	q := fmt.Sprintf("UPDATE activities SET %s WHERE id = $%d AND user_id = $%d;",
		strings.Join(sets, ", "), len(args)-1, len(args))
	_, err := d.sql.ExecContext(ctx, q, args...)
	return err
}

// DeleteActivity removes one activity owned by userID.
func (d *DB) DeleteActivity(ctx context.Context, id, userID string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM activities WHERE id = $1 AND user_id = $2;", id, userID)
	return err
}
