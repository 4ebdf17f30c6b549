package bigquery

import (
	"context"

	"cloud.google.com/go/civil"

	"healthreport/internal/domain"
)

var _ domain.ReflectionRepository = (*Warehouse)(nil)

const reflectionSelect = "SELECT id, user_id, week_start_date, reflection_notes, title, questions, anxieties, good_things, ai_diagnosis_result, weekly_total_load_points, created_at, updated_at FROM "

// FindReflectionID returns the id of the record for (userID, week).
func (w *Warehouse) FindReflectionID(ctx context.Context, userID string, week civil.Date) (string, bool, error) {
	sql := "SELECT id FROM " + w.table(w.tables.Reflections) + " WHERE user_id = @user_id AND week_start_date = @week_start_date LIMIT 1"
	rows, err := readAll[idRow](ctx, w.query(sql, map[string]any{"user_id": userID, "week_start_date": week}))
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].ID, true, nil
}

// InsertReflection streams a new record.
func (w *Warehouse) InsertReflection(ctx context.Context, r domain.WeeklyReflection) error {
	row, err := toReflectionRow(r)
	if err != nil {
		return err
	}
	t := w.client.Dataset(w.dataset).Table(w.tables.Reflections)
	return put(ctx, t, []reflectionRow{row})
}

// UpdateReflection rewrites the survey fields of the record with r.ID.
func (w *Warehouse) UpdateReflection(ctx context.Context, r domain.WeeklyReflection) error {
	row, err := toReflectionRow(r)
	if err != nil {
		return err
	}
	sql := "UPDATE " + w.table(w.tables.Reflections) + ` SET
	reflection_notes = @reflection_notes, title = @title, questions = @questions,
	anxieties = @anxieties, good_things = @good_things, ai_diagnosis_result = @ai_diagnosis_result,
	weekly_total_load_points = @weekly_total_load_points, updated_at = @updated_at
WHERE id = @id`
	return exec(ctx, w.query(sql, map[string]any{
		"reflection_notes":         row.ReflectionNotes,
		"title":                    row.Title,
		"questions":                row.Questions,
		"anxieties":                row.Anxieties,
		"good_things":              row.GoodThings,
		"ai_diagnosis_result":      row.AIDiagnosisResult,
		"weekly_total_load_points": row.WeeklyTotalLoadPoints,
		"updated_at":               row.UpdatedAt,
		"id":                       row.ID,
	}))
}

// ListReflections returns records newest week first, optionally one week only.
func (w *Warehouse) ListReflections(ctx context.Context, userID string, week *civil.Date) ([]domain.WeeklyReflection, error) {
	sql := reflectionSelect + w.table(w.tables.Reflections) + " WHERE user_id = @user_id"
	params := map[string]any{"user_id": userID}
	if week != nil {
		sql += " AND week_start_date = @week_start_date"
		params["week_start_date"] = *week
	}
	sql += " ORDER BY week_start_date DESC"

	rows, err := readAll[reflectionRow](ctx, w.query(sql, params))
	if err != nil {
		return nil, err
	}
	out := make([]domain.WeeklyReflection, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
