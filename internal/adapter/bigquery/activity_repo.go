package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"healthreport/internal/domain"
)

var _ domain.ActivityRepository = (*Warehouse)(nil)

const activitySelect = "SELECT id, user_id, start_time, end_time, activity_content, category_id, fatigue_level, fatigue_notes, created_at, updated_at FROM "

// InsertActivity streams one activity row.
func (w *Warehouse) InsertActivity(ctx context.Context, a domain.Activity) error {
	t := w.client.Dataset(w.dataset).Table(w.tables.Activities)
	return put(ctx, t, []activityRow{toActivityRow(a)})
}

// ListActivities returns the user's activities newest start time first.
func (w *Warehouse) ListActivities(ctx context.Context, userID string, r domain.ActivityRange) ([]domain.Activity, error) {
	sql := activitySelect + w.table(w.tables.Activities) + " WHERE user_id = @user_id"
	params := map[string]any{"user_id": userID}
	if r.Start != nil {
		sql += " AND start_time >= @start_date"
		params["start_date"] = r.Start.UTC()
	}
	if r.End != nil {
		sql += " AND end_time <= @end_date"
		params["end_date"] = r.End.UTC()
	}
	sql += " ORDER BY start_time DESC"

	rows, err := readAll[activityRow](ctx, w.query(sql, params))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// GetActivity returns one activity, or nil when absent or not owned.
func (w *Warehouse) GetActivity(ctx context.Context, id, userID string) (*domain.Activity, error) {
	sql := activitySelect + w.table(w.tables.Activities) + " WHERE id = @id AND user_id = @user_id LIMIT 1"
	rows, err := readAll[activityRow](ctx, w.query(sql, map[string]any{"id": id, "user_id": userID}))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	a := rows[0].toDomain()
	return &a, nil
}

// buildActivityUpdate renders the UPDATE statement for patch. Column names
// come from domain.ActivityField only; values travel as parameters.
func buildActivityUpdate(table string, patch domain.ActivityPatch) (string, map[string]any) {
	fields := patch.Fields()
	sets := make([]string, 0, len(fields)+1)
	params := make(map[string]any, len(fields)+3)
	for i, f := range fields {
		name := fmt.Sprintf("p%d", i)
		sets = append(sets, fmt.Sprintf("%s = @%s", f.Field.Column(), name))
		params[name] = f.Value
	}
	sets = append(sets, "updated_at = @updated_at")
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = @id AND user_id = @user_id", table, strings.Join(sets, ", ")), params
}

// UpdateActivity rewrites the patched columns and updated_at.
func (w *Warehouse) UpdateActivity(ctx context.Context, id, userID string, patch domain.ActivityPatch, updatedAt time.Time) error {
	if patch.IsEmpty() {
		return nil
	}
	sql, params := buildActivityUpdate(w.table(w.tables.Activities), patch)
	params["updated_at"] = updatedAt.UTC()
	params["id"] = id
	params["user_id"] = userID
	return exec(ctx, w.query(sql, params))
}

// DeleteActivity removes one activity owned by userID.
func (w *Warehouse) DeleteActivity(ctx context.Context, id, userID string) error {
	sql := "DELETE FROM " + w.table(w.tables.Activities) + " WHERE id = @id AND user_id = @user_id"
	return exec(ctx, w.query(sql, map[string]any{"id": id, "user_id": userID}))
}
