package bigquery

import (
	"context"

	"cloud.google.com/go/civil"

	"healthreport/internal/domain"
)

var _ domain.LoadRepository = (*Warehouse)(nil)

const loadFilter = ` WHERE user_id = @user_id
	AND DATE(start_time) BETWEEN @week_start AND @week_end
	AND category_id IN UNNEST(@categories)`

const loadPointsExpr = "fatigue_level * (TIMESTAMP_DIFF(end_time, start_time, MINUTE) / 60.0)"

func loadParams(userID string, weekStart civil.Date) map[string]any {
	return map[string]any{
		"user_id":    userID,
		"week_start": weekStart,
		"week_end":   domain.WeekEnd(weekStart),
		"categories": domain.LoadCategories,
	}
}

// WeeklyLoadPoints sums fatigue_level * hours over the week.
func (w *Warehouse) WeeklyLoadPoints(ctx context.Context, userID string, weekStart civil.Date) (float64, error) {
	sql := "SELECT SUM(" + loadPointsExpr + ") AS total FROM " + w.table(w.tables.Activities) + loadFilter
	rows, err := readAll[totalRow](ctx, w.query(sql, loadParams(userID, weekStart)))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || !rows[0].Total.Valid {
		return 0, nil
	}
	return rows[0].Total.Float64, nil
}

// DailyLoad groups the week's minutes and load points by day.
func (w *Warehouse) DailyLoad(ctx context.Context, userID string, weekStart civil.Date) ([]domain.DailyLoad, error) {
	sql := `SELECT DATE(start_time) AS date,
	SUM(TIMESTAMP_DIFF(end_time, start_time, MINUTE)) AS activity_minutes,
	SUM(` + loadPointsExpr + `) AS load_points
FROM ` + w.table(w.tables.Activities) + loadFilter + `
GROUP BY date
ORDER BY date`
	rows, err := readAll[dailyRow](ctx, w.query(sql, loadParams(userID, weekStart)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.DailyLoad, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.DailyLoad{Date: r.Date, ActivityMinutes: r.ActivityMinutes, LoadPoints: r.LoadPoints})
	}
	return out, nil
}
