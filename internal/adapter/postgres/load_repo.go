package postgres

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"

	"healthreport/internal/domain"
)

var _ domain.LoadRepository = (*DB)(nil)

// weekActivities selects the user's load-bearing activities started within
// [$2, $3] (UTC dates) with their whole-minute durations.
const weekActivities = `WITH week AS (
	SELECT (start_time AT TIME ZONE 'UTC')::date AS day,
		fatigue_level,
		TRUNC(EXTRACT(EPOCH FROM (end_time - start_time)) / 60)::bigint AS minutes
	FROM activities
	WHERE user_id = $1
		AND (start_time AT TIME ZONE 'UTC')::date BETWEEN $2::date AND $3::date
		AND category_id = ANY($4)
)`

// WeeklyLoadPoints sums fatigue_level * hours over the week.
func (d *DB) WeeklyLoadPoints(ctx context.Context, userID string, weekStart civil.Date) (float64, error) {
	var total float64
	err := d.sql.QueryRowContext(ctx,
		weekActivities+" SELECT COALESCE(SUM(fatigue_level * (minutes / 60.0)), 0)::double precision FROM week;",
		userID, weekStart.String(), domain.WeekEnd(weekStart).String(), pq.Array(domain.LoadCategories),
	).Scan(&total)
	return total, err
}

// DailyLoad groups the week's minutes and load points by UTC day.
func (d *DB) DailyLoad(ctx context.Context, userID string, weekStart civil.Date) ([]domain.DailyLoad, error) {
	rows, err := d.sql.QueryContext(ctx,
		weekActivities+` SELECT day, SUM(minutes)::bigint, SUM(fatigue_level * (minutes / 60.0))::double precision
		FROM week GROUP BY day ORDER BY day;`,
		userID, weekStart.String(), domain.WeekEnd(weekStart).String(), pq.Array(domain.LoadCategories),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DailyLoad{}
	for rows.Next() {
		var (
			day time.Time
			dl  domain.DailyLoad
		)
		if err := rows.Scan(&day, &dl.ActivityMinutes, &dl.LoadPoints); err != nil {
			return nil, err
		}
		dl.Date = civil.DateOf(day)
		out = append(out, dl)
	}
	return out, rows.Err()
}
