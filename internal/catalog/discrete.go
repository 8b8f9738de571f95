package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/rtm0/pointdata/internal/frame"
)

// Discrete returns the instantaneous water table depth records between
// dateStart and dateEnd (whole days, both inclusive, either may be empty),
// limited to sites with at least minNumObs records inside that window.
//
// pumping_status is "1" for static, "P" for pumping and "" when not reported.
func (d *DB) Discrete(ctx context.Context, dateStart, dateEnd string, minNumObs int) ([]frame.Record, error) {
	if minNumObs < 1 {
		minNumObs = 1
	}

	var where string
	var window []any
	switch {
	case dateStart != "" && dateEnd != "":
		where = " WHERE date(w.date) >= ? AND date(w.date) <= ?"
		window = []any{dateStart, dateEnd}
	case dateStart != "":
		where = " WHERE date(w.date) >= ?"
		window = []any{dateStart}
	case dateEnd != "":
		where = " WHERE date(w.date) <= ?"
		window = []any{dateEnd}
	}

	query := `
		SELECT w.site_id, w.date, w.wtd, w.pumping_status
		FROM wtd_discrete_data AS w
		INNER JOIN (
			SELECT w.site_id, COUNT(*) AS num_obs
			FROM wtd_discrete_data AS w` + where + `
			GROUP BY w.site_id
			HAVING num_obs >= ?
		) AS c
		ON w.site_id = c.site_id` + where + `
		ORDER BY w.site_id, w.date`

	args := append(append(append([]any{}, window...), minNumObs), window...)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wtd_discrete_data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []frame.Record
	for rows.Next() {
		var r frame.Record
		var wtd sql.NullFloat64
		var status sql.NullString
		if err := rows.Scan(&r.SiteID, &r.Date, &wtd, &status); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.WTD = math.NaN()
		if wtd.Valid {
			r.WTD = wtd.Float64
		}
		r.PumpingStatus = status.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
