package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/pregled/internal/model"
)

var hundred = decimal.NewFromInt(100)

// GetStatistics aggregates stored results, optionally limited to a range of
// inspection days. Rates are percentages rounded to one decimal, the average
// inspection time is in minutes and only counts results with a known start.
func GetStatistics(ctx context.Context, db *sql.DB, dateRange *model.DateRange) (model.Statistics, error) {
	query := `SELECT overall_status, inspection_date, started_at FROM qc_results`
	var args []any
	if dateRange != nil {
		query += ` WHERE inspection_date >= ? AND inspection_date < ?`
		args = append(args, dateRange.From.UTC(), dateRange.End().UTC())
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("querying statistics: %w", err)
	}
	defer rows.Close()

	var total, passed, timed int64
	var spent time.Duration
	for rows.Next() {
		var overall string
		var inspected time.Time
		var started sql.NullTime
		if err := rows.Scan(&overall, &inspected, &started); err != nil {
			return model.Statistics{}, fmt.Errorf("scanning statistics row: %w", err)
		}
		total++
		if overall == model.OverallPass {
			passed++
		}
		if started.Valid && !inspected.Before(started.Time) {
			spent += inspected.Sub(started.Time)
			timed++
		}
	}
	if err := rows.Err(); err != nil {
		return model.Statistics{}, err
	}

	return buildStatistics(total, passed, timed, spent), nil
}

func buildStatistics(total, passed, timed int64, spent time.Duration) model.Statistics {
	stats := model.Statistics{TotalInspected: int(total)}
	if total > 0 {
		n := decimal.NewFromInt(total)
		passRate := decimal.NewFromInt(passed).Mul(hundred).Div(n).Round(1)
		stats.PassRate = passRate.InexactFloat64()
		stats.DamageRate = hundred.Sub(passRate).Round(1).InexactFloat64()
	}
	if timed > 0 {
		minutes := decimal.NewFromFloat(spent.Minutes()).Div(decimal.NewFromInt(timed)).Round(1)
		stats.AvgInspectionTime = minutes.InexactFloat64()
	}
	return stats
}
