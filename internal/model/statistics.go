package model

import "time"

// Statistics summarizes inspections in a period.
type Statistics struct {
	TotalInspected    int     `json:"total_inspected"`
	PassRate          float64 `json:"pass_rate"`
	DamageRate        float64 `json:"damage_rate"`
	AvgInspectionTime float64 `json:"avg_inspection_time"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// End returns the exclusive upper bound (start of the day after To).
func (r DateRange) End() time.Time {
	y, m, d := r.To.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, r.To.Location())
}
