package repository

import "time"

// PlanDay returns the UTC calendar day (YYYY-MM-DD) for a timestamp.
func PlanDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// PlanDayNow returns the plan day for the current moment.
func PlanDayNow() string {
	return PlanDay(time.Now())
}
