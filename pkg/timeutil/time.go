// Package timeutil pins all service time handling to UTC. Due dates and
// paid-at stamps cross two gateway APIs and the database; a single zone
// removes off-by-a-day surprises around fee deadlines.
package timeutil

import "time"

// Now returns the current UTC time. Use this instead of time.Now.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay truncates t to UTC midnight. Fee due dates are day-granular.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of t's UTC day, for inclusive due-date
// comparisons.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}
