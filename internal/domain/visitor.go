// Package domain defines the business logic for the user counter service.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorageUnavailable indicates the backing store could not serve the request.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidRetention is returned when a purge is requested with a negative horizon.
	ErrInvalidRetention = errors.New("days_to_keep must not be negative")
)

// ActivityRecord is the fact stored per distinct (client, UTC day) pair.
// The (ClientID, Date) pair is unique in storage; SeenAt keeps the instant
// of first observation that day.
type ActivityRecord struct {
	ClientID string
	SeenAt   time.Time
	Date     time.Time
}

// DayCount is one entry of the daily breakdown.
type DayCount struct {
	Date  time.Time
	Users int
}

// ActiveCounts holds the derived DAU/MAU pair returned on every visit.
type ActiveCounts struct {
	Daily   int
	Monthly int
}

// StatsReport is the full aggregate view served by the stats endpoint.
type StatsReport struct {
	Daily       int
	Monthly     int
	TotalUnique int
	Breakdown   []DayCount
	GeneratedAt time.Time
}

// VisitorRepository captures persistence operations over the activity fact table.
// RecordActivity must be atomic under concurrent callers: the store enforces
// uniqueness of (clientID, UTC date) and reports whether this call created
// the record.
type VisitorRepository interface {
	RecordActivity(ctx context.Context, clientID string, seenAt time.Time) (created bool, err error)
	DailyActiveUsers(ctx context.Context, date time.Time) (int, error)
	MonthlyActiveUsers(ctx context.Context, reference time.Time, windowDays int) (int, error)
	TotalUniqueUsers(ctx context.Context) (int, error)
	DailyBreakdown(ctx context.Context, reference time.Time, windowDays int) ([]DayCount, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Day truncates an instant to its UTC calendar date. All deduplication and
// aggregation uses this boundary; server locale never leaks into counts.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
