package domain

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultMAUWindowDays is the trailing window used for monthly active users.
	DefaultMAUWindowDays = 30
	// DefaultBreakdownDays is the trailing window served in the stats breakdown.
	DefaultBreakdownDays = 7
	// DefaultRetentionDays is the purge horizon applied when none is supplied.
	DefaultRetentionDays = 90
)

// Service orchestrates visit tracking, aggregate queries, and retention.
type Service struct {
	repo          VisitorRepository
	mauWindowDays int
	breakdownDays int
}

// NewService constructs a Service. Non-positive windows fall back to defaults.
func NewService(repo VisitorRepository, mauWindowDays, breakdownDays int) *Service {
	if mauWindowDays <= 0 {
		mauWindowDays = DefaultMAUWindowDays
	}
	if breakdownDays <= 0 {
		breakdownDays = DefaultBreakdownDays
	}
	return &Service{repo: repo, mauWindowDays: mauWindowDays, breakdownDays: breakdownDays}
}

// TrackResult reports whether the visit was the client's first of the day.
type TrackResult struct {
	WasNewToday bool
}

// Track records a visit for clientID observed at the given instant. The
// write is idempotent per (client, UTC day): repeated calls succeed and
// report WasNewToday=false.
func (s *Service) Track(ctx context.Context, clientID string, observedAt time.Time) (TrackResult, error) {
	created, err := s.repo.RecordActivity(ctx, clientID, observedAt.UTC())
	if err != nil {
		return TrackResult{}, err
	}
	return TrackResult{WasNewToday: created}, nil
}

// ActiveCounts returns DAU for the reference day and MAU for the trailing window.
func (s *Service) ActiveCounts(ctx context.Context, reference time.Time) (ActiveCounts, error) {
	day := Day(reference)

	daily, err := s.repo.DailyActiveUsers(ctx, day)
	if err != nil {
		return ActiveCounts{}, err
	}
	monthly, err := s.repo.MonthlyActiveUsers(ctx, day, s.mauWindowDays)
	if err != nil {
		return ActiveCounts{}, err
	}
	return ActiveCounts{Daily: daily, Monthly: monthly}, nil
}

// Stats assembles the full aggregate report. Every figure is computed from
// the fact table at query time; nothing is cached. TotalUnique covers only
// records the retention manager has not purged.
func (s *Service) Stats(ctx context.Context, reference time.Time) (StatsReport, error) {
	counts, err := s.ActiveCounts(ctx, reference)
	if err != nil {
		return StatsReport{}, err
	}

	total, err := s.repo.TotalUniqueUsers(ctx)
	if err != nil {
		return StatsReport{}, err
	}

	breakdown, err := s.repo.DailyBreakdown(ctx, Day(reference), s.breakdownDays)
	if err != nil {
		return StatsReport{}, err
	}

	return StatsReport{
		Daily:       counts.Daily,
		Monthly:     counts.Monthly,
		TotalUnique: total,
		Breakdown:   breakdown,
		GeneratedAt: reference.UTC(),
	}, nil
}

// Cleanup deletes activity records whose date is strictly older than
// now - daysToKeep days. A negative horizon is rejected before any delete.
func (s *Service) Cleanup(ctx context.Context, daysToKeep int, now time.Time) (int64, error) {
	if daysToKeep < 0 {
		return 0, ErrInvalidRetention
	}
	if daysToKeep < s.mauWindowDays {
		log.Printf("cleanup: days_to_keep=%d is below the MAU window of %d days, monthly counts will shrink", daysToKeep, s.mauWindowDays)
	}

	cutoff := Day(now).AddDate(0, 0, -daysToKeep)
	return s.repo.PurgeOlderThan(ctx, cutoff)
}
