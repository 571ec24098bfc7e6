// Package postgres provides pgx-backed persistence for visitor activity facts.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/usercounter/internal/domain"
	"example.com/usercounter/internal/events"
	"example.com/usercounter/internal/observability"
)

// Repository persists activity records and enqueues outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordActivity inserts the (client, UTC day) fact, relying on the
// UNIQUE (client_id, activity_date) constraint to resolve concurrent
// inserts: exactly one caller sees created=true, the rest no-op. The
// first visit of the day also records a visitor.first_seen outbox event
// in the same transaction.
func (r *Repository) RecordActivity(ctx context.Context, clientID string, seenAt time.Time) (bool, error) {
	day := domain.Day(seenAt)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, unavailable(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO visitor_activity (client_id, seen_at, activity_date)
        VALUES ($1, $2, $3::date)
        ON CONFLICT (client_id, activity_date) DO NOTHING`

	tag, err := tx.Exec(ctx, insert, clientID, seenAt.UTC(), day)
	if err != nil {
		return false, unavailable(err)
	}
	created := tag.RowsAffected() == 1

	if created {
		if err = r.insertOutbox(ctx, tx, clientID, day, events.VisitorFirstSeen{
			ClientID: clientID,
			SeenAt:   seenAt.UTC(),
			Date:     day.Format(time.DateOnly),
		}); err != nil {
			return false, unavailable(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, unavailable(err)
	}

	observability.RecordVisit(created, seenAt.UTC())
	return created, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, clientID string, day time.Time, payload events.VisitorFirstSeen) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[events.TypeVisitorFirstSeen]
	dedupeKey := fmt.Sprintf("%s:%s:%s", clientID, day.Format(time.DateOnly), events.TypeVisitorFirstSeen)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"visitor",
		clientID,
		events.TypeVisitorFirstSeen,
		meta.Topic,
		meta.SchemaSubject,
		clientID,
		body,
		dedupeKey,
	)
	return err
}

// DailyActiveUsers counts distinct clients active on the given UTC date.
func (r *Repository) DailyActiveUsers(ctx context.Context, date time.Time) (int, error) {
	const query = `SELECT COUNT(DISTINCT client_id) FROM visitor_activity WHERE activity_date = $1::date`

	var count int
	if err := r.pool.QueryRow(ctx, query, domain.Day(date)).Scan(&count); err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// MonthlyActiveUsers counts distinct clients active in the trailing
// windowDays calendar days ending at reference, inclusive.
func (r *Repository) MonthlyActiveUsers(ctx context.Context, reference time.Time, windowDays int) (int, error) {
	const query = `SELECT COUNT(DISTINCT client_id)
        FROM visitor_activity
        WHERE activity_date > $1::date - $2::int AND activity_date <= $1::date`

	var count int
	if err := r.pool.QueryRow(ctx, query, domain.Day(reference), windowDays).Scan(&count); err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// TotalUniqueUsers counts distinct clients across all stored records.
// Records removed by retention no longer contribute.
func (r *Repository) TotalUniqueUsers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(DISTINCT client_id) FROM visitor_activity`

	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// DailyBreakdown returns one entry per day of the trailing window ending at
// reference, most recent first. Days without activity appear as zeros; the
// generate_series join keeps the window dense.
func (r *Repository) DailyBreakdown(ctx context.Context, reference time.Time, windowDays int) ([]domain.DayCount, error) {
	const query = `SELECT gs::date AS day, COUNT(DISTINCT v.client_id) AS users
        FROM generate_series($1::date - ($2::int - 1), $1::date, interval '1 day') AS gs
        LEFT JOIN visitor_activity v ON v.activity_date = gs::date
        GROUP BY day
        ORDER BY day DESC`

	rows, err := r.pool.Query(ctx, query, domain.Day(reference), windowDays)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	breakdown := make([]domain.DayCount, 0, windowDays)
	for rows.Next() {
		var entry domain.DayCount
		if err := rows.Scan(&entry.Date, &entry.Users); err != nil {
			return nil, unavailable(err)
		}
		entry.Date = entry.Date.UTC()
		breakdown = append(breakdown, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return breakdown, nil
}

// PurgeOlderThan deletes every record with activity_date strictly before
// cutoff and reports how many rows were removed.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const stmt = `DELETE FROM visitor_activity WHERE activity_date < $1::date`

	tag, err := r.pool.Exec(ctx, stmt, domain.Day(cutoff))
	if err != nil {
		return 0, unavailable(err)
	}

	deleted := tag.RowsAffected()
	observability.RecordPurge(deleted)
	return deleted, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeVisitorFirstSeen: {
		Topic:         "visitor_events",
		SchemaSubject: "visitor_events-value",
	},
}
