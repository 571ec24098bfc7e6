//go:build integration

package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/usercounter/internal/events"
)

type capturingProducer struct {
	messages map[string][]kafka.Message
	err      error
}

func (p *capturingProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	if p.messages == nil {
		p.messages = make(map[string][]kafka.Message)
	}
	p.messages[topic] = append(p.messages[topic], msgs...)
	return nil
}

type staticRegistry struct {
	id    int
	calls int
}

func (r *staticRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	r.calls++
	return r.id, nil
}

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("visitors"),
		postgrescontainer.WithUsername("counter"),
		postgrescontainer.WithPassword("counter"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	deadline := time.Now().Add(30 * time.Second)
	var pool *pgxpool.Pool
	for {
		pool, err = pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		require.False(t, time.Now().After(deadline), "database did not become ready: %v", err)
		time.Sleep(time.Second)
	}
	t.Cleanup(func() { pool.Close() })

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	migration := filepath.Join(filepath.Dir(file), "../../db/postgres/migrations/0001_init.up.sql")
	contents, err := os.ReadFile(migration)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)

	return pool
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, clientID string) {
	t.Helper()

	payload, err := json.Marshal(events.VisitorFirstSeen{
		ClientID: clientID,
		SeenAt:   time.Now().UTC(),
		Date:     time.Now().UTC().Format(time.DateOnly),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
         VALUES ('visitor', $1, $2, 'visitor_events', 'visitor_events-value', $1, $3, $1 || ':' || $2)`,
		clientID, events.TypeVisitorFirstSeen, payload,
	)
	require.NoError(t, err)
}

func TestDispatcherDeliversAndMarksPublished(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	seedOutbox(t, ctx, pool, "client-1")
	seedOutbox(t, ctx, pool, "client-2")

	producer := &capturingProducer{}
	registry := &staticRegistry{id: 7}
	dispatcher := NewDispatcher(pool, producer, registry, time.Second, 10)

	require.NoError(t, dispatcher.processBatch(ctx))

	delivered := producer.messages["visitor_events"]
	require.Len(t, delivered, 2)

	// Confluent framing: magic byte then big-endian schema ID.
	frame := delivered[0].Value
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(frame[1:5]))

	var decoded events.VisitorFirstSeen
	require.NoError(t, json.Unmarshal(frame[5:], &decoded))
	require.Equal(t, "client-1", decoded.ClientID)

	var headerType string
	for _, h := range delivered[0].Headers {
		if h.Key == "event_type" {
			headerType = string(h.Value)
		}
	}
	require.Equal(t, events.TypeVisitorFirstSeen, headerType)

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Zero(t, unpublished)

	// Schema ID is cached after the first lookup.
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Equal(t, 1, registry.calls)
}

func TestDispatcherLeavesRowsOnDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)

	seedOutbox(t, ctx, pool, "client-3")

	producer := &capturingProducer{err: errors.New("broker down")}
	registry := &staticRegistry{id: 7}
	dispatcher := NewDispatcher(pool, producer, registry, time.Second, 10)

	require.Error(t, dispatcher.processBatch(ctx))

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Equal(t, 1, unpublished, "failed deliveries must stay queued for retry")
}
