// Command janitor runs a single retention purge and exits. Scheduling is
// left to an external timer (cron, systemd timer) so the core never runs
// its own clock.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/usercounter/internal/config"
	"example.com/usercounter/internal/domain"
	persistence "example.com/usercounter/internal/persistence/postgres"
)

func main() {
	cfg := config.Load()

	days := flag.Int("days", cfg.RetentionDays, "keep activity records newer than this many days")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	service := domain.NewService(persistence.NewRepository(pool), cfg.MAUWindowDays, cfg.BreakdownDays)

	deleted, err := service.Cleanup(ctx, *days, time.Now().UTC())
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}

	log.Printf("purge complete: removed %d records older than %d days", deleted, *days)
}
