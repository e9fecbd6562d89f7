package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/barpos/api/internal/config"
	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/notify"
	"github.com/barpos/api/internal/router"
	"github.com/barpos/api/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	// Notifications ride the in-process hub unless a NATS relay is
	// configured for multi-instance deployments.
	var notifier notify.Notifier = hub
	if cfg.Notifier == "nats" {
		nc, err := notify.NewNATSNotifier(cfg.NATSURL)
		if err != nil {
			log.Fatalf("Unable to connect to NATS: %v", err)
		}
		defer nc.Close()
		notifier = nc
		log.Printf("Publishing notifications to NATS at %s", cfg.NATSURL)
	}

	r := router.New(cfg, queries, pool, hub, notifier)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Println("Migrations applied")
	return nil
}
