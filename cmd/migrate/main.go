package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vatworks/api/internal/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	direction := flag.String("direction", "up", "migration direction: up or down")
	dbURL := flag.String("db", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	steps := flag.Int("steps", 1, "number of migrations to roll back (down only)")
	flag.Parse()

	if *dbURL == "" {
		*dbURL = os.Getenv("DATABASE_URL")
	}
	if *dbURL == "" {
		slog.Error("database URL is required: use -db flag or DATABASE_URL env var")
		os.Exit(1)
	}

	if err := run(*direction, *dbURL, *steps); err != nil {
		slog.Error("migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}
}

func run(direction, dbURL string, steps int) error {
	switch direction {
	case "up":
		return database.Migrate(dbURL)
	case "down":
		if steps < 1 {
			steps = 1
		}
		for i := 0; i < steps; i++ {
			if err := database.MigrateDown(dbURL); err != nil {
				return fmt.Errorf("step %d of %d: %w", i+1, steps, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown direction %q (use up or down)", direction)
	}
}
