package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"dex-sentinel/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"

	usage = "usage: go run ./cmd/migrate [up|down|version] [steps]"
)

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	if err := validate(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	msg, err := run(ctx, pool, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	log.Println(msg)
}

func validate(args []string) error {
	switch args[0] {
	case cmdUp, cmdVersion:
		return nil
	case cmdDown:
		_, err := parseSteps(args[1:])
		return err
	default:
		return fmt.Errorf("unknown command %q. %s", args[0], usage)
	}
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid down steps: %q", args[0])
	}
	return n, nil
}

func run(ctx context.Context, pool db.Migrator, args []string) (string, error) {
	if err := validate(args); err != nil {
		return "", err
	}
	migrations, err := db.LoadMigrations(db.MigrationsFS)
	if err != nil {
		return "", fmt.Errorf("load migrations: %w", err)
	}

	switch args[0] {
	case cmdUp:
		applied, err := db.MigrateUp(ctx, pool, migrations)
		if err != nil {
			return "", fmt.Errorf("apply migrations up: %w", err)
		}
		return fmt.Sprintf("migrations up complete (%d applied)", applied), nil
	case cmdDown:
		steps, _ := parseSteps(args[1:])
		rolledBack, err := db.MigrateDown(ctx, pool, migrations, steps)
		if err != nil {
			return "", fmt.Errorf("apply migrations down: %w", err)
		}
		return fmt.Sprintf("migrations down complete (%d rolled back)", rolledBack), nil
	default:
		version, name, err := db.CurrentVersion(ctx, pool)
		if err != nil {
			return "", fmt.Errorf("read current version: %w", err)
		}
		if version == 0 {
			return "no migrations applied", nil
		}
		return fmt.Sprintf("current version: %d (%s)", version, name), nil
	}
}
