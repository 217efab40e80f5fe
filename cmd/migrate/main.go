package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ms-badging/internal/config"
	"ms-badging/internal/database/migrations"
	"ms-badging/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	version := flag.Uint("version", 0, "migrate to this exact version instead (0 = ignore)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	if cfg.Database.Driver != "postgres" {
		log.Fatal("MIGRATE", fmt.Sprintf("migrations only run against postgres, DB_DRIVER is %q", cfg.Database.Driver))
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to open database: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to connect to database: %v", err))
	}

	runner := migrations.NewRunner(sqldb, migrations.Options{SourceURL: cfg.Database.Migrations}, log)
	defer runner.Close()

	switch {
	case *version > 0:
		err = runner.To(*version)
	case *direction == "up":
		err = runner.Up()
	case *direction == "down":
		err = runner.Down()
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", *direction)
		os.Exit(2)
	}
	if err != nil {
		log.Error("MIGRATE", err.Error())
		runner.Close()
		os.Exit(1)
	}
	log.Info("MIGRATE", fmt.Sprintf("Migration %s complete", *direction))
}
