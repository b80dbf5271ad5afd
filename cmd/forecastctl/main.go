package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/repository/postgres"
	"github.com/szlkpr/ims-ml-service/internal/storage"
	"github.com/szlkpr/ims-ml-service/pkg/logger"
)

type contextKey string

const (
	dbKey      contextKey = "db"
	storageKey contextKey = "storage"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func initStorage(c *cli.Context) error {
	cfg := config.Load().Storage
	cfg.Enabled = true

	client, err := storage.NewMinioClient(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to report storage: %w", err)
	}

	c.Context = context.WithValue(c.Context, storageKey, storage.ObjectStorage(client))
	return nil
}

func storageFrom(c *cli.Context) storage.ObjectStorage {
	s, _ := c.Context.Value(storageKey).(storage.ObjectStorage)
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "forecastctl",
		Usage: "Offline forecasting, optimization and run inspection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			predictCommand(),
			optimizeCommand(),
			{
				Name:  "runs",
				Usage: "List recorded forecast runs for a product",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "product",
						Usage:    "Product name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runRuns,
			},
			reportsCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
