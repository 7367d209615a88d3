package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/database"
	"github.com/stemsi/course-planner/internal/logger"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/service"
)

// seed-catalog loads the built-in sample courses, or writes them out as a
// workbook with -out for use as an upload template.
func main() {
	var out string
	flag.StringVar(&out, "out", "", "Write the sample catalog to this .xlsx path instead of the database")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	rows := service.SampleRows()

	if out != "" {
		buf, err := service.WriteWorkbook(rows)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build sample workbook")
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			log.Fatal().Err(err).Str("path", out).Msg("Failed to write sample workbook")
		}
		fmt.Printf("Wrote %d sample rows to %s\n", len(rows), out)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.AutoMigrate {
		if _, _, err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	var publisher service.Publisher
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, servers will not be notified")
	} else {
		defer rdb.Close()
		publisher = rdb
	}

	importer := service.NewCatalogImporter(repository.NewSectionRepository(pool), publisher, schedule.NewParser(), log)

	fmt.Println("=== Seeding Sample Catalog ===")
	res, err := importer.ImportRows(ctx, rows, "seed")
	if err != nil {
		log.Fatal().Err(err).Msg("Seed failed")
	}
	fmt.Printf("\nSeed completed! %d rows merged into %d sections.\n", res.RowCount, res.SectionCount)
}
