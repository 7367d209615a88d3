package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/database"
	"github.com/stemsi/course-planner/internal/logger"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/service"
)

// import-catalog replaces the stored catalog with the rows of an xlsx file,
// bypassing the upload queue.
func main() {
	var file string
	flag.StringVar(&file, "file", "", "Path to the catalog workbook (.xlsx)")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "Usage: import-catalog -file <catalog.xlsx>")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Running servers reload on the notification; without Redis they pick
	// the catalog up on their next restart.
	var publisher service.Publisher
	if rdb, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, servers will not be notified")
	} else {
		defer rdb.Close()
		publisher = rdb
	}

	importer := service.NewCatalogImporter(repository.NewSectionRepository(pool), publisher, schedule.NewParser(), log)

	res, err := importer.ImportFile(ctx, file, "cli:"+filepath.Base(file))
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Import failed")
	}

	fmt.Printf("Imported %d rows into %d sections from %s\n", res.RowCount, res.SectionCount, file)
}
