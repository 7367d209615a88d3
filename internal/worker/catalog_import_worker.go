package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/metrics"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/service"
)

const (
	ImportPollTimeout = 1 * time.Second // Must be >= 1s to satisfy Redis
	importJobTimeout  = 2 * time.Minute
)

// JobSource pops jobs off Redis lists.
type JobSource interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// FileImporter imports one catalog workbook.
type FileImporter interface {
	ImportFile(ctx context.Context, path, source string) (service.ImportResult, error)
}

type CatalogImportWorker struct {
	queue    JobSource
	imports  service.ImportStore
	importer FileImporter
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewCatalogImportWorker(queue JobSource, imports service.ImportStore, importer FileImporter, m *metrics.Metrics, log zerolog.Logger) *CatalogImportWorker {
	return &CatalogImportWorker{
		queue:    queue,
		imports:  imports,
		importer: importer,
		metrics:  m,
		log:      log.With().Str("component", "catalog_import_worker").Logger(),
	}
}

// Start consumes import jobs until ctx is cancelled. Jobs run one at a time;
// a job in flight when ctx ends is finished on a detached context.
func (w *CatalogImportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CatalogImportWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CatalogImportWorker stopped")
			return
		default:
		}

		result, err := w.queue.BLPop(ctx, ImportPollTimeout, config.WorkerKey.CatalogImportQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Queue empty
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job service.ImportJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			// Malformed payloads cannot be retried.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed import job")
			continue
		}

		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importJobTimeout)
		w.process(jobCtx, job)
		cancel()
	}
}

func (w *CatalogImportWorker) process(ctx context.Context, job service.ImportJob) {
	log := w.log.With().Str("import_id", job.ImportID.String()).Logger()

	imp, err := w.imports.GetByID(ctx, job.ImportID)
	if err != nil {
		log.Error().Err(err).Msg("Import record not found, dropping job")
		return
	}
	if imp.Status != model.ImportStatusPending {
		log.Warn().Str("status", string(imp.Status)).Msg("Import already handled, skipping")
		return
	}

	if err := w.imports.MarkProcessing(ctx, imp.ID); err != nil {
		log.Error().Err(err).Msg("Mark processing failed")
		return
	}

	res, err := w.importer.ImportFile(ctx, imp.FilePath, imp.ID.String())
	if err != nil {
		log.Warn().Err(err).Msg("Catalog import failed")
		if markErr := w.imports.MarkFailed(ctx, imp.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("Mark failed failed")
		}
		w.metrics.RecordImport(string(model.ImportStatusFailed))
		return
	}

	if err := w.imports.MarkCompleted(ctx, imp.ID, res.RowCount, res.SectionCount); err != nil {
		log.Error().Err(err).Msg("Mark completed failed")
	}
	w.metrics.RecordImport(string(model.ImportStatusCompleted))

	if err := os.Remove(imp.FilePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Remove uploaded file failed")
	}

	log.Info().
		Int("rows", res.RowCount).
		Int("sections", res.SectionCount).
		Msg("Catalog import completed")
}
