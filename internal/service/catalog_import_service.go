package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/schedule"
)

// Sentinel errors for catalog uploads.
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrImportNotFound  = errors.New("catalog import not found")
)

const workbookExt = ".xlsx"

// ImportStore persists the catalog import job log.
type ImportStore interface {
	Create(ctx context.Context, imp *model.CatalogImport) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CatalogImport, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, rowCount, sectionCount int) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// JobQueue pushes jobs onto a Redis list.
type JobQueue interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// ImportJob is the queue payload of one catalog import.
type ImportJob struct {
	ImportID uuid.UUID `json:"import_id"`
}

// ImportService accepts catalog uploads and queues them for the worker.
type ImportService struct {
	imports   ImportStore
	queue     JobQueue
	uploadDir string
	maxBytes  int64
	log       zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(imports ImportStore, queue JobQueue, uploadDir string, maxBytes int64, log zerolog.Logger) *ImportService {
	return &ImportService{
		imports:   imports,
		queue:     queue,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		log:       log.With().Str("component", "import_service").Logger(),
	}
}

// Enqueue stores an uploaded workbook under a UUID file name, records a
// PENDING import and queues it.
func (s *ImportService) Enqueue(ctx context.Context, fileName string, size int64, r io.Reader) (*model.CatalogImport, error) {
	if !strings.EqualFold(filepath.Ext(fileName), workbookExt) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(fileName))
	}
	if size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, size, s.maxBytes)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	imp := &model.CatalogImport{
		ID:       uuid.New(),
		FileName: filepath.Base(fileName),
		Status:   model.ImportStatusPending,
	}
	imp.FilePath = filepath.Join(s.uploadDir, imp.ID.String()+workbookExt)

	if err := s.save(imp.FilePath, r); err != nil {
		return nil, err
	}

	if err := s.imports.Create(ctx, imp); err != nil {
		_ = os.Remove(imp.FilePath)
		return nil, fmt.Errorf("record import: %w", err)
	}

	payload, _ := json.Marshal(ImportJob{ImportID: imp.ID})
	if err := s.queue.RPush(ctx, config.WorkerKey.CatalogImportQueue, payload).Err(); err != nil {
		_ = s.imports.MarkFailed(ctx, imp.ID, "queue unavailable")
		return nil, fmt.Errorf("queue import: %w", err)
	}

	s.log.Info().
		Str("import_id", imp.ID.String()).
		Str("file_name", imp.FileName).
		Msg("Catalog import queued")
	return imp, nil
}

func (s *ImportService) save(path string, r io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	// The declared size can lie; stop one byte past the limit.
	n, err := io.Copy(dst, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}
	if n > s.maxBytes {
		_ = os.Remove(path)
		return fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	return nil
}

// Get returns the status of an import.
func (s *ImportService) Get(ctx context.Context, id uuid.UUID) (*model.CatalogImport, error) {
	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImportNotFound
		}
		return nil, err
	}
	return imp, nil
}

// SectionWriter replaces the stored catalog.
type SectionWriter interface {
	ReplaceAll(ctx context.Context, sections []model.Section) (int64, error)
}

// Publisher announces events over Redis pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ImportResult summarizes one import run.
type ImportResult struct {
	RowCount     int
	SectionCount int
}

// CatalogImporter merges raw rows into sections, replaces the stored catalog
// and notifies running servers.
type CatalogImporter struct {
	sections  SectionWriter
	publisher Publisher
	parser    *schedule.Parser
	log       zerolog.Logger
}

// NewCatalogImporter creates a new CatalogImporter. publisher may be nil.
func NewCatalogImporter(sections SectionWriter, publisher Publisher, parser *schedule.Parser, log zerolog.Logger) *CatalogImporter {
	return &CatalogImporter{
		sections:  sections,
		publisher: publisher,
		parser:    parser,
		log:       log.With().Str("component", "catalog_importer").Logger(),
	}
}

// ImportFile parses the workbook at path and imports its rows.
func (i *CatalogImporter) ImportFile(ctx context.Context, path, source string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ParseWorkbook(f)
	if err != nil {
		return ImportResult{}, err
	}
	return i.ImportRows(ctx, rows, source)
}

// ImportRows merges rows and replaces the catalog with the result. source
// identifies the import in the update notification.
func (i *CatalogImporter) ImportRows(ctx context.Context, rows []model.RawSection, source string) (ImportResult, error) {
	merged := i.parser.MergeRows(rows)
	if len(merged) == 0 {
		return ImportResult{RowCount: len(rows)}, fmt.Errorf("%w: no course rows", ErrCatalogEmpty)
	}

	if _, err := i.sections.ReplaceAll(ctx, merged); err != nil {
		return ImportResult{}, fmt.Errorf("replace catalog: %w", err)
	}

	if i.publisher != nil {
		if err := i.publisher.Publish(ctx, config.CacheKey.CatalogUpdatedChannel(), source).Err(); err != nil {
			i.log.Warn().Err(err).Msg("Catalog update notification failed")
		}
	}

	i.log.Info().
		Int("rows", len(rows)).
		Int("sections", len(merged)).
		Str("source", source).
		Msg("Catalog replaced")
	return ImportResult{RowCount: len(rows), SectionCount: len(merged)}, nil
}
