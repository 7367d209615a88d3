package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/course-planner/internal/model"
)

// CatalogImportRepository handles the catalog import job log.
type CatalogImportRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogImportRepository creates a new CatalogImportRepository.
func NewCatalogImportRepository(pool *pgxpool.Pool) *CatalogImportRepository {
	return &CatalogImportRepository{pool: pool}
}

// Create inserts a new import row and fills its creation time.
func (r *CatalogImportRepository) Create(ctx context.Context, imp *model.CatalogImport) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO catalog_imports (id, file_name, file_path, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		imp.ID, imp.FileName, imp.FilePath, imp.Status,
	).Scan(&imp.CreatedAt)
}

// GetByID retrieves an import by ID.
func (r *CatalogImportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CatalogImport, error) {
	imp := &model.CatalogImport{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, file_name, file_path, status, row_count, section_count, error, created_at, finished_at
		 FROM catalog_imports WHERE id = $1`, id,
	).Scan(&imp.ID, &imp.FileName, &imp.FilePath, &imp.Status, &imp.RowCount, &imp.SectionCount,
		&imp.Error, &imp.CreatedAt, &imp.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return imp, nil
}

// MarkProcessing flags a pending import as picked up by a worker.
func (r *CatalogImportRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE catalog_imports SET status = $1 WHERE id = $2`,
		model.ImportStatusProcessing, id)
	return err
}

// MarkCompleted records a successful import.
func (r *CatalogImportRepository) MarkCompleted(ctx context.Context, id uuid.UUID, rowCount, sectionCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE catalog_imports
		 SET status = $1, row_count = $2, section_count = $3, error = NULL, finished_at = NOW()
		 WHERE id = $4`,
		model.ImportStatusCompleted, rowCount, sectionCount, id)
	return err
}

// MarkFailed records a failed import with its reason.
func (r *CatalogImportRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE catalog_imports SET status = $1, error = $2, finished_at = NOW() WHERE id = $3`,
		model.ImportStatusFailed, reason, id)
	return err
}
