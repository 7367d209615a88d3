package model

import (
	"time"

	"github.com/google/uuid"
)

// ImportStatus enumerates catalog import job states.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// CatalogImport records one uploaded catalog workbook and its outcome.
type CatalogImport struct {
	ID           uuid.UUID    `json:"id"`
	FileName     string       `json:"file_name"`
	FilePath     string       `json:"-"`
	Status       ImportStatus `json:"status"`
	RowCount     int          `json:"row_count"`
	SectionCount int          `json:"section_count"`
	Error        *string      `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// CatalogQuery filters the catalog listing.
type CatalogQuery struct {
	Department string `form:"department" binding:"max=100"`
	Search     string `form:"q" binding:"max=100"`
	Page       int    `form:"page" binding:"omitempty,min=1,max=10000"`
	PerPage    int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}
