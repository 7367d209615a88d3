package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/course-planner/internal/model"
)

var sectionColumns = []string{
	"course_id", "class_id", "position", "department", "title",
	"credits", "instructor", "raw_time", "eligibility", "slots",
}

// SectionRepository handles the merged catalog table.
type SectionRepository struct {
	pool *pgxpool.Pool
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(pool *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{pool: pool}
}

// List returns every section in catalog order.
func (r *SectionRepository) List(ctx context.Context) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT course_id, class_id, department, title, credits, instructor, raw_time, eligibility, slots
		 FROM sections ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]model.Section, 0)
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.CourseID, &s.ClassID, &s.Department, &s.Title, &s.Credits,
			&s.Instructor, &s.RawTime, &s.Eligibility, &s.Slots); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// GetByKey retrieves one section.
func (r *SectionRepository) GetByKey(ctx context.Context, key model.SectionKey) (*model.Section, error) {
	s := &model.Section{}
	err := r.pool.QueryRow(ctx,
		`SELECT course_id, class_id, department, title, credits, instructor, raw_time, eligibility, slots
		 FROM sections WHERE course_id = $1 AND class_id = $2`, key.CourseID, key.ClassID,
	).Scan(&s.CourseID, &s.ClassID, &s.Department, &s.Title, &s.Credits,
		&s.Instructor, &s.RawTime, &s.Eligibility, &s.Slots)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// Count returns the number of catalog sections.
func (r *SectionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sections`).Scan(&n)
	return n, err
}

// ReplaceAll swaps the whole catalog for sections in one transaction.
// Readers see either the old or the new catalog, never a mix.
func (r *SectionRepository) ReplaceAll(ctx context.Context, sections []model.Section) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sections`); err != nil {
		return 0, fmt.Errorf("clear sections: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sections"},
		sectionColumns,
		pgx.CopyFromSlice(len(sections), func(i int) ([]interface{}, error) {
			s := sections[i]
			slots := s.Slots
			if slots == nil {
				slots = []model.TimeSlot{}
			}
			return []interface{}{
				s.CourseID, s.ClassID, i, s.Department, s.Title,
				s.Credits, s.Instructor, s.RawTime, s.Eligibility, slots,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy sections: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
