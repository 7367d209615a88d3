package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/schedule"
)

// Export errors.
var (
	ErrNothingToExport = errors.New("working set is empty")
	ErrExportGenerate  = errors.New("generate workbook")
)

// WorkingSetSource loads a non-empty working set and its grid.
type WorkingSetSource interface {
	Export(ctx context.Context, id uuid.UUID) (*model.PlannerSession, *TimetableView, error)
}

type exportNames struct {
	timetableSheet string
	sectionsSheet  string
	fileName       string
}

var exportNamesByLang = map[model.Language]exportNames{
	model.LangEN: {timetableSheet: "Timetable", sectionsSheet: "Selected Courses", fileName: "timetable.xlsx"},
	model.LangZH: {timetableSheet: "课程表", sectionsSheet: "已选课程", fileName: "课程表.xlsx"},
}

// ExportService writes a working set out as an xlsx workbook.
type ExportService struct {
	source WorkingSetSource
	log    zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(source WorkingSetSource, log zerolog.Logger) *ExportService {
	return &ExportService{
		source: source,
		log:    log.With().Str("component", "export_service").Logger(),
	}
}

// Export builds the workbook for session id in lang: the timetable grid on
// the first sheet and the selected sections on the second. It returns the
// workbook bytes and a suggested file name.
func (s *ExportService) Export(ctx context.Context, id uuid.UUID, lang model.Language) (*bytes.Buffer, string, error) {
	sess, timetable, err := s.source.Export(ctx, id)
	if err != nil {
		return nil, "", err
	}

	names, ok := exportNamesByLang[lang]
	if !ok {
		names = exportNamesByLang[model.LangEN]
	}

	buf, err := buildWorkbook(
		names,
		schedule.GridTable(timetable.Grid, lang),
		schedule.SectionRecords(sess.Enrolled, lang),
	)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Write workbook failed")
		return nil, "", ErrExportGenerate
	}
	return buf, names.fileName, nil
}

// buildWorkbook lays the grid table and section records out on two sheets.
func buildWorkbook(names exportNames, grid, records [][]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(names.timetableSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(names.sectionsSheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	if err := writeRows(f, names.timetableSheet, grid); err != nil {
		return nil, err
	}
	f.SetColWidth(names.timetableSheet, "A", "A", 8)
	f.SetColWidth(names.timetableSheet, colName(1), colName(model.DaysPerWeek), 24)
	f.SetCellStyle(names.timetableSheet, "A1", cell(colName(model.DaysPerWeek), 1), headerStyle)
	f.SetCellStyle(names.timetableSheet, "B2", cell(colName(model.DaysPerWeek), len(grid)), cellStyle)

	if err := writeRows(f, names.sectionsSheet, records); err != nil {
		return nil, err
	}
	if len(records) > 0 {
		last := colName(len(records[0]) - 1)
		f.SetColWidth(names.sectionsSheet, "A", last, 16)
		f.SetCellStyle(names.sectionsSheet, "A1", cell(last, 1), headerStyle)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell("A", i+1), &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
