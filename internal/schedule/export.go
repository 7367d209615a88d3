package schedule

import (
	"strconv"
	"strings"

	"github.com/stemsi/course-planner/internal/model"
)

// GridTable renders g as rows of text: a header (period column plus one
// column per day) followed by one row per period. Cell text joins the labels
// of a cell with newlines; odd and even week entries carry a suffix.
func GridTable(g Grid, lang model.Language) [][]string {
	l := labelsFor(lang)

	rows := make([][]string, 0, model.PeriodsPerDay+1)
	header := make([]string, 0, model.DaysPerWeek+1)
	header = append(header, l.periods)
	header = append(header, l.days[:]...)
	rows = append(rows, header)

	for period := 1; period <= model.PeriodsPerDay; period++ {
		row := make([]string, 0, model.DaysPerWeek+1)
		row = append(row, strconv.Itoa(period))
		for _, day := range model.Days {
			row = append(row, cellText(g.Cell(day, period), l))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellText(entries []GridEntry, l labels) string {
	if len(entries) == 0 {
		return ""
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		switch e.Parity {
		case model.ParityOdd:
			texts[i] = e.Label + " " + l.odd
		case model.ParityEven:
			texts[i] = e.Label + " " + l.even
		default:
			texts[i] = e.Label
		}
	}
	return strings.Join(texts, "\n")
}

// SectionRecords flattens sections into a header row plus one row each, in
// the column order catalog ingestion reads back.
func SectionRecords(sections []model.Section, lang model.Language) [][]string {
	l := labelsFor(lang)

	rows := make([][]string, 0, len(sections)+1)
	rows = append(rows, append([]string(nil), l.sectionHeads...))
	for _, s := range sections {
		rows = append(rows, []string{
			s.CourseID,
			s.ClassID,
			s.Department,
			s.Title,
			strconv.FormatFloat(s.Credits, 'f', -1, 64),
			s.Instructor,
			s.RawTime,
			s.Eligibility,
		})
	}
	return rows
}
