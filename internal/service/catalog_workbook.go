package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/course-planner/internal/model"
)

// ErrMissingColumn is wrapped by ParseWorkbook when a required header is
// absent.
var ErrMissingColumn = errors.New("missing required column")

type column int

const (
	colCourseID column = iota
	colClassID
	colDepartment
	colTitle
	colCredits
	colInstructor
	colTime
	colEligibility
	columnCount
)

// Header names accepted per column, matched after trimming and lowercasing.
var columnAliases = [columnCount][]string{
	colCourseID:    {"课程号", "course id", "course_id"},
	colClassID:     {"班号", "class id", "class_id"},
	colDepartment:  {"院系", "department"},
	colTitle:       {"课程名", "course name", "title"},
	colCredits:     {"参考学分", "credits"},
	colInstructor:  {"授课教师", "instructor"},
	colTime:        {"上课时间", "time"},
	colEligibility: {"修读对象", "target audience", "eligibility"},
}

var requiredColumns = []column{colCourseID, colClassID, colTitle, colTime}

// SampleRows is the demonstration catalog offered when no file is loaded.
func SampleRows() []model.RawSection {
	const dept = "计算机学院"
	const deptStudents = "计算机学院学生"
	return []model.RawSection{
		{CourseID: "CS101", ClassID: "01", Department: dept, Title: "计算机基础", Credits: "3", Instructor: "张老师", RawTime: "周一1-2，周三3-4", Eligibility: deptStudents},
		{CourseID: "CS102", ClassID: "01", Department: dept, Title: "Python编程", Credits: "3", Instructor: "李老师", RawTime: "周二1-2单，周四3-4单", Eligibility: "全校学生在籍"},
		{CourseID: "CS201", ClassID: "01", Department: dept, Title: "数据结构", Credits: "4", Instructor: "王老师", RawTime: "周一3-4双，周五1-2双", Eligibility: deptStudents},
		{CourseID: "CS202", ClassID: "01", Department: dept, Title: "算法分析", Credits: "4", Instructor: "赵老师", RawTime: "周二5-6，周四5-6", Eligibility: deptStudents},
		{CourseID: "CS301", ClassID: "01", Department: dept, Title: "数据库原理", Credits: "3", Instructor: "孙老师", RawTime: "周三7-8，周五3-4", Eligibility: deptStudents},
		{CourseID: "CS302", ClassID: "01", Department: dept, Title: "操作系统", Credits: "3", Instructor: "周老师", RawTime: "周一7-8单，周三7-8单", Eligibility: deptStudents},
		{CourseID: "CS401", ClassID: "01", Department: dept, Title: "计算机网络", Credits: "3", Instructor: "吴老师", RawTime: "周二7-8双，周四7-8双", Eligibility: deptStudents},
		{CourseID: "CS402", ClassID: "01", Department: dept, Title: "软件工程", Credits: "3", Instructor: "郑老师", RawTime: "周五5-6", Eligibility: deptStudents},
	}
}

// ParseWorkbook reads catalog rows from the first sheet of an xlsx file.
// Columns are located by header, so extra columns and any column order are
// accepted. Blank rows are skipped; rows are returned unmerged.
func ParseWorkbook(r io.Reader) ([]model.RawSection, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	headerAt := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return []model.RawSection{}, nil
	}

	positions, err := locateColumns(rows[headerAt])
	if err != nil {
		return nil, err
	}

	out := make([]model.RawSection, 0, len(rows)-headerAt-1)
	for _, row := range rows[headerAt+1:] {
		if blankRow(row) {
			continue
		}
		get := func(c column) string {
			i := positions[c]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		out = append(out, model.RawSection{
			CourseID:    get(colCourseID),
			ClassID:     get(colClassID),
			Department:  get(colDepartment),
			Title:       get(colTitle),
			Credits:     get(colCredits),
			Instructor:  get(colInstructor),
			RawTime:     get(colTime),
			Eligibility: get(colEligibility),
		})
	}
	return out, nil
}

func locateColumns(header []string) ([columnCount]int, error) {
	var positions [columnCount]int
	for c := range positions {
		positions[c] = -1
	}

	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for c, aliases := range columnAliases {
			if positions[c] >= 0 {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					positions[c] = i
				}
			}
		}
	}

	for _, c := range requiredColumns {
		if positions[c] < 0 {
			return positions, fmt.Errorf("%w: %s", ErrMissingColumn, columnAliases[c][0])
		}
	}
	return positions, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteWorkbook renders raw rows as an xlsx catalog with Chinese headers,
// the layout ParseWorkbook reads back.
func WriteWorkbook(rows []model.RawSection) (*bytes.Buffer, error) {
	records := make([][]string, 0, len(rows)+1)
	header := make([]string, columnCount)
	for c, aliases := range columnAliases {
		header[c] = aliases[0]
	}
	records = append(records, header)
	for _, r := range rows {
		records = append(records, []string{
			r.CourseID, r.ClassID, r.Department, r.Title,
			r.Credits, r.Instructor, r.RawTime, r.Eligibility,
		})
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := writeRows(f, "Sheet1", records); err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
