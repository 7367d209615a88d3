package schedule

import (
	"strings"

	"github.com/stemsi/course-planner/internal/model"
)

// MergeRows collapses catalog rows sharing (course, class) into one Section.
// The first row of a key supplies every field except eligibility, which is
// the union of all rows' eligibility pieces in first-seen order without
// duplicates. Each text is split on '，' into pieces, so a single-row key is
// normalised the same way (blank and repeated pieces dropped). Sections come
// out in first-seen key order with their slots already parsed. Rows without a
// course id are skipped.
func (p *Parser) MergeRows(rows []model.RawSection) []model.Section {
	type merged struct {
		section  model.Section
		audience []string
		seen     map[string]struct{}
	}

	index := make(map[model.SectionKey]int, len(rows))
	var out []*merged

	for _, row := range rows {
		key := model.SectionKey{
			CourseID: strings.TrimSpace(row.CourseID),
			ClassID:  strings.TrimSpace(row.ClassID),
		}
		if key.CourseID == "" {
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, &merged{
				section: model.Section{
					CourseID:   key.CourseID,
					ClassID:    key.ClassID,
					Department: strings.TrimSpace(row.Department),
					Title:      strings.TrimSpace(row.Title),
					Credits:    ParseCredits(row.Credits),
					Instructor: strings.TrimSpace(row.Instructor),
					RawTime:    strings.TrimSpace(row.RawTime),
				},
				seen: make(map[string]struct{}),
			})
		}

		m := out[i]
		for _, part := range strings.Split(row.Eligibility, eligibilitySeparator) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := m.seen[part]; dup {
				continue
			}
			m.seen[part] = struct{}{}
			m.audience = append(m.audience, part)
		}
	}

	sections := make([]model.Section, len(out))
	for i, m := range out {
		s := m.section
		s.Eligibility = strings.Join(m.audience, eligibilitySeparator)
		s.Slots = p.Parse(s.RawTime)
		sections[i] = s
	}
	return sections
}

// MergeRows runs Parser.MergeRows on a package-level parser.
func MergeRows(rows []model.RawSection) []model.Section {
	return defaultParser.MergeRows(rows)
}
