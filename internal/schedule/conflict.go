package schedule

import "github.com/stemsi/course-planner/internal/model"

// FindConflict parses candidateRaw and returns the first enrolled section that
// shares a meeting with it. Sections are checked in enrollment order and slots
// in parse order; the search stops at the first collision. A candidate without
// parseable slots never conflicts.
func (p *Parser) FindConflict(candidateRaw string, enrolled []model.Section) (model.Section, bool) {
	return p.firstConflict(p.Parse(candidateRaw), enrolled)
}

// FindConflict runs Parser.FindConflict on a package-level parser.
func FindConflict(candidateRaw string, enrolled []model.Section) (model.Section, bool) {
	return defaultParser.FindConflict(candidateRaw, enrolled)
}

func (p *Parser) firstConflict(candidate []model.TimeSlot, enrolled []model.Section) (model.Section, bool) {
	if len(candidate) == 0 {
		return model.Section{}, false
	}

	for _, section := range enrolled {
		existing := p.SlotsOf(section)
		for _, c := range candidate {
			for _, e := range existing {
				if c.Overlaps(e) {
					return section, true
				}
			}
		}
	}
	return model.Section{}, false
}
