package schedule

import (
	"errors"
	"fmt"

	"github.com/stemsi/course-planner/internal/model"
)

// Enrollment errors.
var (
	ErrAlreadyEnrolled = errors.New("section already enrolled")
	ErrInvalidPosition = errors.New("enrolled position out of range")
)

// ConflictError reports the enrolled section a candidate collides with.
type ConflictError struct {
	Candidate   model.Section
	Conflicting model.Section
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time conflict between %s and %s", e.Candidate.Label(), e.Conflicting.Label())
}

// EnrolledSet is the ordered selection of one planner session. It is not
// safe for concurrent use; each session owns its own set.
type EnrolledSet struct {
	parser   *Parser
	sections []model.Section
	grid     GridCache
}

// NewEnrolledSet builds a set from sections already chosen, in order.
// A nil parser selects the package-level one.
func NewEnrolledSet(p *Parser, sections ...model.Section) *EnrolledSet {
	if p == nil {
		p = defaultParser
	}
	return &EnrolledSet{
		parser:   p,
		sections: append([]model.Section(nil), sections...),
	}
}

// AttemptEnroll appends candidate unless it is already present or collides
// with an enrolled section, in which case a *ConflictError naming the first
// collision is returned. Credit totals are not checked.
func (s *EnrolledSet) AttemptEnroll(candidate model.Section) error {
	if s.Contains(candidate.Key()) {
		return ErrAlreadyEnrolled
	}
	if hit, ok := s.parser.firstConflict(s.parser.SlotsOf(candidate), s.sections); ok {
		return &ConflictError{Candidate: candidate, Conflicting: hit}
	}

	s.sections = append(s.sections, candidate)
	s.grid.Invalidate()
	return nil
}

// Remove deletes the section at position and returns it. The remaining
// sections keep their relative order.
func (s *EnrolledSet) Remove(position int) (model.Section, error) {
	if position < 0 || position >= len(s.sections) {
		return model.Section{}, ErrInvalidPosition
	}

	removed := s.sections[position]
	s.sections = append(s.sections[:position:position], s.sections[position+1:]...)
	s.grid.Invalidate()
	return removed, nil
}

// Timetable returns the grid of the current selection, reusing the cached
// grid until the next AttemptEnroll or Remove.
func (s *EnrolledSet) Timetable() Grid {
	return s.grid.Get(Fingerprint(s.Keys()), func() Grid {
		return s.parser.Project(s.sections)
	})
}

// TotalCredits sums the credits of the selection.
func (s *EnrolledSet) TotalCredits() float64 {
	return TotalCredits(s.sections)
}

// Sections returns a copy of the selection in enrollment order.
func (s *EnrolledSet) Sections() []model.Section {
	return append([]model.Section(nil), s.sections...)
}

// Keys lists the (course, class) keys in enrollment order.
func (s *EnrolledSet) Keys() []model.SectionKey {
	return KeysOf(s.sections)
}

// Contains reports whether key is enrolled.
func (s *EnrolledSet) Contains(key model.SectionKey) bool {
	for _, sec := range s.sections {
		if sec.Key() == key {
			return true
		}
	}
	return false
}

// Len returns the number of enrolled sections.
func (s *EnrolledSet) Len() int {
	return len(s.sections)
}
