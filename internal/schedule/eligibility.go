package schedule

import (
	"strings"

	"github.com/stemsi/course-planner/internal/model"
)

// Profile is the department membership a catalog listing is filtered by.
type Profile struct {
	Department       string
	SecondDepartment string
	Degree           model.DegreeType
}

// ProfileOf extracts the eligibility profile of a planner session.
func ProfileOf(s *model.PlannerSession) Profile {
	return Profile{
		Department:       s.Department,
		SecondDepartment: s.SecondDepartment,
		Degree:           s.DegreeType,
	}
}

// Eligible reports whether s is visible to p: the section belongs to the
// student's department, to the second department of a double degree, or is
// open to the whole school.
func Eligible(s model.Section, p Profile) bool {
	if s.Department != "" {
		if s.Department == p.Department {
			return true
		}
		if p.Degree == model.DegreeDouble && s.Department == p.SecondDepartment {
			return true
		}
	}
	return OpenToAll(s.Eligibility)
}

// OpenToAll reports whether an eligibility text carries the whole-school marker.
func OpenToAll(eligibility string) bool {
	lower := strings.ToLower(eligibility)
	for _, marker := range openToAllMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
