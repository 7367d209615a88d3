package schedule

import (
	"math"
	"strconv"
	"strings"

	"github.com/stemsi/course-planner/internal/model"
)

// CreditCaps holds the maximum credits per degree type.
type CreditCaps struct {
	Single float64
	Double float64
}

// DefaultCreditCaps are the term limits for single and double degrees.
var DefaultCreditCaps = CreditCaps{Single: 25, Double: 30}

// For returns the cap for degree. Unknown degree types get the single cap.
func (c CreditCaps) For(degree model.DegreeType) float64 {
	if degree == model.DegreeDouble {
		return c.Double
	}
	return c.Single
}

// IsOverLimit reports whether total exceeds the cap of degree.
func (c CreditCaps) IsOverLimit(total float64, degree model.DegreeType) bool {
	return IsOverLimit(total, c.For(degree))
}

// Summarize computes the credit banner for an enrolled set.
func (c CreditCaps) Summarize(enrolled []model.Section, degree model.DegreeType) model.CreditSummary {
	total := TotalCredits(enrolled)
	limit := c.For(degree)
	return model.CreditSummary{Total: total, Cap: limit, OverLimit: IsOverLimit(total, limit)}
}

// IsOverLimit reports whether total is strictly above limit. Exceeding the
// limit is a warning, never a reason to refuse enrollment.
func IsOverLimit(total, limit float64) bool {
	return total > limit
}

// TotalCredits sums the credit values of enrolled.
func TotalCredits(enrolled []model.Section) float64 {
	var total float64
	for _, s := range enrolled {
		if s.Credits > 0 && !math.IsInf(s.Credits, 0) {
			total += s.Credits
		}
	}
	return total
}

// ParseCredits reads a catalog credit value. Missing, non-numeric or
// negative values count as zero.
func ParseCredits(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
