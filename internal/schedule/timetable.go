package schedule

import (
	"strings"

	"github.com/stemsi/course-planner/internal/model"
)

// GridEntry is one section occupying a timetable cell.
type GridEntry struct {
	Label    string       `json:"label"`
	Parity   model.Parity `json:"parity"`
	CourseID string       `json:"course_id"`
	ClassID  string       `json:"class_id"`
}

// Grid is the week/period occupancy matrix, indexed [day][period-1].
// Every cell holds a non-nil slice so empty cells encode as [].
type Grid [model.DaysPerWeek][model.PeriodsPerDay][]GridEntry

// NewGrid returns a grid with every cell empty.
func NewGrid() Grid {
	var g Grid
	for d := range g {
		for p := range g[d] {
			g[d][p] = []GridEntry{}
		}
	}
	return g
}

// Clone returns a grid whose cells share no memory with g.
func (g *Grid) Clone() Grid {
	var out Grid
	for d := range g {
		for p := range g[d] {
			out[d][p] = append(make([]GridEntry, 0, len(g[d][p])), g[d][p]...)
		}
	}
	return out
}

// Cell returns the entries at (day, period), period being 1-based.
// Out-of-range coordinates yield nil.
func (g *Grid) Cell(day model.Day, period int) []GridEntry {
	if !day.Valid() || period < 1 || period > model.PeriodsPerDay {
		return nil
	}
	return g[day.Index()][period-1]
}

// Project folds enrolled sections into a grid. Entries within a cell follow
// enrollment order, then slot order. Periods beyond the grid are skipped.
func (p *Parser) Project(enrolled []model.Section) Grid {
	g := NewGrid()
	for _, section := range enrolled {
		label := section.Label()
		for _, slot := range p.SlotsOf(section) {
			if !slot.Day.Valid() {
				continue
			}
			for period := max(slot.StartPeriod, 1); period <= min(slot.EndPeriod, model.PeriodsPerDay); period++ {
				cell := &g[slot.Day.Index()][period-1]
				*cell = append(*cell, GridEntry{
					Label:    label,
					Parity:   slot.Parity,
					CourseID: section.CourseID,
					ClassID:  section.ClassID,
				})
			}
		}
	}
	return g
}

// Project runs Parser.Project on a package-level parser.
func Project(enrolled []model.Section) Grid {
	return defaultParser.Project(enrolled)
}

// Fingerprint identifies an ordered list of section keys. Two lists share a
// fingerprint only when they hold the same keys in the same order.
func Fingerprint(keys []model.SectionKey) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k.CourseID)
		b.WriteByte(0x1f)
		b.WriteString(k.ClassID)
		b.WriteByte(0x1e)
	}
	return b.String()
}

// KeysOf lists the keys of sections in order.
func KeysOf(sections []model.Section) []model.SectionKey {
	keys := make([]model.SectionKey, len(sections))
	for i, s := range sections {
		keys[i] = s.Key()
	}
	return keys
}

// GridCache holds the grid of one enrolled set together with the fingerprint
// it was built from. Callers invalidate it whenever the set changes.
type GridCache struct {
	fingerprint string
	grid        Grid
	valid       bool
}

// Get returns a copy of the cached grid when fingerprint matches, otherwise
// builds one with build and stores it. Callers may modify the result.
func (c *GridCache) Get(fingerprint string, build func() Grid) Grid {
	if !c.valid || c.fingerprint != fingerprint {
		c.grid = build()
		c.fingerprint = fingerprint
		c.valid = true
	}
	return c.grid.Clone()
}

// Invalidate drops the cached grid.
func (c *GridCache) Invalidate() {
	c.valid = false
	c.grid = Grid{}
	c.fingerprint = ""
}

// Valid reports whether a grid is cached.
func (c *GridCache) Valid() bool {
	return c.valid
}
