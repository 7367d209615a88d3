// Package schedule turns meeting-time strings into weekly time slots and
// builds conflict checks, timetable grids and credit totals on top of them.
//
// Everything here is synchronous and free of I/O. The only mutable value is
// EnrolledSet, which belongs to a single planner session.
package schedule

import (
	"strconv"
	"strings"
	"sync"

	"github.com/stemsi/course-planner/internal/model"
)

// Parse converts a meeting-time string such as "周一1-2，周三3-4单" into slots,
// in clause order. Clauses without a known day, with a malformed period range,
// or with a range that does not satisfy 1 <= start <= end are dropped. Parse
// never fails; unusable input yields no slots.
func Parse(raw string) []model.TimeSlot {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	raw = strings.ReplaceAll(raw, ",", clauseSeparator)

	var slots []model.TimeSlot
	for _, clause := range strings.Split(raw, clauseSeparator) {
		if slot, ok := parseClause(clause); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

func parseClause(clause string) (model.TimeSlot, bool) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return model.TimeSlot{}, false
	}

	parity, rest := stripParity(clause)

	day, rest, ok := stripDay(rest)
	if !ok {
		return model.TimeSlot{}, false
	}

	start, end, ok := parsePeriods(rest)
	if !ok {
		return model.TimeSlot{}, false
	}

	return model.TimeSlot{Day: day, StartPeriod: start, EndPeriod: end, Parity: parity}, true
}

func stripParity(clause string) (model.Parity, string) {
	for _, m := range parityMarkers {
		if hasSuffixFold(clause, m.token) {
			return m.parity, strings.TrimSpace(clause[:len(clause)-len(m.token)])
		}
	}
	return model.ParityAll, clause
}

func stripDay(clause string) (model.Day, string, bool) {
	for _, t := range dayTokens {
		if hasPrefixFold(clause, t.token) {
			return t.day, clause[len(t.token):], true
		}
	}
	return 0, "", false
}

func parsePeriods(s string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if start < 1 || start > end {
		return 0, 0, false
	}
	return start, end, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// Parser memoizes Parse by input string. It is safe for concurrent use and
// may be shared by every session. Returned slices are shared between callers
// and must not be modified.
type Parser struct {
	cache   sync.Map
	observe func(hit bool)
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithCacheObserver registers a callback invoked on every lookup with whether
// the memo already held the input.
func WithCacheObserver(fn func(hit bool)) ParserOption {
	return func(p *Parser) { p.observe = fn }
}

// NewParser creates an empty memoizing parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns the memoized result of Parse(raw).
func (p *Parser) Parse(raw string) []model.TimeSlot {
	if v, ok := p.cache.Load(raw); ok {
		p.report(true)
		return v.([]model.TimeSlot)
	}
	p.report(false)
	v, _ := p.cache.LoadOrStore(raw, Parse(raw))
	return v.([]model.TimeSlot)
}

// SlotsOf returns the slots attached to s at catalog load time, parsing its
// raw meeting string when none were attached.
func (p *Parser) SlotsOf(s model.Section) []model.TimeSlot {
	if len(s.Slots) > 0 {
		return s.Slots
	}
	return p.Parse(s.RawTime)
}

func (p *Parser) report(hit bool) {
	if p.observe != nil {
		p.observe(hit)
	}
}

var defaultParser = NewParser()
