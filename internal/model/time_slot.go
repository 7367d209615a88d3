package model

import "fmt"

// Day is a weekday, Monday first.
type Day int

const (
	Mon Day = iota + 1
	Tue
	Wed
	Thu
	Fri
	Sat
	Sun
)

// DaysPerWeek and PeriodsPerDay bound the timetable grid.
const (
	DaysPerWeek   = 7
	PeriodsPerDay = 12
)

var dayCodes = [...]string{"", "mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Days lists every weekday in grid order.
var Days = []Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// Valid reports whether d is one of Mon..Sun.
func (d Day) Valid() bool {
	return d >= Mon && d <= Sun
}

// Index returns the zero-based column of d in the timetable grid.
func (d Day) Index() int {
	return int(d) - 1
}

func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayCodes[d]
}

// MarshalText encodes the day as its lowercase three-letter code.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", int(d))
	}
	return []byte(dayCodes[d]), nil
}

// UnmarshalText decodes a lowercase three-letter code.
func (d *Day) UnmarshalText(text []byte) error {
	for i := Mon; i <= Sun; i++ {
		if dayCodes[i] == string(text) {
			*d = i
			return nil
		}
	}
	return fmt.Errorf("unknown day %q", string(text))
}

// Parity says which weeks of the term a slot meets in.
type Parity int

const (
	ParityAll Parity = iota
	ParityOdd
	ParityEven
)

var parityCodes = [...]string{"all", "odd", "even"}

func (p Parity) String() string {
	if p < ParityAll || p > ParityEven {
		return fmt.Sprintf("Parity(%d)", int(p))
	}
	return parityCodes[p]
}

// MarshalText encodes the parity as all, odd or even.
func (p Parity) MarshalText() ([]byte, error) {
	if p < ParityAll || p > ParityEven {
		return nil, fmt.Errorf("invalid parity %d", int(p))
	}
	return []byte(parityCodes[p]), nil
}

// UnmarshalText decodes all, odd or even.
func (p *Parity) UnmarshalText(text []byte) error {
	for i, code := range parityCodes {
		if code == string(text) {
			*p = Parity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown parity %q", string(text))
}

// CollidesWith reports whether two parities can share a week.
// Only the complementary Odd/Even pair never meets.
func (p Parity) CollidesWith(other Parity) bool {
	if p == ParityOdd && other == ParityEven {
		return false
	}
	if p == ParityEven && other == ParityOdd {
		return false
	}
	return true
}

// TimeSlot is one weekly meeting pattern: a day, an inclusive 1-based period
// range and a week parity.
type TimeSlot struct {
	Day         Day    `json:"day"`
	StartPeriod int    `json:"start_period"`
	EndPeriod   int    `json:"end_period"`
	Parity      Parity `json:"parity"`
}

// Overlaps reports whether a and b meet at the same time in at least one week.
func (a TimeSlot) Overlaps(b TimeSlot) bool {
	if a.Day != b.Day {
		return false
	}
	if a.StartPeriod > b.EndPeriod || a.EndPeriod < b.StartPeriod {
		return false
	}
	return a.Parity.CollidesWith(b.Parity)
}

// Language selects the vocabulary used for user-facing labels.
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)
