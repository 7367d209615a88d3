package model

// SectionKey uniquely identifies a section in the catalog.
type SectionKey struct {
	CourseID string `json:"course_id"`
	ClassID  string `json:"class_id"`
}

func (k SectionKey) String() string {
	return k.CourseID + "/" + k.ClassID
}

// Section is one enrollable (course, class) offering after catalog merging.
type Section struct {
	CourseID    string     `json:"course_id"`
	ClassID     string     `json:"class_id"`
	Department  string     `json:"department"`
	Title       string     `json:"title"`
	Credits     float64    `json:"credits"`
	Instructor  string     `json:"instructor"`
	RawTime     string     `json:"time"`
	Eligibility string     `json:"eligibility"`
	Slots       []TimeSlot `json:"slots"`
}

// Key returns the (course, class) identity of s.
func (s Section) Key() SectionKey {
	return SectionKey{CourseID: s.CourseID, ClassID: s.ClassID}
}

// Label is the text shown in a timetable cell.
func (s Section) Label() string {
	return s.Title + " (" + s.ClassID + ")"
}

// RawSection is one catalog row as delivered by ingestion, before rows that
// share a key are merged.
type RawSection struct {
	CourseID    string
	ClassID     string
	Department  string
	Title       string
	Credits     string
	Instructor  string
	RawTime     string
	Eligibility string
}
