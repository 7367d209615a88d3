package schedule

import "github.com/stemsi/course-planner/internal/model"

// clauseSeparator splits a meeting-time string into clauses. The ASCII comma
// is folded into it before splitting.
const clauseSeparator = "，"

// parityMarkers are matched against the end of a clause, longest first.
var parityMarkers = []struct {
	token  string
	parity model.Parity
}{
	{"(even)", model.ParityEven},
	{"(odd)", model.ParityOdd},
	{"（单）", model.ParityOdd},
	{"（双）", model.ParityEven},
	{"(单)", model.ParityOdd},
	{"(双)", model.ParityEven},
	{"单", model.ParityOdd},
	{"双", model.ParityEven},
}

// dayTokens are matched against the start of a clause. Longer spellings come
// before their prefixes so "Monday" is not read as "Mon" + "day".
var dayTokens = []struct {
	token string
	day   model.Day
}{
	{"星期一", model.Mon}, {"星期二", model.Tue}, {"星期三", model.Wed}, {"星期四", model.Thu},
	{"星期五", model.Fri}, {"星期六", model.Sat}, {"星期日", model.Sun}, {"星期天", model.Sun},
	{"周一", model.Mon}, {"周二", model.Tue}, {"周三", model.Wed}, {"周四", model.Thu},
	{"周五", model.Fri}, {"周六", model.Sat}, {"周日", model.Sun}, {"周天", model.Sun},
	{"Monday", model.Mon}, {"Tuesday", model.Tue}, {"Wednesday", model.Wed}, {"Thursday", model.Thu},
	{"Friday", model.Fri}, {"Saturday", model.Sat}, {"Sunday", model.Sun},
	{"Mon", model.Mon}, {"Tue", model.Tue}, {"Wed", model.Wed}, {"Thu", model.Thu},
	{"Fri", model.Fri}, {"Sat", model.Sat}, {"Sun", model.Sun},
}

// openToAllMarkers flag a section as visible to every department.
var openToAllMarkers = []string{"全校学生在籍", "open to entire school"}

// eligibilitySeparator joins merged eligibility texts.
const eligibilitySeparator = "，"

type labels struct {
	days         [model.DaysPerWeek]string
	periods      string
	odd, even    string
	sectionHeads []string
}

var vocabulary = map[model.Language]labels{
	model.LangEN: {
		days:    [model.DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		periods: "Periods",
		odd:     "[Odd]",
		even:    "[Even]",
		sectionHeads: []string{
			"Course ID", "Class ID", "Department", "Course Name",
			"Credits", "Instructor", "Time", "Target Audience",
		},
	},
	model.LangZH: {
		days:    [model.DaysPerWeek]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"},
		periods: "节次",
		odd:     "[单]",
		even:    "[双]",
		sectionHeads: []string{
			"课程号", "班号", "院系", "课程名",
			"参考学分", "授课教师", "上课时间", "修读对象",
		},
	},
}

func labelsFor(lang model.Language) labels {
	if l, ok := vocabulary[lang]; ok {
		return l
	}
	return vocabulary[model.LangEN]
}

// DayLabel returns the localized column heading for d.
func DayLabel(d model.Day, lang model.Language) string {
	if !d.Valid() {
		return ""
	}
	return labelsFor(lang).days[d.Index()]
}
