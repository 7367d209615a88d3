package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/course-planner/internal/model"
)

func TestProject_EmptySetHasEveryCell(t *testing.T) {
	g := Project(nil)

	for _, day := range model.Days {
		for period := 1; period <= model.PeriodsPerDay; period++ {
			cell := g.Cell(day, period)
			assert.NotNil(t, cell)
			assert.Empty(t, cell)
		}
	}

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")
}

func TestProject_FillsInclusiveRange(t *testing.T) {
	enrolled := []model.Section{{CourseID: "CS201", ClassID: "02", Title: "数据结构", RawTime: "周一3-4双，周五1-2双"}}

	g := Project(enrolled)

	for _, at := range []struct {
		day    model.Day
		period int
	}{{model.Mon, 3}, {model.Mon, 4}, {model.Fri, 1}, {model.Fri, 2}} {
		cell := g.Cell(at.day, at.period)
		require.Len(t, cell, 1, "%s/%d", at.day, at.period)
		assert.Equal(t, "数据结构 (02)", cell[0].Label)
		assert.Equal(t, model.ParityEven, cell[0].Parity)
	}
	assert.Empty(t, g.Cell(model.Mon, 2))
	assert.Empty(t, g.Cell(model.Mon, 5))
}

func TestProject_ClipsPeriodsOutsideGrid(t *testing.T) {
	g := Project([]model.Section{{CourseID: "X", ClassID: "01", Title: "Night", RawTime: "周三11-14"}})

	assert.Len(t, g.Cell(model.Wed, 11), 1)
	assert.Len(t, g.Cell(model.Wed, 12), 1)
	assert.Nil(t, g.Cell(model.Wed, 13))
}

func TestProject_ComplementaryParitiesShareCell(t *testing.T) {
	set := NewEnrolledSet(nil)
	require.NoError(t, set.AttemptEnroll(model.Section{CourseID: "A", ClassID: "01", Title: "Odd Lab", RawTime: "Tue 1-2(odd)"}))
	require.NoError(t, set.AttemptEnroll(model.Section{CourseID: "B", ClassID: "01", Title: "Even Lab", RawTime: "Tue 1-2(even)"}))

	g := set.Timetable()

	for _, period := range []int{1, 2} {
		cell := g.Cell(model.Tue, period)
		require.Len(t, cell, 2)
		assert.Equal(t, "Odd Lab (01)", cell[0].Label)
		assert.Equal(t, model.ParityOdd, cell[0].Parity)
		assert.Equal(t, "Even Lab (01)", cell[1].Label)
		assert.Equal(t, model.ParityEven, cell[1].Parity)
	}
}

func TestFingerprint_IsOrderSensitive(t *testing.T) {
	a := model.SectionKey{CourseID: "CS101", ClassID: "01"}
	b := model.SectionKey{CourseID: "CS102", ClassID: "01"}

	assert.Equal(t, Fingerprint([]model.SectionKey{a, b}), Fingerprint([]model.SectionKey{a, b}))
	assert.NotEqual(t, Fingerprint([]model.SectionKey{a, b}), Fingerprint([]model.SectionKey{b, a}))
	assert.NotEqual(t,
		Fingerprint([]model.SectionKey{{CourseID: "A", ClassID: "BC"}}),
		Fingerprint([]model.SectionKey{{CourseID: "AB", ClassID: "C"}}))
}

func TestGridCache_RebuildsOnlyWhenNeeded(t *testing.T) {
	var c GridCache
	builds := 0
	build := func() Grid {
		builds++
		return NewGrid()
	}

	c.Get("a", build)
	c.Get("a", build)
	assert.Equal(t, 1, builds)

	c.Get("b", build)
	assert.Equal(t, 2, builds)

	c.Invalidate()
	assert.False(t, c.Valid())
	c.Get("b", build)
	assert.Equal(t, 3, builds)
}

func TestGridCache_HitsAreIsolated(t *testing.T) {
	var c GridCache
	build := func() Grid {
		return Project([]model.Section{{CourseID: "CS101", ClassID: "01", Title: "程序设计基础", RawTime: "周一1-2"}})
	}

	first := c.Get("a", build)
	cell := first.Cell(model.Mon, 1)
	require.Len(t, cell, 1)
	cell[0].Label = "changed"
	first[model.Mon.Index()][1] = append(first[model.Mon.Index()][1], GridEntry{Label: "extra"})

	second := c.Get("a", build)
	got := second.Cell(model.Mon, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "程序设计基础 (01)", got[0].Label)
	assert.Len(t, second.Cell(model.Mon, 2), 1)
}
