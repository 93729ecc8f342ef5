package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/golocalevents/internal/domain"
)

func fixture() []domain.Event {
	return []domain.Event{
		{ID: 1, Title: "Jazz Night", Description: "Live music", Type: "Music", Date: "2025-10-03", Location: "Blue Note, Springfield"},
		{ID: 2, Title: "Book Club", Description: "Reading", Type: "Meetup", Date: "2025-09-20", Location: "Library, Shelbyville"},
		{ID: 3, Title: "Morning Run", Description: "5k along the river", Type: "Sports", Date: "2025-10-10", Location: "River Park, Springfield"},
		{ID: 4, Title: "Music Theory 101", Description: "", Type: "Workshop", Date: "2025-10-01"},
		{ID: 5, Title: "Open Mic", Description: "Bring your music", Type: "Music", Date: "soon", Location: "Moe's, Springfield"},
	}
}

func ids(events []domain.Event) []int {
	out := make([]int, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestApply_SearchScenario(t *testing.T) {
	events := []domain.Event{
		{ID: 1, Title: "Jazz Night", Description: "Live music"},
		{ID: 2, Title: "Book Club", Description: "Reading"},
	}
	got := Apply(events, Criteria{Search: "music"})
	require.Len(t, got, 1)
	assert.Equal(t, "Jazz Night", got[0].Title)
}

func TestApply(t *testing.T) {
	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Criteria
		want []int
	}{
		{"no criteria keeps everything", Criteria{}, []int{1, 2, 3, 4, 5}},
		{"search title or description, case-insensitive", Criteria{Search: "MUSIC"}, []int{1, 4, 5}},
		{"type is exact", Criteria{Type: "Music"}, []int{1, 5}},
		{"type is case-sensitive", Criteria{Type: "music"}, []int{}},
		{"location substring, case-insensitive; missing location excluded", Criteria{Location: "springfield"}, []int{1, 3, 5}},
		{"start date inclusive; unparseable date excluded", Criteria{StartDate: from}, []int{1, 3, 4}},
		{"conjunction", Criteria{Search: "music", Type: "Music", Location: "springfield", StartDate: from}, []int{1}},
		{"nothing matches", Criteria{Search: "karaoke"}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(fixture(), tt.c)))
		})
	}
}

func TestApply_ConjunctionProperty(t *testing.T) {
	events := fixture()
	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	criteria := []Criteria{
		{Search: "music"},
		{Type: "Music", StartDate: from},
		{Location: "park"},
		{Search: "r", Location: "springfield"},
	}

	for _, c := range criteria {
		got := Apply(events, c)
		kept := map[int]bool{}
		for _, ev := range got {
			kept[ev.ID] = true
			assert.True(t, Matches(ev, c))
		}
		for _, ev := range events {
			if kept[ev.ID] {
				continue
			}
			single := []Criteria{
				{Search: c.Search}, {Type: c.Type}, {Location: c.Location}, {StartDate: c.StartDate},
			}
			failsOne := false
			for _, s := range single {
				if s.Active() && !Matches(ev, s) {
					failsOne = true
				}
			}
			assert.True(t, failsOne, "event %d excluded without failing a predicate", ev.ID)
		}
	}
}

func TestApply_IsPure(t *testing.T) {
	events := fixture()
	before := fixture()
	c := Criteria{Search: "music"}

	first := Apply(events, c)
	second := Apply(events, c)

	assert.Equal(t, first, second)
	assert.Equal(t, before, events)

	first[0].Title = "changed"
	assert.Equal(t, "Jazz Night", events[0].Title)
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(" music ", "any", "", "2025-10-01")
	require.NoError(t, err)
	assert.Equal(t, "music", c.Search)
	assert.Empty(t, c.Type)
	assert.Empty(t, c.Location)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), c.StartDate)
	assert.True(t, c.Active())

	c, err = ParseCriteria("", "ANY", "Any", "any")
	require.NoError(t, err)
	assert.False(t, c.Active())

	_, err = ParseCriteria("", "", "", "tomorrow")
	assert.ErrorContains(t, err, "startDate")
}

func TestLimit(t *testing.T) {
	events := fixture()

	assert.Equal(t, []int{1, 2, 3}, ids(Limit(events, 3)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(Limit(events, 0)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(Limit(events, 50)))

	_ = append(Limit(events, 2), domain.Event{ID: 99})
	assert.Equal(t, 3, events[2].ID, "appending to a limited slice must not clobber the input")
}

func TestParseLimit(t *testing.T) {
	n, err := ParseLimit("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ParseLimit(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"-1", "three", "2.5"} {
		_, err = ParseLimit(bad)
		assert.ErrorContains(t, err, "limit", bad)
	}
}
