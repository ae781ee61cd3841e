package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func ids(jobs []Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func groupNames(groups []PressGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Press.Name
	}
	return out
}

func sampleJobs() []Job {
	return []Job{
		{ID: "a", Status: JobStatusOpen, Hot: false, PressID: "p1", CreatedAt: at(10)},
		{ID: "b", Status: JobStatusCompleted, Hot: true, PressID: "p2", CreatedAt: at(30)},
		{ID: "c", Status: JobStatusInProgress, Hot: true, PressID: "p1", CreatedAt: at(20)},
		{ID: "d", Status: JobStatusOpen, Hot: false, PressID: "", CreatedAt: at(40)},
		{ID: "e", Status: JobStatusCompleted, Hot: false, PressID: "gone", CreatedAt: nil},
	}
}

func TestFilterAndSort_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterMode
		want   []string
	}{
		{"all", FilterAll, []string{"d", "b", "c", "a", "e"}},
		{"open", FilterOpen, []string{"d", "c", "a"}},
		{"completed", FilterCompleted, []string{"b", "e"}},
		{"hot", FilterHot, []string{"b", "c"}},
		{"unknown keeps everything", FilterMode("archived"), []string{"d", "b", "c", "a", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAndSort(sampleJobs(), tt.filter, SortNewest)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterAndSort_HotCountMatchesInput(t *testing.T) {
	jobs := sampleJobs()
	hot := 0
	for _, j := range jobs {
		if j.Hot {
			hot++
		}
	}

	for _, order := range []SortMode{SortNewest, SortOldest} {
		got := FilterAndSort(jobs, FilterHot, order)
		require.Len(t, got, hot)
		for _, j := range got {
			assert.True(t, j.Hot, "job %s should be hot", j.ID)
		}
	}
}

func TestFilterAndSort_Idempotent(t *testing.T) {
	for _, filter := range []FilterMode{FilterAll, FilterOpen, FilterCompleted, FilterHot} {
		for _, order := range []SortMode{SortNewest, SortOldest} {
			once := FilterAndSort(sampleJobs(), filter, order)
			twice := FilterAndSort(once, filter, order)
			assert.Equal(t, ids(once), ids(twice), "filter=%s sort=%s", filter, order)
		}
	}
}

func TestFilterAndSort_OldestOfReversedMatchesNewest(t *testing.T) {
	jobs := []Job{
		{ID: "1", CreatedAt: at(3)},
		{ID: "2", CreatedAt: at(1)},
		{ID: "3", CreatedAt: at(2)},
	}
	newest := FilterAndSort(jobs, FilterAll, SortNewest)
	assert.Equal(t, []string{"1", "3", "2"}, ids(newest))

	reversed := make([]Job, len(newest))
	for i, j := range newest {
		reversed[len(newest)-1-i] = j
	}
	oldest := FilterAndSort(reversed, FilterAll, SortOldest)

	back := make([]string, len(oldest))
	for i, j := range oldest {
		back[len(oldest)-1-i] = j.ID
	}
	assert.Equal(t, ids(newest), back)
}

func TestFilterAndSort_MissingCreatedAtIsOldest(t *testing.T) {
	zero := time.Time{}
	jobs := []Job{
		{ID: "dated", CreatedAt: at(0)},
		{ID: "nil", CreatedAt: nil},
		{ID: "zero", CreatedAt: &zero},
	}

	oldest := FilterAndSort(jobs, FilterAll, SortOldest)
	assert.Equal(t, []string{"nil", "zero", "dated"}, ids(oldest))

	newest := FilterAndSort(jobs, FilterAll, SortNewest)
	assert.Equal(t, "dated", newest[0].ID)
}

func TestFilterAndSort_DoesNotMutateInput(t *testing.T) {
	jobs := sampleJobs()
	before := ids(jobs)
	_ = FilterAndSort(jobs, FilterOpen, SortOldest)
	_ = PriorityOrder(jobs)
	_ = GroupByPress(jobs, []Press{{ID: "p1", Name: "One"}})
	assert.Equal(t, before, ids(jobs))
}

func TestPriorityOrder(t *testing.T) {
	t.Run("hot dominates recency", func(t *testing.T) {
		a := Job{ID: "A", Hot: false, CreatedAt: at(0)}
		b := Job{ID: "B", Hot: true, CreatedAt: at(5)}
		assert.Equal(t, []string{"B", "A"}, ids(PriorityOrder([]Job{a, b})))
	})

	t.Run("oldest hot first then cold", func(t *testing.T) {
		jobs := []Job{
			{ID: "1", Hot: false, CreatedAt: at(2)},
			{ID: "2", Hot: true, CreatedAt: at(3)},
			{ID: "3", Hot: true, CreatedAt: at(1)},
		}
		assert.Equal(t, []string{"3", "2", "1"}, ids(PriorityOrder(jobs)))
	})

	t.Run("missing createdAt is oldest within tier", func(t *testing.T) {
		jobs := []Job{
			{ID: "dated", Hot: true, CreatedAt: at(1)},
			{ID: "undated", Hot: true},
			{ID: "cold", Hot: false},
		}
		assert.Equal(t, []string{"undated", "dated", "cold"}, ids(PriorityOrder(jobs)))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, PriorityOrder(nil))
	})
}

func TestGroupByPress_Partition(t *testing.T) {
	jobs := sampleJobs()
	presses := []Press{
		{ID: "p1", Name: "Heidelberg"},
		{ID: "p2", Name: "Adast"},
		{ID: "p3", Name: "Komori"},
	}

	groups := GroupByPress(jobs, presses)
	require.Equal(t, []string{"Adast", "Heidelberg", "Komori", UnassignedPressName}, groupNames(groups))

	seen := make(map[string]int)
	for _, g := range groups {
		for _, j := range g.Jobs {
			seen[j.ID]++
		}
	}
	require.Len(t, seen, len(jobs))
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s placed %d times", id, n)
	}

	assert.Equal(t, []string{"c", "a"}, ids(groups[1].Jobs))
	assert.Empty(t, groups[2].Jobs)
	assert.NotNil(t, groups[2].Jobs)
	assert.True(t, groups[3].Unassigned)
	assert.Equal(t, []string{"e", "d"}, ids(groups[3].Jobs))

	assert.Equal(t, []int{1, 2, 0, 0}, []int{groups[0].HotCount, groups[1].HotCount, groups[2].HotCount, groups[3].HotCount})
}

func TestGroupByPress_PressNamedUnassignedIsReal(t *testing.T) {
	presses := []Press{{ID: UnassignedPressID, Name: "Letterpress"}}
	jobs := []Job{
		{ID: "1", PressID: UnassignedPressID, Hot: true},
		{ID: "2", PressID: "missing"},
	}

	groups := GroupByPress(jobs, presses)
	require.Len(t, groups, 2)
	assert.False(t, groups[0].Unassigned)
	assert.Equal(t, []string{"1"}, ids(groups[0].Jobs))
	assert.Equal(t, 1, groups[0].HotCount)
	assert.True(t, groups[1].Unassigned)
	assert.Equal(t, []string{"2"}, ids(groups[1].Jobs))
}

func TestGroupByPress_UnassignedAlwaysLast(t *testing.T) {
	presses := []Press{{ID: "z", Name: "Zeta"}, {ID: "a", Name: "Alpha"}}
	jobs := []Job{
		{ID: "1", PressID: "missing"},
		{ID: "2", PressID: "z"},
	}

	groups := GroupByPress(jobs, presses)
	assert.Equal(t, []string{"Alpha", "Zeta", "Unassigned"}, groupNames(groups))
	assert.Equal(t, "Jobs not assigned to any press", groups[2].Press.Description)
}

func TestGroupByPress_NoUnassignedWhenAllPlaced(t *testing.T) {
	groups := GroupByPress([]Job{{ID: "1", PressID: "a"}}, []Press{{ID: "a", Name: "Alpha"}})
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Unassigned)
}

func TestGroupByPress_NameCollation(t *testing.T) {
	presses := []Press{
		{ID: "4", Name: "Press 10"},
		{ID: "1", Name: "press 2"},
		{ID: "2", Name: "Beta"},
		{ID: "3", Name: "alpha"},
		{ID: "5", Name: "Press 1"},
	}

	groups := GroupByPress(nil, presses)
	assert.Equal(t, []string{"alpha", "Beta", "Press 1", "press 2", "Press 10"}, groupNames(groups))
}

func TestGroupByPress_Deterministic(t *testing.T) {
	presses := []Press{{ID: "b", Name: "Same"}, {ID: "a", Name: "same"}}
	first := GroupByPress(sampleJobs(), presses)
	second := GroupByPress(sampleJobs(), []Press{presses[1], presses[0]})
	assert.Equal(t, groupNames(first), groupNames(second))
	assert.Equal(t, "a", first[0].Press.ID)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleJobs())
	assert.Equal(t, Stats{Total: 5, Open: 3, InProgress: 1, Completed: 2, Hot: 2}, s)
}

func TestParseModes(t *testing.T) {
	assert.Equal(t, FilterHot, ParseFilterMode(" HOT "))
	assert.Equal(t, FilterAll, ParseFilterMode("bogus"))
	assert.Equal(t, FilterAll, ParseFilterMode(""))
	assert.Equal(t, SortNewest, ParseSortMode(""))
	assert.Equal(t, SortOldest, ParseSortMode("Oldest"))
}

func TestJobValidate(t *testing.T) {
	assert.NoError(t, (&Job{Title: "Flyers", Quantity: 500}).Validate())
	assert.ErrorIs(t, (&Job{Title: " ", Quantity: 1}).Validate(), ErrInvalidJob)
	assert.ErrorIs(t, (&Job{Title: "Cards", Quantity: 0}).Validate(), ErrInvalidJob)
	assert.ErrorIs(t, (&Job{Title: "Cards", Quantity: 1, Status: "paused"}).Validate(), ErrInvalidJob)
}

func TestPlateBinLabel(t *testing.T) {
	assert.Equal(t, "Waiting on Plates", (&Job{}).PlateBinLabel())
	assert.Equal(t, "Waiting on Plates", (&Job{PlateBin: "Waiting on Plates"}).PlateBinLabel())
	assert.Equal(t, "Bin 7", (&Job{PlateBin: "7"}).PlateBinLabel())
}

func TestJobJSONIncludesPlateBinLabel(t *testing.T) {
	data, err := json.Marshal(Job{ID: "1", Title: "Cards", Quantity: 10, PlateBin: "3"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Bin 3", got["plateBinLabel"])
	assert.Equal(t, "3", got["plateBin"])
	assert.Equal(t, "Cards", got["title"])

	var back Job
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "3", back.PlateBin)
}
