package core

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var epoch = time.Unix(0, 0).UTC()

// createdKey treats a missing creation time as the epoch so undated jobs
// always land at the oldest end.
func createdKey(j *Job) time.Time {
	if j.CreatedAt == nil || j.CreatedAt.IsZero() {
		return epoch
	}
	return *j.CreatedAt
}

func matchesFilter(j *Job, mode FilterMode) bool {
	switch mode {
	case FilterOpen:
		return j.Status != JobStatusCompleted
	case FilterCompleted:
		return j.Status == JobStatusCompleted
	case FilterHot:
		return j.Hot
	default:
		return true
	}
}

// FilterAndSort builds the flat list view. Any sort mode other than newest
// orders oldest first.
func FilterAndSort(jobs []Job, filter FilterMode, order SortMode) []Job {
	out := make([]Job, 0, len(jobs))
	for i := range jobs {
		if matchesFilter(&jobs[i], filter) {
			out = append(out, jobs[i])
		}
	}

	newest := order == SortNewest
	sort.SliceStable(out, func(a, b int) bool {
		ta, tb := createdKey(&out[a]), createdKey(&out[b])
		if newest {
			return ta.After(tb)
		}
		return ta.Before(tb)
	})
	return out
}

// PriorityOrder puts hot jobs first, then serves the longest-waiting job
// first within each hotness tier.
func PriorityOrder(jobs []Job) []Job {
	out := make([]Job, len(jobs))
	copy(out, jobs)

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Hot != out[b].Hot {
			return out[a].Hot
		}
		return createdKey(&out[a]).Before(createdKey(&out[b]))
	})
	return out
}

func unassignedPress() Press {
	return Press{
		ID:          UnassignedPressID,
		Name:        UnassignedPressName,
		Description: "Jobs not assigned to any press",
	}
}

// GroupByPress partitions every job into exactly one press column. Jobs whose
// press is unknown go to a trailing Unassigned column, created only when needed.
func GroupByPress(jobs []Job, presses []Press) []PressGroup {
	index := make(map[string]int, len(presses))
	groups := make([]PressGroup, 0, len(presses)+1)
	for _, p := range presses {
		if _, dup := index[p.ID]; dup {
			continue
		}
		index[p.ID] = len(groups)
		groups = append(groups, PressGroup{Press: p, Jobs: []Job{}})
	}

	var unassigned *PressGroup
	for _, j := range jobs {
		if i, ok := index[j.PressID]; ok && j.PressID != "" {
			groups[i].Jobs = append(groups[i].Jobs, j)
			continue
		}
		if unassigned == nil {
			unassigned = &PressGroup{Press: unassignedPress(), Jobs: []Job{}, Unassigned: true}
		}
		unassigned.Jobs = append(unassigned.Jobs, j)
	}

	for i := range groups {
		groups[i].Jobs = PriorityOrder(groups[i].Jobs)
		groups[i].HotCount = hotCount(groups[i].Jobs)
	}

	c := collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics, collate.Numeric)
	sort.SliceStable(groups, func(a, b int) bool {
		if r := c.CompareString(groups[a].Press.Name, groups[b].Press.Name); r != 0 {
			return r < 0
		}
		return groups[a].Press.ID < groups[b].Press.ID
	})

	if unassigned != nil {
		unassigned.Jobs = PriorityOrder(unassigned.Jobs)
		unassigned.HotCount = hotCount(unassigned.Jobs)
		groups = append(groups, *unassigned)
	}
	return groups
}

func hotCount(jobs []Job) int {
	n := 0
	for _, j := range jobs {
		if j.Hot {
			n++
		}
	}
	return n
}

func Summarize(jobs []Job) Stats {
	s := Stats{Total: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case JobStatusCompleted:
			s.Completed++
		case JobStatusInProgress:
			s.InProgress++
		}
		if j.Status != JobStatusCompleted {
			s.Open++
		}
		if j.Hot {
			s.Hot++
		}
	}
	return s
}
