package api

import (
	"cmp"
	"slices"
	"strings"

	"github.com/five82/tasksync/internal/query"
)

var priorityRank = map[string]int{
	string(query.PriorityHigh):   3,
	string(query.PriorityMedium): 2,
	string(query.PriorityLow):    1,
}

// SortTasks orders items in place by the requested order. The backend is
// asked to sort too, but it has been seen to apply a stale sort after a sort
// change, so the rendered order is re-derived here. Ties break on ID. Tasks
// without a due date sort last in either direction.
func SortTasks(items []Task, order query.SortOrder) {
	desc := order.Direction == query.Descending
	slices.SortStableFunc(items, func(a, b Task) int {
		if order.Field == query.SortDueDate {
			if c := undatedLast(a, b); c != 0 {
				return c
			}
		}
		c := compareField(a, b, order.Field)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func compareField(a, b Task, field query.SortField) int {
	switch field {
	case query.SortTitle:
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case query.SortPriority:
		return cmp.Compare(priorityRank[a.Priority], priorityRank[b.Priority])
	case query.SortDueDate:
		return a.ParsedDueDate().Compare(b.ParsedDueDate())
	case query.SortUpdatedAt:
		return a.ParsedUpdatedAt().Compare(b.ParsedUpdatedAt())
	default:
		return a.ParsedCreatedAt().Compare(b.ParsedCreatedAt())
	}
}

func undatedLast(a, b Task) int {
	az, bz := a.ParsedDueDate().IsZero(), b.ParsedDueDate().IsZero()
	switch {
	case az == bz:
		return 0
	case az:
		return 1
	default:
		return -1
	}
}
