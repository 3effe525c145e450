// Package query derives filtered, sorted views and aggregate statistics from
// a task snapshot. Everything here is a pure function; nothing mutates its
// input.
package query

import (
	"sort"
	"strings"

	"github.com/liquidtasks/core/internal/domain/entities"
)

// Filter applies the view predicate: case-insensitive substring match of the
// search string against the title, ANDed with the category filter. The
// category "All" (or empty) disables the category predicate.
func Filter(tasks []entities.Task, search, category string) []entities.Task {
	needle := strings.ToLower(search)

	out := make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		if category != "" && category != entities.CategoryAll && string(t.Category) != category {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortByCreatedAt orders tasks newest first. The sort is stable so equal
// timestamps keep their insertion order. Returns a new slice.
func SortByCreatedAt(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// View composes Filter and SortByCreatedAt: the exact list the presentation
// layer renders.
func View(tasks []entities.Task, q string, category string) []entities.Task {
	return SortByCreatedAt(Filter(tasks, q, category))
}

// ComputeStats derives the aggregate counters from a snapshot.
func ComputeStats(tasks []entities.Task) entities.Stats {
	stats := entities.Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		} else if t.Priority == entities.PriorityHigh {
			stats.HighPriority++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}
