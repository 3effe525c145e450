package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liquidtasks/core/internal/domain/entities"
)

func fixture() []entities.Task {
	return []entities.Task{
		{ID: "1", Title: "Buy groceries", Category: entities.CategoryShopping, Priority: entities.PriorityLow, CreatedAt: 100},
		{ID: "2", Title: "Quarterly report", Category: entities.CategoryWork, Priority: entities.PriorityHigh, CreatedAt: 300},
		{ID: "3", Title: "Dentist appointment", Category: entities.CategoryHealth, Priority: entities.PriorityMedium, CreatedAt: 200, Completed: true},
		{ID: "4", Title: "buy birthday gift", Category: entities.CategoryPersonal, Priority: entities.PriorityHigh, CreatedAt: 400},
	}
}

func TestFilter_SearchCaseInsensitive(t *testing.T) {
	out := Filter(fixture(), "BUY", "")

	assert.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "4", out[1].ID)
}

func TestFilter_Category(t *testing.T) {
	out := Filter(fixture(), "", "Work")

	assert.Len(t, out, 1)
	assert.Equal(t, "2", out[0].ID)
}

func TestFilter_CategoryAllIsWildcard(t *testing.T) {
	assert.Len(t, Filter(fixture(), "", "All"), 4)
	assert.Len(t, Filter(fixture(), "", ""), 4)
}

func TestFilter_SearchAndCategoryAreANDed(t *testing.T) {
	out := Filter(fixture(), "buy", "Personal")

	assert.Len(t, out, 1)
	assert.Equal(t, "4", out[0].ID)
}

func TestFilter_NoMatch(t *testing.T) {
	out := Filter(fixture(), "nonexistent", "")
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestSortByCreatedAt_NewestFirst(t *testing.T) {
	tasks := fixture()
	out := SortByCreatedAt(tasks)

	assert.Equal(t, []string{"4", "2", "3", "1"}, ids(out))
	assert.Equal(t, "1", tasks[0].ID, "input must not be reordered")
}

func TestSortByCreatedAt_StableOnTies(t *testing.T) {
	tasks := []entities.Task{
		{ID: "a", CreatedAt: 100},
		{ID: "b", CreatedAt: 100},
		{ID: "c", CreatedAt: 100},
	}

	out := SortByCreatedAt(tasks)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
}

func TestView(t *testing.T) {
	out := View(fixture(), "buy", "")

	assert.Equal(t, []string{"4", "1"}, ids(out))
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(fixture())

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.HighPriority)
}

func TestComputeStats_CompletedHighPriorityNotCounted(t *testing.T) {
	stats := ComputeStats([]entities.Task{
		{ID: "1", Priority: entities.PriorityHigh, Completed: true},
		{ID: "2", Priority: entities.PriorityHigh},
	})

	assert.Equal(t, 1, stats.HighPriority, "a finished task is no longer urgent")
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, entities.Stats{}, ComputeStats(nil))
}

func ids(tasks []entities.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
