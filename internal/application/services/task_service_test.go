package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidtasks/core/internal/application/store"
	syncsvc "github.com/liquidtasks/core/internal/application/sync"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/infrastructure/metrics"
	"github.com/liquidtasks/core/internal/ports"
)

func newTaskService(t *testing.T) (*TaskService, *store.Store, *syncsvc.Service, *fakeRemoteStore) {
	t.Helper()
	remote := newFakeRemoteStore()
	st := store.New(newFakeLocalStore(), logger.Nop())
	syncer := syncsvc.New(context.Background(), remote, st, logger.Nop(), metrics.New())
	return NewTaskService(st, syncer, logger.Nop()), st, syncer, remote
}

func createReq(title string) ports.CreateTaskRequest {
	return ports.CreateTaskRequest{
		Title:    title,
		Category: entities.CategoryWork,
		Priority: entities.PriorityMedium,
	}
}

func TestTaskService_Create(t *testing.T) {
	svc, st, _, _ := newTaskService(t)

	task, err := svc.Create(context.Background(), createReq("write tests"))

	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "write tests", task.Title)
	assert.Equal(t, 1, st.Len())
}

func TestTaskService_CreateEmptyTitleRejected(t *testing.T) {
	svc, st, _, remote := newTaskService(t)

	_, err := svc.Create(context.Background(), createReq("   "))

	assert.ErrorIs(t, err, entities.ErrEmptyTitle)
	assert.Zero(t, st.Len(), "a rejected create must leave the store untouched")
	assert.Empty(t, remote.pushed)
}

func TestTaskService_CreateAsGuestStaysLocal(t *testing.T) {
	svc, _, _, remote := newTaskService(t)

	task, err := svc.Create(context.Background(), createReq("offline task"))

	require.NoError(t, err)
	assert.True(t, task.IsLocal())
	assert.Empty(t, remote.pushed)
}

func TestTaskService_CreateWhileSignedInStampsOwnerAndPushes(t *testing.T) {
	svc, _, syncer, remote := newTaskService(t)
	require.NoError(t, syncer.Start("user-1"))
	defer syncer.Stop()

	task, err := svc.Create(context.Background(), createReq("synced task"))

	require.NoError(t, err)
	assert.Equal(t, "user-1", task.UserID)
	require.Len(t, remote.pushed, 1)
	assert.Equal(t, task.ID, remote.pushed[0].ID)
}

func TestTaskService_Update(t *testing.T) {
	svc, _, _, _ := newTaskService(t)
	task, err := svc.Create(context.Background(), createReq("original"))
	require.NoError(t, err)

	title := "renamed"
	updated, err := svc.Update(context.Background(), task.ID, ports.UpdateTaskRequest{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
}

func TestTaskService_UpdateUnknownID(t *testing.T) {
	svc, _, _, _ := newTaskService(t)

	title := "x"
	_, err := svc.Update(context.Background(), "missing", ports.UpdateTaskRequest{Title: &title})

	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}

func TestTaskService_ToggleCompletionIsAnInvolution(t *testing.T) {
	svc, _, _, _ := newTaskService(t)
	task, err := svc.Create(context.Background(), createReq("toggle me"))
	require.NoError(t, err)

	once, err := svc.ToggleCompletion(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, once.Completed)

	twice, err := svc.ToggleCompletion(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, twice.Completed)
}

func TestTaskService_DeleteAbsentIsNoop(t *testing.T) {
	svc, st, _, _ := newTaskService(t)
	_, err := svc.Create(context.Background(), createReq("keep"))
	require.NoError(t, err)

	svc.Delete(context.Background(), "missing")

	assert.Equal(t, 1, st.Len())
}

func TestTaskService_Delete(t *testing.T) {
	svc, st, syncer, remote := newTaskService(t)
	require.NoError(t, syncer.Start("user-1"))
	defer syncer.Stop()
	task, err := svc.Create(context.Background(), createReq("doomed"))
	require.NoError(t, err)

	svc.Delete(context.Background(), task.ID)

	assert.Zero(t, st.Len())
	assert.Equal(t, []string{task.ID}, remote.removed)
}

func TestTaskService_ListIsFilteredAndSorted(t *testing.T) {
	svc, st, _, _ := newTaskService(t)
	st.Hydrate([]entities.Task{
		{ID: "1", Title: "Alpha", Category: entities.CategoryWork, CreatedAt: 100},
		{ID: "2", Title: "alphabet soup", Category: entities.CategoryShopping, CreatedAt: 300},
		{ID: "3", Title: "Beta", Category: entities.CategoryWork, CreatedAt: 200},
	})

	out := svc.List(ports.TaskQuery{Search: "alpha"})

	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID, "newest first")
	assert.Equal(t, "1", out[1].ID)
}

func TestTaskService_Stats(t *testing.T) {
	svc, st, _, _ := newTaskService(t)
	st.Hydrate([]entities.Task{
		{ID: "1", Priority: entities.PriorityHigh},
		{ID: "2", Priority: entities.PriorityHigh, Completed: true},
		{ID: "3", Priority: entities.PriorityLow},
	})

	stats := svc.Stats()

	assert.Equal(t, entities.Stats{Total: 3, Completed: 1, Pending: 2, HighPriority: 1}, stats)
}
