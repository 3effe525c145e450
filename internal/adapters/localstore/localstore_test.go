package localstore

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
)

func newStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewWithFs(fs, "/data", logger.Nop())
	require.NoError(t, err)
	return store, fs
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store, _ := newStore(t)
	tasks := []entities.Task{
		{ID: "a", Title: "first", Category: entities.CategoryWork, Priority: entities.PriorityHigh, CreatedAt: 100},
		{ID: "b", Title: "second", Category: entities.CategoryHealth, Priority: entities.PriorityLow, CreatedAt: 200, Completed: true},
	}

	require.NoError(t, store.Save(tasks))

	got := store.Load()
	require.Len(t, got, 2)
	assert.Equal(t, tasks, got)
}

func TestLoad_FirstRunIsEmpty(t *testing.T) {
	store, _ := newStore(t)

	got := store.Load()

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoad_CorruptPayloadFailsOpen(t *testing.T) {
	store, fs := newStore(t)
	require.NoError(t, afero.WriteFile(fs, "/data/liquid_tasks.json", []byte("{not json"), 0o644))

	got := store.Load()

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSave_NilBecomesEmptyCollection(t *testing.T) {
	store, fs := newStore(t)

	require.NoError(t, store.Save(nil))

	payload, err := afero.ReadFile(fs, "/data/liquid_tasks.json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(payload))
}

func TestSave_OverwritesWholeCollection(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Save([]entities.Task{{ID: "a"}, {ID: "b"}}))

	require.NoError(t, store.Save([]entities.Task{{ID: "c"}}))

	got := store.Load()
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestTheme_DefaultsToDark(t *testing.T) {
	store, _ := newStore(t)

	assert.Equal(t, entities.ThemeDark, store.Theme())
}

func TestTheme_RoundTrip(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.SetTheme(entities.ThemeLight))

	assert.Equal(t, entities.ThemeLight, store.Theme())
}

func TestTheme_UnknownValueFallsBackToDark(t *testing.T) {
	store, fs := newStore(t)
	require.NoError(t, afero.WriteFile(fs, "/data/theme", []byte("solarized"), 0o644))

	assert.Equal(t, entities.ThemeDark, store.Theme())
}

func TestGuestID_GeneratedOnceAndReused(t *testing.T) {
	store, fs := newStore(t)

	first, err := store.GuestID()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.GuestID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Survives a new store over the same filesystem, the restart case.
	reopened, err := NewWithFs(fs, "/data", logger.Nop())
	require.NoError(t, err)
	third, err := reopened.GuestID()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
