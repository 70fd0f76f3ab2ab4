package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArea(name string) SearchArea {
	return SearchArea{
		Name: name,
		Vertices: [][2]float64{
			{52.30, 4.80}, {52.30, 5.00}, {52.45, 5.00}, {52.45, 4.80},
		},
	}
}

func TestAreaStore_MissingFileIsEmpty(t *testing.T) {
	store, err := NewAreaStore(filepath.Join(t.TempDir(), "areas.json"))
	require.NoError(t, err)
	assert.Empty(t, store.GetAreas())
	assert.Nil(t, store.GetAreaByName("anything"))
}

func TestAreaStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "areas.json")

	store, err := NewAreaStore(path)
	require.NoError(t, err)
	require.NoError(t, store.UpdateArea(testArea("center")))
	require.NoError(t, store.UpdateArea(testArea("suburbs")))

	// Updating an existing name replaces it.
	updated := testArea("center")
	updated.Vertices = updated.Vertices[:3]
	require.NoError(t, store.UpdateArea(updated))

	reloaded, err := NewAreaStore(path)
	require.NoError(t, err)
	assert.Len(t, reloaded.GetAreas(), 2)

	center := reloaded.GetAreaByName("center")
	require.NotNil(t, center)
	assert.Len(t, center.Vertices, 3)
}

func TestAreaStore_Delete(t *testing.T) {
	store, err := NewAreaStore(filepath.Join(t.TempDir(), "areas.json"))
	require.NoError(t, err)
	require.NoError(t, store.UpdateArea(testArea("center")))

	require.NoError(t, store.DeleteArea("center"))
	assert.Empty(t, store.GetAreas())

	assert.Error(t, store.DeleteArea("center"))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "5260", cfg.Server.Port)
	assert.Equal(t, uint(7), cfg.Dedup.GeohashPrecision)
	assert.Equal(t, 300, cfg.Recompute.DebounceMillis)
}
