package mlenc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StableAcrossCallsAndReopen(t *testing.T) {
	dir := t.TempDir()

	reg, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	id1, err := reg.GetID("sector", "Technology")
	require.NoError(t, err)
	id2, err := reg.GetID("sector", "Technology")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// a fresh process must see the same assignment
	reg2, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	id3, err := reg2.GetID("sector", "Technology")
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
}

func TestRegistry_NewValueGetsMaxPlusOne(t *testing.T) {
	reg, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	for i, v := range []string{"Auto", "Bank", "Chem", "Drug", "Energy"} {
		id, err := reg.GetID("sector", v)
		require.NoError(t, err)
		assert.Equal(t, i+1, id)
	}

	id, err := reg.GetID("sector", "Food")
	require.NoError(t, err)
	assert.Equal(t, 6, id)
}

func TestRegistry_FieldsHaveIndependentIDSpaces(t *testing.T) {
	reg, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	sectorID, err := reg.GetID("sector", "Auto")
	require.NoError(t, err)
	sideID, err := reg.GetID("side", "long")
	require.NoError(t, err)

	assert.Equal(t, 1, sectorID)
	assert.Equal(t, 1, sideID)
}

func TestRegistry_BlankValuesCollapseToUnknown(t *testing.T) {
	reg, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	a, err := reg.GetID("style", "")
	require.NoError(t, err)
	b, err := reg.GetID("style", "   ")
	require.NoError(t, err)
	c, err := reg.GetID("style", Unknown)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestRegistry_PersistsMapFile(t *testing.T) {
	dir := t.TempDir()
	reg, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	_, err = reg.GetID("horizon", "d5")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "ml", "meta", "horizon_map.json"))
}

func TestRegistry_LockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	reg, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, reg.Lock())

	other, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, other.Lock())

	reg.Unlock()
	assert.NoError(t, other.Lock())
	other.Unlock()
}

func TestRegistry_SurvivesHandEditedMap(t *testing.T) {
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "ml", "meta")
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "sector_map.json"),
		[]byte(`{"Auto": 3, "Bank": 7}`), 0o644))

	reg, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	// existing assignments honored, new ones continue past the max
	id, err := reg.GetID("sector", "Bank")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	id, err = reg.GetID("sector", "Chem")
	require.NoError(t, err)
	assert.Equal(t, 8, id)
}
