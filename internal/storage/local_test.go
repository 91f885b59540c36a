package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreAndRetrieve(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Store("analysis_abc.json", []byte(`{"total_comments":5}`)))

	data, err := store.Retrieve("analysis_abc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"total_comments":5}`, string(data))
}

func TestLocalStorage_RetrieveMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Retrieve("nope.json")
	assert.Error(t, err)
}

func TestLocalStorage_ListByPrefix(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Store("analysis_abc.json", []byte("a")))
	require.NoError(t, store.Store("analysis_abc_summary.txt", []byte("b")))
	require.NoError(t, store.Store("analysis_xyz.json", []byte("c")))

	names, err := store.List("analysis_abc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"analysis_abc.json", "analysis_abc_summary.txt"}, names)
}

func TestLocalStorage_Delete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Store("analysis_abc.json", []byte("a")))
	require.NoError(t, store.Delete("analysis_abc.json"))

	_, err = store.Retrieve("analysis_abc.json")
	assert.Error(t, err)

	assert.Error(t, store.Delete("analysis_abc.json"))
}
