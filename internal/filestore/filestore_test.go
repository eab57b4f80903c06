package filestore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStoreSave(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	handle, err := store.Save(KindCV, ".pdf", []byte("cv content"))
	require.NoError(t, err)

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	require.Equal(t, "cv content", string(data))
}

func TestDiskStoreHandlesAreUnique(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save(KindFinal, ".txt", []byte("a"))
	require.NoError(t, err)
	second, err := store.Save(KindFinal, ".txt", []byte("b"))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}
