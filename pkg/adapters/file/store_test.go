package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/adapters/file"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store, err := file.New(t.TempDir())
	require.NoError(t, err)
	ports.RunDocumentStoreContract(t, store)
}

func TestFileStore_YAMLContract(t *testing.T) {
	store, err := file.New(t.TempDir(), file.WithFormat(file.FormatYAML))
	require.NoError(t, err)
	ports.RunDocumentStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewDocument("dash", domain.DefaultNode())))
	_, err = os.Stat(filepath.Join(dir, "dash.json"))
	assert.NoError(t, err)

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dash"}, ids)
}

func TestFileStore_RejectsBadInput(t *testing.T) {
	store, err := file.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, domain.NewDocument("../escape", domain.DefaultNode())))
	_, err = store.Load(ctx, "")
	assert.Error(t, err)

	_, err = file.New(t.TempDir(), file.WithFormat("toml"))
	assert.Error(t, err)
}
