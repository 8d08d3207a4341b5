package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/adapters/memory"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunDocumentStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doc := domain.NewDocument("d", domain.DefaultNode())
	require.NoError(t, store.Save(ctx, doc))

	doc.Version = 9
	loaded, err := store.Load(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), loaded.Version)

	loaded.Version = 5
	again, err := store.Load(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), again.Version)
}
