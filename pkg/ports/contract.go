package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/types"
)

// contractDocument builds a small tree exercising vars, nested children and handler configs.
func contractDocument(id string) *domain.Document {
	rec := types.MustParse("{name: string, loss: number}")
	child := domain.ConfigNode{
		Input:     expr.Pick(expr.NewVar("input", rec), "loss"),
		HandlerID: "Number",
		Config:    map[string]any{"decimals": 2},
	}
	root := domain.ConfigNode{
		Vars:      domain.NewFrame(domain.Binding{Name: "a", Expr: expr.NewConst("ada", nil)}),
		Input:     expr.NewVar("run", rec),
		HandlerID: "Object",
		Config: map[string]any{
			"propLimit": 100,
			domain.KeyChildren: map[string]any{
				"loss": child,
				"name": expr.Pick(expr.NewVar("input", rec), "name"),
			},
		},
	}
	return domain.NewDocument(id, root)
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore
// implementation adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := contractDocument(docID)
		doc.Version = 3

		require.NoError(t, store.Save(ctx, doc), "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, docID, loaded.ID)
		assert.Equal(t, uint64(3), loaded.Version)
		assert.Equal(t, "Object", loaded.Root.HandlerID)
		assert.Equal(t, "run", loaded.Root.Input.String())
		assert.Equal(t, "{loss: number, name: string}", loaded.Root.Input.Type().String())
		assert.True(t, loaded.Root.Vars.Equal(doc.Root.Vars))

		child, err := domain.At(loaded.Root, domain.Path{"loss"})
		require.NoError(t, err)
		assert.Equal(t, "Number", child.HandlerID)
		assert.Equal(t, `input["loss"]`, child.Input.String())
		assert.Nil(t, domain.Diff(doc.Root, loaded.Root), "round trip must be lossless")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		doc := contractDocument(docID)
		doc.Root.HandlerID = "Expression"
		doc.Root.Config = nil
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "Expression", loaded.Root.HandlerID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractDocument(docID)))

		require.NoError(t, store.Delete(ctx, docID), "Delete should not return error")

		_, err := store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")

		assert.NoError(t, store.Delete(ctx, docID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		require.NoError(t, store.Save(ctx, contractDocument(id1)))
		require.NoError(t, store.Save(ctx, contractDocument(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
