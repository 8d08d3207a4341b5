package document_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/paneltree/pkg/adapters/memory"
	"github.com/aretw0/paneltree/pkg/document"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]domain.Document
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, doc *domain.Document) error {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]domain.Document)
	}
	s.data[doc.ID] = *doc
	return nil
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Document, error) {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.data[id]; ok {
		return &doc, nil
	}
	return nil, domain.ErrDocumentNotFound
}

func (s *SlowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func rootWithChild() domain.ConfigNode {
	root := domain.ConfigNode{Input: expr.MustParse("data"), HandlerID: "Object"}
	return root.WithChild("a", expr.MustParse(`input["a"]`))
}

func TestManager_SavesAreSerialized(t *testing.T) {
	store := &SlowStore{}
	manager := document.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Save(ctx, domain.NewDocument(id, domain.DefaultNode()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	concurrentWrites := 10

	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Save(ctx, domain.NewDocument(id, rootWithChild()))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every read-modify-write bumped the version exactly once.
	doc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(concurrentWrites), doc.Version)
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := &SlowStore{}
	manager := document.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := manager.LoadOrCreate(ctx, id, rootWithChild())
			assert.NoError(t, err)
			assert.NotNil(t, doc)
		}()
	}
	wg.Wait()

	doc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), doc.Version)
	assert.Equal(t, "Object", doc.Root.HandlerID)
}

func TestManager_CommitReplacesNode(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	path := domain.Path{"a"}
	ticket := manager.Begin("doc", path)
	doc, err := manager.Commit(ctx, ticket, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "String"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), doc.Version)
	child, err := domain.At(doc.Root, path)
	require.NoError(t, err)
	assert.Equal(t, "String", child.HandlerID)
	assert.Equal(t, "Object", doc.Root.HandlerID)
}

func TestManager_StaleTicketIsDiscarded(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	path := domain.Path{"a"}
	older := manager.Begin("doc", path)
	newer := manager.Begin("doc", path)
	assert.True(t, manager.Stale(older))
	assert.False(t, manager.Stale(newer))

	_, err = manager.Commit(ctx, newer, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "String"})
	require.NoError(t, err)

	_, err = manager.Commit(ctx, older, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "Expression"})
	assert.True(t, errors.Is(err, domain.ErrStaleResult))

	doc, err := manager.Load(ctx, "doc")
	require.NoError(t, err)
	child, _ := domain.At(doc.Root, path)
	assert.Equal(t, "String", child.HandlerID)
	assert.Equal(t, uint64(1), doc.Version)
}

func TestManager_TicketsOnOtherPathsDoNotConflict(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	child := manager.Begin("doc", domain.Path{"a"})
	root := manager.Begin("doc", domain.Path{})
	assert.False(t, manager.Stale(child))
	assert.False(t, manager.Stale(root))
}

func TestManager_OlderTicketStaysStaleAfterNewerCommit(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	path := domain.Path{"a"}
	older := manager.Begin("doc", path)
	newer := manager.Begin("doc", path)
	_, err = manager.Commit(ctx, newer, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "String"})
	require.NoError(t, err)

	assert.True(t, manager.Stale(older))
	assert.True(t, manager.Stale(newer), "a committed ticket cannot commit again")

	_, err = manager.Commit(ctx, older, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "Expression"})
	assert.ErrorIs(t, err, domain.ErrStaleResult)

	next := manager.Begin("doc", path)
	assert.False(t, manager.Stale(next))
}

func TestManager_RelatedCommitSupersedesTicket(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild().WithChild("b", expr.MustParse(`input["b"]`)))
	require.NoError(t, err)

	root := manager.Begin("doc", domain.Path{})
	child := manager.Begin("doc", domain.Path{"a"})
	sibling := manager.Begin("doc", domain.Path{"b"})

	_, err = manager.Commit(ctx, child, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "String"})
	require.NoError(t, err)
	assert.True(t, manager.Stale(root), "ancestor read the old child")
	assert.False(t, manager.Stale(sibling))

	_, err = manager.Commit(ctx, sibling, domain.ConfigNode{Input: expr.MustParse(`input["b"]`), HandlerID: "String"})
	require.NoError(t, err)

	below := manager.Begin("doc", domain.Path{"a"})
	doc, err := manager.Load(ctx, "doc")
	require.NoError(t, err)
	_, err = manager.Commit(ctx, manager.Begin("doc", domain.Path{}), doc.Root)
	require.NoError(t, err)
	assert.True(t, manager.Stale(below), "descendant was replaced by the ancestor commit")
}

func TestManager_AncestorUpdateSupersededByChildCommit(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	started := make(chan struct{})
	resume := make(chan struct{})
	slowErr := make(chan error, 1)

	go func() {
		_, err := manager.Update(ctx, "doc", domain.Path{}, func(ctx context.Context, n domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
			close(started)
			<-resume
			n.HandlerID = "Expression"
			return n, nil
		})
		slowErr <- err
	}()

	<-started
	_, err = manager.Update(ctx, "doc", domain.Path{"a"}, func(ctx context.Context, n domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
		n.HandlerID = "String"
		return n, nil
	})
	require.NoError(t, err)
	close(resume)

	assert.ErrorIs(t, <-slowErr, domain.ErrStaleResult)

	doc, err := manager.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "Object", doc.Root.HandlerID)
	child, err := domain.At(doc.Root, domain.Path{"a"})
	require.NoError(t, err)
	assert.Equal(t, "String", child.HandlerID)
	assert.Equal(t, uint64(1), doc.Version)
}

func TestManager_SaveSupersedesPendingTickets(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	doc, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	ticket := manager.Begin("doc", domain.Path{"a"})
	_, err = manager.Save(ctx, doc)
	require.NoError(t, err)
	assert.True(t, manager.Stale(ticket))
}

func TestManager_LastWriterWins(t *testing.T) {
	manager := document.NewManager(memory.NewStore(), document.WithLastWriterWins())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	path := domain.Path{"a"}
	older := manager.Begin("doc", path)
	newer := manager.Begin("doc", path)

	_, err = manager.Commit(ctx, newer, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "String"})
	require.NoError(t, err)
	doc, err := manager.Commit(ctx, older, domain.ConfigNode{Input: expr.MustParse(`input["a"]`), HandlerID: "Expression"})
	require.NoError(t, err)

	child, _ := domain.At(doc.Root, path)
	assert.Equal(t, "Expression", child.HandlerID)
}

func TestManager_UpdateSupersededWhileSuspended(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	path := domain.Path{"a"}
	started := make(chan struct{})
	resume := make(chan struct{})
	slowErr := make(chan error, 1)

	go func() {
		_, err := manager.Update(ctx, "doc", path, func(ctx context.Context, n domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
			close(started)
			<-resume
			n.HandlerID = "Expression"
			return n, nil
		})
		slowErr <- err
	}()

	<-started
	_, err = manager.Update(ctx, "doc", path, func(ctx context.Context, n domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		assert.True(t, frame.Has(domain.InputVar))
		n.HandlerID = "String"
		return n, nil
	})
	require.NoError(t, err)
	close(resume)

	assert.True(t, errors.Is(<-slowErr, domain.ErrStaleResult))

	doc, err := manager.Load(ctx, "doc")
	require.NoError(t, err)
	child, _ := domain.At(doc.Root, path)
	assert.Equal(t, "String", child.HandlerID)
}

func TestManager_UpdateMissingPath(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", rootWithChild())
	require.NoError(t, err)

	_, err = manager.Update(ctx, "doc", domain.Path{"missing"}, func(ctx context.Context, n domain.ConfigNode, _ domain.Frame) (domain.ConfigNode, error) {
		t.Fatal("fn must not run")
		return n, nil
	})
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestManager_Undo(t *testing.T) {
	manager := document.NewManager(memory.NewStore(), document.WithHistoryLimit(2))
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", domain.DefaultNode())
	require.NoError(t, err)

	for _, h := range []string{"String", "Number", "Boolean"} {
		_, err := manager.Commit(ctx, manager.Begin("doc", nil), domain.ConfigNode{Input: expr.MustParse("x"), HandlerID: h})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, manager.HistoryLen("doc"))

	doc, err := manager.Undo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "Number", doc.Root.HandlerID)
	assert.Equal(t, uint64(4), doc.Version)

	doc, err = manager.Undo(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "String", doc.Root.HandlerID)

	_, err = manager.Undo(ctx, "doc")
	assert.True(t, errors.Is(err, document.ErrNothingToUndo))
}

func TestManager_DeleteForgetsHistory(t *testing.T) {
	manager := document.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := manager.LoadOrCreate(ctx, "doc", domain.DefaultNode())
	require.NoError(t, err)
	_, err = manager.Commit(ctx, manager.Begin("doc", nil), rootWithChild())
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, "doc"))
	assert.Equal(t, 0, manager.HistoryLen("doc"))

	_, err = manager.Load(ctx, "doc")
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound))
}
