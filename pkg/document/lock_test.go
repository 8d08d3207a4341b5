package document

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/ports"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, doc *domain.Document) error { return nil }
func (m *MockStore) Load(ctx context.Context, id string) (*domain.Document, error) {
	return nil, domain.ErrDocumentNotFound
}
func (m *MockStore) Delete(ctx context.Context, id string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)  { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("doc-%d", i)
		_, _ = mgr.Save(ctx, domain.NewDocument(id, domain.DefaultNode()))
		_ = mgr.Delete(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount > 0 {
		t.Errorf("Memory Leak Detected: %d locks remain in memory after %d documents deleted", lockCount, count)
	}
}

func TestManager_StampsAreRetired(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, _ = mgr.Update(ctx, "missing", domain.Path{"a"}, nil)
	}
	if n := len(mgr.tickets); n > 0 {
		t.Errorf("%d ticket records remain after failed updates", n)
	}
}

func TestManager_TicketRecordOutlivesCommit(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()

	older := mgr.Begin("doc", domain.Path{"a"})
	newer := mgr.Begin("doc", domain.Path{"a"})
	mgr.markCommit("doc", newer.Path)
	mgr.finish(newer)

	if _, ok := mgr.tickets["doc"]; !ok {
		t.Fatal("record dropped while an older ticket is pending")
	}
	if !mgr.Stale(older) {
		t.Error("older ticket not stale after newer commit")
	}

	if _, err := mgr.Commit(ctx, older, domain.DefaultNode()); err == nil {
		t.Error("stale commit succeeded")
	}
	if n := len(mgr.tickets); n > 0 {
		t.Errorf("%d ticket records remain after all tickets finished", n)
	}
}

type recordingLocker struct {
	keys     []string
	released int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.keys = append(l.keys, key)
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr := NewManager(&MockStore{}, WithLocker(locker), WithLockTTL(time.Second))

	err := mgr.WithLock(context.Background(), "doc", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if len(locker.keys) != 1 || locker.keys[0] != "doc" || locker.released != 1 {
		t.Errorf("unexpected locker usage: keys=%v released=%d", locker.keys, locker.released)
	}
}
