package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/paneltree/internal/logging"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/ports"
)

// DefaultHistoryLimit bounds the undo history kept per document.
const DefaultHistoryLimit = 50

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates document access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.DocumentStore

	mu      sync.Mutex             // guards locks, tickets, history and seq
	locks   map[string]*lockEntry  // active per-document locks
	tickets map[string]*docTickets // unfinished tickets per document
	history map[string][]domain.ConfigNode
	seq     uint64

	locker       ports.DistributedLocker
	lockTTL      time.Duration
	lastWriter   bool
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks (30s by default).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLastWriterWins disables ticket supersession: every commit is applied
// in arrival order, even when a newer ticket exists.
func WithLastWriterWins() Option {
	return func(m *Manager) {
		m.lastWriter = true
	}
}

// WithHistoryLimit sets how many previous roots are kept for Undo.
// Zero disables history.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		m.historyLimit = n
	}
}

// NewManager creates a document manager over a store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		locks:        make(map[string]*lockEntry),
		tickets:      make(map[string]*docTickets),
		history:      make(map[string][]domain.ConfigNode),
		lockTTL:      30 * time.Second,
		historyLimit: DefaultHistoryLimit,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"document_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves a document.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, id)
		return err
	})
	return doc, err
}

// LoadOrCreate loads a document, creating it with root when missing.
func (m *Manager) LoadOrCreate(ctx context.Context, id string, root domain.ConfigNode) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("failed to check document existence: %w", err)
		}

		doc = domain.NewDocument(id, root)
		if err := m.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return nil
	})
	return doc, err
}

// Save replaces a whole document, bumping its version.
func (m *Manager) Save(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	var saved *domain.Document
	err := m.WithLock(ctx, doc.ID, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, doc.ID)
		switch {
		case err == nil:
			saved, err = m.commitRoot(ctx, prev, doc.Root)
			if err != nil {
				return err
			}
			m.markCommit(doc.ID, domain.Path{})
			return nil
		case errors.Is(err, domain.ErrDocumentNotFound):
			saved = domain.NewDocument(doc.ID, doc.Root)
			if err := m.store.Save(ctx, saved); err != nil {
				return err
			}
			m.markCommit(doc.ID, domain.Path{})
			return nil
		default:
			return err
		}
	})
	return saved, err
}

// Delete removes the document and forgets its history. Tickets still in
// flight become stale and are dropped when their updates return.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
		m.markCommit(id, domain.Path{})
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.history, id)
	m.mu.Unlock()
	return nil
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}

// commitRoot stores root as the new version of prev. Caller holds the lock.
func (m *Manager) commitRoot(ctx context.Context, prev *domain.Document, root domain.ConfigNode) (*domain.Document, error) {
	next := *prev
	next.Root = domain.Normalize(root)
	next.Version = prev.Version + 1
	next.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, &next); err != nil {
		return nil, err
	}
	m.pushHistory(prev.ID, prev.Root)
	return &next, nil
}

func (m *Manager) pushHistory(id string, root domain.ConfigNode) {
	if m.historyLimit <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := append(m.history[id], root)
	if len(h) > m.historyLimit {
		h = h[len(h)-m.historyLimit:]
	}
	m.history[id] = h
}

// Undo restores the root that preceded the last commit.
// The restore is itself a new version. It fails with ErrNothingToUndo when
// no history is left.
func (m *Manager) Undo(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		h := m.history[id]
		if len(h) == 0 {
			m.mu.Unlock()
			return ErrNothingToUndo
		}
		root := h[len(h)-1]
		m.history[id] = h[:len(h)-1]
		m.mu.Unlock()

		prev, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		next := *prev
		next.Root = root
		next.Version = prev.Version + 1
		next.UpdatedAt = m.now().UTC()
		if err := m.store.Save(ctx, &next); err != nil {
			return err
		}
		m.markCommit(id, domain.Path{})
		doc = &next
		return nil
	})
	return doc, err
}

// HistoryLen returns how many undo steps are available.
func (m *Manager) HistoryLen(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[id])
}
