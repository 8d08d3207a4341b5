package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/paneltree/pkg/domain"
)

// ErrNothingToUndo is returned by Undo when no previous root is kept.
var ErrNothingToUndo = errors.New("nothing to undo")

// Ticket identifies one pending change of the node at Path.
type Ticket struct {
	DocumentID string
	Path       domain.Path
	Stamp      uint64
}

// NodeFunc computes the new value of a node. frame is the frame visible at
// the node. It runs outside the document lock and may suspend.
type NodeFunc func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error)

// docTickets tracks the tickets of one document that have not finished.
type docTickets struct {
	pending map[uint64]domain.Path // issued and not yet committed or dropped
	latest  map[string]uint64      // newest stamp issued per path
	commits []commitMark           // commits a pending ticket may not have seen
}

// commitMark records that the subtree at path changed at seq.
type commitMark struct {
	path domain.Path
	seq  uint64
}

// related reports whether one path is a prefix of the other. A commit on
// either side rewrites part of what the other ticket read.
func related(a, b domain.Path) bool {
	return a.HasPrefix(b) || b.HasPrefix(a)
}

// Begin issues a ticket for the node at path, superseding older ones.
func (m *Manager) Begin(id string, path domain.Path) Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	d, ok := m.tickets[id]
	if !ok {
		d = &docTickets{pending: make(map[uint64]domain.Path), latest: make(map[string]uint64)}
		m.tickets[id] = d
	}
	path = append(domain.Path(nil), path...)
	d.pending[m.seq] = path
	d.latest[path.String()] = m.seq
	return Ticket{DocumentID: id, Path: path, Stamp: m.seq}
}

// Stale reports whether t can no longer commit: a newer ticket was issued
// for the same node, an ancestor or descendant committed after t was issued,
// or t already finished.
func (m *Manager) Stale(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.tickets[t.DocumentID]
	if !ok {
		return true
	}
	if _, ok := d.pending[t.Stamp]; !ok {
		return true
	}
	if d.latest[t.Path.String()] > t.Stamp {
		return true
	}
	for _, c := range d.commits {
		if c.seq > t.Stamp && related(c.path, t.Path) {
			return true
		}
	}
	return false
}

// Commit writes node at the ticket's path as a new document version.
// A superseded ticket fails with domain.ErrStaleResult and leaves the
// document untouched, unless the manager runs last-writer-wins.
func (m *Manager) Commit(ctx context.Context, t Ticket, node domain.ConfigNode) (*domain.Document, error) {
	defer m.finish(t)

	var doc *domain.Document
	err := m.WithLock(ctx, t.DocumentID, func(ctx context.Context) error {
		if !m.lastWriter && m.Stale(t) {
			m.logger.Debug("discarding superseded result", "document_id", t.DocumentID, "path", t.Path.String(), "stamp", t.Stamp)
			return fmt.Errorf("%w: %s at %s", domain.ErrStaleResult, t.DocumentID, t.Path)
		}

		prev, err := m.store.Load(ctx, t.DocumentID)
		if err != nil {
			return err
		}
		root, err := domain.ReplaceAt(prev.Root, t.Path, node)
		if err != nil {
			return err
		}
		doc, err = m.commitRoot(ctx, prev, root)
		if err != nil {
			return err
		}
		m.markCommit(t.DocumentID, t.Path)
		return nil
	})
	return doc, err
}

// markCommit records a change of the subtree at path for the pending
// tickets of the document. Caller holds the document lock.
func (m *Manager) markCommit(id string, path domain.Path) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.tickets[id]
	if !ok {
		return
	}
	m.seq++
	d.commits = append(d.commits, commitMark{path: append(domain.Path(nil), path...), seq: m.seq})
}

// finish drops a ticket. Stamps and commit marks are kept while an older
// pending ticket may still be compared against them.
func (m *Manager) finish(t Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.tickets[t.DocumentID]
	if !ok {
		return
	}
	delete(d.pending, t.Stamp)
	if len(d.pending) == 0 {
		delete(m.tickets, t.DocumentID)
		return
	}

	key := t.Path.String()
	oldest := uint64(0)
	onPath := false
	for stamp, p := range d.pending {
		if oldest == 0 || stamp < oldest {
			oldest = stamp
		}
		if p.String() == key {
			onPath = true
		}
	}
	if !onPath {
		delete(d.latest, key)
	}

	kept := d.commits[:0]
	for _, c := range d.commits {
		if c.seq > oldest {
			kept = append(kept, c)
		}
	}
	d.commits = kept
}

// Update runs fn on the node at path and commits the result under a ticket.
// The snapshot is read under the lock, fn runs without it, and the commit
// fails with domain.ErrStaleResult if another update of the same node began
// or an ancestor or descendant committed in the meantime.
func (m *Manager) Update(ctx context.Context, id string, path domain.Path, fn NodeFunc) (*domain.Document, error) {
	t := m.Begin(id, path)

	snapshot, err := m.Load(ctx, id)
	if err != nil {
		m.finish(t)
		return nil, err
	}
	node, err := domain.At(snapshot.Root, path)
	if err != nil {
		m.finish(t)
		return nil, err
	}
	frame, err := domain.VisibleFrame(snapshot.Root, path)
	if err != nil {
		m.finish(t)
		return nil, err
	}

	next, err := fn(ctx, node, frame)
	if err != nil {
		m.finish(t)
		return nil, err
	}
	return m.Commit(ctx, t, next)
}
