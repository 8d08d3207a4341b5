package http

import (
	"log/slog"
	"sync"
)

// StreamManager handles active SSE connections, keyed by document id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a document. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(docID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[docID]; !ok {
		sm.subscribers[docID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[docID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[docID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, docID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of a document.
// Slow subscribers with a full buffer miss the message.
func (sm *StreamManager) Broadcast(docID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[docID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document_id", docID)
		}
	}
}

// Subscribers returns the number of listeners of a document.
func (sm *StreamManager) Subscribers(docID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[docID])
}
