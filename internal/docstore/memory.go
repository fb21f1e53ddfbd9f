package docstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in memory
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]string)}
}

// Put stores (or re-ingests) a document and returns its content hash
func (s *MemoryStore) Put(docID, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = text
	return HashText(text)
}

// ContentHash returns the hash of the current document text
func (s *MemoryStore) ContentHash(ctx context.Context, docID string) (string, error) {
	text, err := s.get(ctx, docID)
	if err != nil {
		return "", err
	}
	return HashText(text), nil
}

// Text returns the characters in [start, end), clamped to the document
func (s *MemoryStore) Text(ctx context.Context, docID string, start, end int) (string, error) {
	text, err := s.get(ctx, docID)
	if err != nil {
		return "", err
	}
	return slice(text, start, end), nil
}

func (s *MemoryStore) get(ctx context.Context, docID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.docs[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	return text, nil
}
