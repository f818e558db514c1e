package store

import (
	"context"
	"sort"
	"sync"

	"github.com/drift-pay/drift-gateway/pkg/models"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]*models.PaymentIntent
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{intents: make(map[string]*models.PaymentIntent)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return intent.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intent.ID]; ok {
		return nil, ErrAlreadyExists
	}
	stored := intent.Clone()
	stored.Version = 1
	s.intents[intent.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, id string, expectedVersion uint64, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	stored := intent.Clone()
	stored.ID = id
	stored.Version = expectedVersion + 1
	s.intents[id] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.PaymentIntent, error) {
	s.mu.RLock()
	out := make([]*models.PaymentIntent, 0, len(s.intents))
	for _, intent := range s.intents {
		out = append(out, intent.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
