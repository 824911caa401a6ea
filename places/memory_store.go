package places

import (
	"context"
	"sync"
)

// MemoryStore keeps places in insertion order in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Place
	order  []string
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Place)}
}

func (s *MemoryStore) List(ctx context.Context, offset, limit int) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Place{}
	if offset < 0 || offset >= len(s.order) {
		return out, nil
	}
	end := min(offset+limit, len(s.order))
	for _, id := range s.order[offset:end] {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return Place{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Create(ctx context.Context, p Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, p Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; !ok {
		return ErrNotFound
	}
	s.byID[p.ID] = p
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
