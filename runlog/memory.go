package runlog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore keeps run histories in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	losses map[string][]LossPoint
	pieces map[string][]Piece
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.losses = make(map[string][]LossPoint)
	s.pieces = make(map[string][]Piece)
	return nil
}

func (s *MemoryStore) AddLoss(_ context.Context, run string, point LossPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.losses == nil {
		return errors.New("store is not initialized")
	}
	s.losses[run] = append(s.losses[run], point)
	return nil
}

func (s *MemoryStore) AddPiece(_ context.Context, run string, piece Piece) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pieces == nil {
		return errors.New("store is not initialized")
	}
	s.pieces[run] = append(s.pieces[run], piece)
	return nil
}

func (s *MemoryStore) Losses(_ context.Context, run string) ([]LossPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := append([]LossPoint{}, s.losses[run]...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].Step < res[j].Step
	})
	return res, nil
}

func (s *MemoryStore) Pieces(_ context.Context, run string) ([]Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := append([]Piece{}, s.pieces[run]...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].Step < res[j].Step
	})
	return res, nil
}
