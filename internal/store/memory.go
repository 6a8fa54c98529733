package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teamtrack/volley-live-backend/internal/engine"
)

// Memory is the in-process store used in dev mode and tests.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]engine.Match
}

func NewMemory() *Memory {
	return &Memory{matches: make(map[string]engine.Match)}
}

func (s *Memory) CreateMatch(_ context.Context, m engine.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrAlreadyExists)
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *Memory) GetMatch(_ context.Context, id string) (engine.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return engine.Match{}, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return m.Clone(), nil
}

func (s *Memory) ListMatches(_ context.Context) ([]engine.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) SaveMatch(_ context.Context, m engine.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrNotFound)
	}
	s.matches[m.ID] = m.Clone()
	return nil
}
