package ledger

import (
	"context"
	"sync"

	"carddraw/internal/models"

	"github.com/google/logger"
)

// Simulated is an in-memory ledger used in demo mode. Nothing leaves the process.
type Simulated struct {
	mu      sync.RWMutex
	entries map[models.Category]map[string]string // category -> team -> result
}

// NewSimulated creates an empty simulated ledger.
func NewSimulated() *Simulated {
	return &Simulated{entries: make(map[models.Category]map[string]string)}
}

// CheckExists reports whether team has a result in category.
func (s *Simulated) CheckExists(_ context.Context, category models.Category, team string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[category][team]
	return ok, nil
}

// RecordResult stores the first result per (category, team).
func (s *Simulated) RecordResult(_ context.Context, category models.Category, team, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[category] == nil {
		s.entries[category] = make(map[string]string)
	}
	if _, ok := s.entries[category][team]; !ok {
		s.entries[category][team] = result
	}
	logger.Infof("simulated ledger: recorded %q for team %q in %s", result, team, category)
	return nil
}
