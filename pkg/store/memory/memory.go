// Package memory implements store.InterviewStore in process memory.
package memory

import (
	"sort"
	"sync"

	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/store"
)

// Store is an in-memory InterviewStore. Each instance is independent.
type Store struct {
	mu         sync.RWMutex
	interviews map[string]*model.Interview
}

// New creates an empty Store.
func New() *Store {
	return &Store{interviews: make(map[string]*model.Interview)}
}

// SaveInterview inserts or replaces an interview.
func (s *Store) SaveInterview(iv *model.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[iv.ID] = clone(iv)
	return nil
}

// GetInterview returns a copy of the interview with the given ID.
func (s *Store) GetInterview(id string) (*model.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.interviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(iv), nil
}

// ListInterviews returns the user's interviews, newest first.
func (s *Store) ListInterviews(userID string) ([]*model.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Interview
	for _, iv := range s.interviews {
		if iv.UserID == userID {
			out = append(out, clone(iv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(iv *model.Interview) *model.Interview {
	c := *iv
	c.History = model.CloneTurns(iv.History)
	return &c
}

var _ store.InterviewStore = (*Store)(nil)
