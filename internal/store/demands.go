package store

import (
	"sort"
	"sync"

	"github.com/learnhome/client/internal/models"
)

// DemandStore holds teaching demands keyed by id. The server enforces that
// a student has at most one active demand; Accept mirrors that exclusivity
// locally so the view converges without a refetch.
type DemandStore struct {
	mu      sync.RWMutex
	demands map[string]models.TeachingDemand
}

func NewDemandStore() *DemandStore {
	return &DemandStore{demands: make(map[string]models.TeachingDemand)}
}

// Upsert inserts or replaces a demand wholesale.
func (s *DemandStore) Upsert(d models.TeachingDemand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demands[d.ID] = d
}

// Accept marks the demand accepted and cancels the same student's other
// pending demands. Unknown ids are tolerated as a delivery gap.
func (s *DemandStore) Accept(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.demands[id]
	if !ok {
		return false
	}
	d.Accepted = true
	d.Cancelled = false
	s.demands[id] = d

	for otherID, other := range s.demands {
		if otherID == id || other.SenderID != d.SenderID {
			continue
		}
		if !other.Accepted {
			other.Cancelled = true
			s.demands[otherID] = other
		}
	}
	return true
}

// Cancel marks the demand cancelled. Idempotent; unknown ids no-op.
func (s *DemandStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.demands[id]
	if !ok {
		return false
	}
	d.Cancelled = true
	s.demands[id] = d
	return true
}

func (s *DemandStore) Demand(id string) (models.TeachingDemand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.demands[id]
	return d, ok
}

// ActiveFor returns the student's current non-cancelled demand, if any.
func (s *DemandStore) ActiveFor(studentID string) (models.TeachingDemand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.demands {
		if d.SenderID == studentID && !d.Cancelled {
			return d, true
		}
	}
	return models.TeachingDemand{}, false
}

func (s *DemandStore) Demands() []models.TeachingDemand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TeachingDemand, 0, len(s.demands))
	for _, d := range s.demands {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sent.Before(out[j].Sent) })
	return out
}

func (s *DemandStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demands = make(map[string]models.TeachingDemand)
}
