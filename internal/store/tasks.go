package store

import (
	"sort"
	"sync"

	"github.com/learnhome/client/internal/models"
)

// TaskStore holds tasks keyed by id. Status only moves forward:
// todo -> done -> validated. There is no deletion path in this flow.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]models.Task)}
}

func (s *TaskStore) Upsert(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// Complete marks the task done. Only the performer may complete their own
// task, and a validated task never moves back.
func (s *TaskStore) Complete(id, byUserID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.PerformerID != byUserID || t.Validated {
		return false
	}
	t.Done = true
	s.tasks[id] = t
	return true
}

// Validate marks a done task validated. Only a teacher may do this.
func (s *TaskStore) Validate(id, byRole string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || byRole != models.RoleTeacher || !t.Done {
		return false
	}
	t.Validated = true
	s.tasks[id] = t
	return true
}

func (s *TaskStore) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *TaskStore) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *TaskStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]models.Task)
}
