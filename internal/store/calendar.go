package store

import (
	"sort"
	"sync"
	"time"

	"github.com/learnhome/client/internal/models"
)

// Period selects the calendar display window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Window is the currently displayed calendar range. Bounds are half-open:
// [start, end).
type Window struct {
	Period Period
	Anchor time.Time
}

func (w Window) Bounds() (time.Time, time.Time) {
	t := w.Anchor
	switch w.Period {
	case PeriodDay:
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 0, 1)
	case PeriodYear:
		start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(1, 0, 0)
	default: // month
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds()
	return !t.Before(start) && t.Before(end)
}

// CalendarStore holds the events visible in the current window. Events whose
// beginning falls outside the window are not tracked here at all: they still
// exist server-side and reappear when the window moves over them.
type CalendarStore struct {
	mu     sync.RWMutex
	window Window
	events map[string]models.CalendarEvent
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		window: Window{Period: PeriodMonth, Anchor: time.Now()},
		events: make(map[string]models.CalendarEvent),
	}
}

// SetWindow switches the display window and replaces the visible collection
// with the given refetched events, dropping any outside the new bounds.
func (s *CalendarStore) SetWindow(w Window, events []models.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = w
	s.events = make(map[string]models.CalendarEvent)
	for _, ev := range events {
		if w.Contains(ev.Beginning) {
			s.events[ev.ID] = ev
		}
	}
}

func (s *CalendarStore) Window() Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// Upsert inserts or updates an event in the visible collection. An update
// that moves the event outside the window removes it from view. Returns
// whether the event is visible afterwards.
func (s *CalendarStore) Upsert(ev models.CalendarEvent, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ev.VisibleTo(userID) || !s.window.Contains(ev.Beginning) {
		delete(s.events, ev.ID)
		return false
	}
	s.events[ev.ID] = ev
	return true
}

func (s *CalendarStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return false
	}
	delete(s.events, id)
	return true
}

func (s *CalendarStore) Event(id string) (models.CalendarEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

func (s *CalendarStore) Events() []models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CalendarEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beginning.Before(out[j].Beginning) })
	return out
}

func (s *CalendarStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]models.CalendarEvent)
}
