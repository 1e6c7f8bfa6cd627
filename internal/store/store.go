package store

// Stores bundles the per-domain state owned by one session. Each domain is
// mutated only by its own reconciliation functions and REST handlers; no two
// domains share a store.
type Stores struct {
	Messages *MessageStore
	Contacts *ContactStore
	Demands  *DemandStore
	Calendar *CalendarStore
	Tasks    *TaskStore
}

func New() *Stores {
	return &Stores{
		Messages: NewMessageStore(),
		Contacts: NewContactStore(),
		Demands:  NewDemandStore(),
		Calendar: NewCalendarStore(),
		Tasks:    NewTaskStore(),
	}
}

// ClearAll wipes every domain. Called on logout.
func (s *Stores) ClearAll() {
	s.Messages.Clear()
	s.Contacts.Clear()
	s.Demands.Clear()
	s.Calendar.Clear()
	s.Tasks.Clear()
}
