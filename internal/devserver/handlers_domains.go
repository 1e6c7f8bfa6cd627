package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/learnhome/client/internal/devserver/store"
	"github.com/learnhome/client/internal/models"
)

func (s *Server) handleListDemands(w http.ResponseWriter, r *http.Request) {
	demands, err := s.store.DemandsFor(requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if demands == nil {
		demands = []models.TeachingDemand{}
	}
	writeJSON(w, http.StatusOK, demands)
}

func (s *Server) handleSendDemand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string `json:"receiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	self := requesterID(r)
	if requesterRole(r) != models.RoleStudent {
		writeFieldErrors(w, map[string]string{"sender": "only students send teaching demands"})
		return
	}
	teacher, err := s.store.GetUserByID(req.ReceiverID)
	if err != nil || teacher.Role != models.RoleTeacher {
		writeFieldErrors(w, map[string]string{"receiver_id": "receiver must be a teacher"})
		return
	}
	if active, err := s.store.HasActiveDemand(self); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if active {
		writeFieldErrors(w, map[string]string{"receiver_id": "a demand is already pending"})
		return
	}

	demand := models.TeachingDemand{
		ID:         uuid.NewString(),
		SenderID:   self,
		ReceiverID: req.ReceiverID,
		Sent:       time.Now().UTC(),
	}
	if err := s.store.CreateDemand(demand); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, demand)
}

func (s *Server) handleAcceptDemand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	demand, err := s.store.GetDemand(id)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Demand not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if demand.ReceiverID != requesterID(r) {
		http.Error(w, "Demand not found", http.StatusNotFound)
		return
	}
	if demand.Cancelled {
		writeFieldErrors(w, map[string]string{"demand": "demand was cancelled"})
		return
	}
	if _, err := s.store.AcceptDemand(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Contacts follow from tutoring: acceptance links the pair.
	if err := s.store.AddContact(demand.SenderID, demand.ReceiverID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCancelDemand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	demand, err := s.store.GetDemand(id)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Demand not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	self := requesterID(r)
	if demand.SenderID != self && demand.ReceiverID != self {
		http.Error(w, "Demand not found", http.StatusNotFound)
		return
	}
	if err := s.store.CancelDemand(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	from, err1 := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	to, err2 := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		writeFieldErrors(w, map[string]string{"range": "from and to must be RFC3339"})
		return
	}
	events, err := s.store.EventsBetween(requesterID(r), from.UTC(), to.UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func validateEvent(ev models.CalendarEvent) map[string]string {
	errs := map[string]string{}
	if ev.Title == "" {
		errs["title"] = "title is required"
	}
	if ev.Beginning.IsZero() || ev.End.IsZero() {
		errs["beginning"] = "beginning and end are required"
	} else if ev.End.Before(ev.Beginning) {
		errs["end"] = "event ends before it begins"
	}
	return errs
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errs := validateEvent(ev); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	ev.ID = uuid.NewString()
	ev.OrganizerID = requesterID(r)
	ev.Attendees = nil
	ev.Beginning = ev.Beginning.UTC()
	ev.End = ev.End.UTC()
	if err := s.store.CreateEvent(ev); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	created, err := s.store.GetEvent(ev.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleModifyEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := s.store.GetEvent(id)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing.OrganizerID != requesterID(r) {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	var ev models.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev.ID = id
	ev.OrganizerID = existing.OrganizerID
	ev.Beginning = ev.Beginning.UTC()
	ev.End = ev.End.UTC()
	if errs := validateEvent(ev); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if err := s.store.UpdateEvent(ev); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	updated, err := s.store.GetEvent(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := s.store.GetEvent(id)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing.OrganizerID != requesterID(r) {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	if err := s.store.DeleteEvent(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleEventResponse(accepted bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		self := requesterID(r)
		ev, err := s.store.GetEvent(id)
		if err != nil {
			if store.IsNotFound(err) {
				http.Error(w, "Event not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ev.VisibleTo(self) || ev.OrganizerID == self {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		if err := s.store.SetParticipation(id, self, accepted); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.TasksFor(requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if task.Title == "" {
		writeFieldErrors(w, map[string]string{"title": "title is required"})
		return
	}
	if task.PerformerID == "" {
		task.PerformerID = requesterID(r)
	}
	task.ID = uuid.NewString()
	task.Done = false
	task.Validated = false
	if err := s.store.CreateTask(task); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	flipped, err := s.store.CompleteTask(mux.Vars(r)["id"], requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !flipped {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleValidateTask(w http.ResponseWriter, r *http.Request) {
	if requesterRole(r) != models.RoleTeacher {
		writeFieldErrors(w, map[string]string{"role": "only teachers validate tasks"})
		return
	}
	flipped, err := s.store.ValidateTask(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !flipped {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
