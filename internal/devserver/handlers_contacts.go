package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnhome/client/internal/models"
)

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Contacts(requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := s.store.PendingInvitations(requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if invs == nil {
		invs = []models.Invitation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string `json:"receiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	self := requesterID(r)
	if req.ReceiverID == "" || req.ReceiverID == self {
		writeFieldErrors(w, map[string]string{"receiver_id": "invalid receiver"})
		return
	}
	if _, err := s.store.GetUserByID(req.ReceiverID); err != nil {
		http.Error(w, "Receiver not found", http.StatusNotFound)
		return
	}
	if already, err := s.store.AreContacts(self, req.ReceiverID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if already {
		writeFieldErrors(w, map[string]string{"receiver_id": "already a contact"})
		return
	}
	if err := s.store.CreateInvitation(self, req.ReceiverID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	senderID := mux.Vars(r)["sender"]
	self := requesterID(r)

	flipped, err := s.store.SetInvitationStatus(senderID, self, models.InvitationAccepted)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !flipped {
		http.Error(w, "Invitation not found", http.StatusNotFound)
		return
	}
	if err := s.store.AddContact(senderID, self); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	flipped, err := s.store.SetInvitationStatus(mux.Vars(r)["sender"], requesterID(r), models.InvitationDeclined)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !flipped {
		http.Error(w, "Invitation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	// Idempotent: removing an absent edge still returns OK.
	if err := s.store.RemoveContact(requesterID(r), mux.Vars(r)["peer"]); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
