package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/models"
)

func (s *Server) handleUnreadTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.UnreadTotal(requesterID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string   `json:"receiver_id"`
		Content    string   `json:"content"`
		Files      []string `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	errs := map[string]string{}
	if req.ReceiverID == "" {
		errs["receiver_id"] = "receiver is required"
	}
	if req.Content == "" && len(req.Files) == 0 {
		errs["content"] = "message is empty"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	if _, err := s.store.GetUserByID(req.ReceiverID); err != nil {
		http.Error(w, "Receiver not found", http.StatusNotFound)
		return
	}

	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   requesterID(r),
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Files:      req.Files,
		SentAt:     time.Now().UTC(),
	}
	if err := s.store.SaveMessage(msg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	msgs, unread, err := s.store.Conversation(requesterID(r), mux.Vars(r)["peer"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, api.Conversation{Messages: msgs, Unread: unread})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkThreadRead(requesterID(r), mux.Vars(r)["peer"]); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
