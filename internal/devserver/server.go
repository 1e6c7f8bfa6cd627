// Package devserver is the backend counterpart the realtime engine talks to
// in development and in end-to-end tests: the REST API plus the websocket
// hub relaying events between connected users.
package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnhome/client/internal/devserver/store"
)

type Server struct {
	store     *store.Store
	hub       *Hub
	presence  *Presence
	jwtSecret string
	jwtIssuer string
	router    *mux.Router
}

type Options struct {
	JWTSecret string
	JWTIssuer string
	Presence  *Presence
}

func New(st *store.Store, opts Options) *Server {
	presence := opts.Presence
	if presence == nil {
		presence = NewPresence(nil)
	}
	s := &Server{
		store:     st,
		presence:  presence,
		jwtSecret: opts.JWTSecret,
		jwtIssuer: opts.JWTIssuer,
	}
	s.hub = NewHub(st, presence)
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := mux.NewRouter()

	r.HandleFunc("/api/signup", s.handleSignup).Methods("POST")
	r.HandleFunc("/api/login", s.handleLogin).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/api/users/me", s.handleMe).Methods("GET")
	authed.HandleFunc("/api/users/search", s.handleSearchUsers).Methods("GET")
	authed.HandleFunc("/api/users/{id}/status", s.handleConnectionStatus).Methods("GET")
	authed.HandleFunc("/api/users/{id}", s.handleProfile).Methods("GET")

	authed.HandleFunc("/api/messages/unread", s.handleUnreadTotal).Methods("GET")
	authed.HandleFunc("/api/messages", s.handleSendMessage).Methods("POST")
	authed.HandleFunc("/api/conversations/{peer}", s.handleConversation).Methods("GET")
	authed.HandleFunc("/api/conversations/{peer}/read", s.handleMarkRead).Methods("POST")

	authed.HandleFunc("/api/contacts", s.handleContacts).Methods("GET")
	authed.HandleFunc("/api/contacts/{peer}", s.handleRemoveContact).Methods("DELETE")
	authed.HandleFunc("/api/invitations", s.handleListInvitations).Methods("GET")
	authed.HandleFunc("/api/invitations", s.handleSendInvitation).Methods("POST")
	authed.HandleFunc("/api/invitations/{sender}/accept", s.handleAcceptInvitation).Methods("POST")
	authed.HandleFunc("/api/invitations/{sender}/decline", s.handleDeclineInvitation).Methods("POST")

	authed.HandleFunc("/api/demands", s.handleListDemands).Methods("GET")
	authed.HandleFunc("/api/demands", s.handleSendDemand).Methods("POST")
	authed.HandleFunc("/api/demands/{id}/accept", s.handleAcceptDemand).Methods("POST")
	authed.HandleFunc("/api/demands/{id}/cancel", s.handleCancelDemand).Methods("POST")

	authed.HandleFunc("/api/events", s.handleListEvents).Methods("GET")
	authed.HandleFunc("/api/events", s.handleCreateEvent).Methods("POST")
	authed.HandleFunc("/api/events/{id}", s.handleModifyEvent).Methods("PUT")
	authed.HandleFunc("/api/events/{id}", s.handleDeleteEvent).Methods("DELETE")
	authed.HandleFunc("/api/events/{id}/accept", s.handleEventResponse(true)).Methods("POST")
	authed.HandleFunc("/api/events/{id}/decline", s.handleEventResponse(false)).Methods("POST")

	authed.HandleFunc("/api/tasks", s.handleListTasks).Methods("GET")
	authed.HandleFunc("/api/tasks", s.handleCreateTask).Methods("POST")
	authed.HandleFunc("/api/tasks/{id}/complete", s.handleCompleteTask).Methods("POST")
	authed.HandleFunc("/api/tasks/{id}/validate", s.handleValidateTask).Methods("POST")

	r.HandleFunc("/ws", s.handleWS)

	s.router = r
}

// handleWS authenticates the dial itself; the hub trusts the resolved id.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.parseToken(bearerToken(r))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.hub.ServeWS(w, r, userID)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeFieldErrors is the structured 400 shape the client surfaces inline.
func writeFieldErrors(w http.ResponseWriter, errs map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}
