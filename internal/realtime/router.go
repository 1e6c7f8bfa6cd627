package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/store"
)

// Session is what the router needs to know about the authenticated session.
// Implemented by the session package; an interface here keeps the dependency
// pointing one way.
type Session interface {
	UserID() string
	Role() string
	// Epoch changes on every logout. Reconciliation work that straddles a
	// REST round-trip rechecks it so a stale completion cannot write into a
	// newer session's state.
	Epoch() uint64
	// ForceLogout tears the session down after an unauthorized REST result.
	ForceLogout(reason string)
}

// Router owns one handler per inbound event name. The recipient check in
// each handler is a relevance filter so one shared hub can fan out to many
// users; it is NOT access control. The server is the only authority on who
// may see what.
type Router struct {
	sess      Session
	stores    *store.Stores
	presenter *notify.Presenter
	api       *api.Client
	conn      *Conn
}

func NewRouter(sess Session, st *store.Stores, p *notify.Presenter, apiClient *api.Client) *Router {
	return &Router{sess: sess, stores: st, presenter: p, api: apiClient}
}

// Attach registers every handler on the connection. Attaching to a second
// connection detaches from the first, so handlers are never live on two
// connections at once.
func (r *Router) Attach(conn *Conn) {
	if r.conn != nil {
		r.conn.OffAll()
	}
	r.conn = conn

	conn.On(EventReceiveMessage, decode(r.receiveMessage))
	conn.On(EventNotifyConnection, decode(r.notifyConnection))
	conn.On(EventReceiveInvite, decode(r.receiveInvitation))
	conn.On(EventInviteAccepted, decode(r.invitationAccepted))
	conn.On(EventContactRemoved, decode(r.contactRemoved))
	conn.On(EventReceiveDemand, decode(r.receiveDemand))
	conn.On(EventDemandAccepted, decode(r.demandAccepted))
	conn.On(EventDemandCancelled, decode(r.demandCancelled))
	conn.On(EventReceiveEvent, decode(r.receiveEvent))
	conn.On(EventParticipation, decode(r.eventParticipation))
	conn.On(EventEventModified, decode(r.eventModified))
	conn.On(EventEventDeleted, decode(r.eventDeleted))
	conn.On(EventTaskCreated, decode(r.taskCreated))
	conn.On(EventTaskCompleted, decode(r.taskUpdated))
	conn.On(EventTaskValidated, decode(r.taskUpdated))
}

// Detach removes all handlers from the current connection.
func (r *Router) Detach() {
	if r.conn != nil {
		r.conn.OffAll()
		r.conn = nil
	}
}

// Emit sends an outbound frame if a connection is attached.
func (r *Router) Emit(event string, data interface{}) bool {
	if r.conn == nil || !r.conn.Alive() {
		return false
	}
	return r.conn.Emit(event, data)
}

// decode adapts a typed reconciliation function to the raw-frame handler
// shape. Malformed payloads are logged and dropped.
func decode[T any](fn func(T)) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Printf("socket: bad payload: %v", err)
			return
		}
		fn(payload)
	}
}

// guarded runs fn only if the session epoch has not moved since the handler
// started, discarding REST completions that raced a logout.
func (r *Router) guarded(epoch uint64, fn func()) {
	if r.sess.Epoch() != epoch {
		return
	}
	fn()
}

func (r *Router) ctx() context.Context {
	return context.Background()
}
