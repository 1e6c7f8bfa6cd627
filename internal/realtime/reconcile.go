package realtime

import (
	"log"

	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/store"
)

// Reconciliation functions. Each is one state transition plus at most one
// notification write. They are written to be idempotent: the transport may
// retry a delivery and the same event applied twice must converge to the
// same state.

func (r *Router) receiveMessage(p MessagePayload) {
	self := r.sess.UserID()
	if p.Receiver.ID != self {
		return
	}

	_, active := r.stores.Messages.Append(p.Message)
	if !active {
		sender := models.User{ID: p.Sender.ID, Username: p.Sender.Username}
		if c, ok := r.stores.Contacts.Contact(p.Sender.ID); ok {
			sender = c.User
		}
		r.presenter.Publish(notify.MessageReceived{Sender: sender, Preview: p.Message.Content})
	}

	// Both unread counters come from the server. An unauthorized result on
	// either round-trip means the token died under us: tear down. A
	// transient failure keeps the previous counter; the next event
	// refreshes it.
	epoch := r.sess.Epoch()
	total, res := r.api.UnreadTotal(r.ctx())
	if !res.Authorized {
		r.sess.ForceLogout("unread refresh unauthorized")
		return
	}
	if res.Valid {
		r.guarded(epoch, func() { r.stores.Messages.SetUnreadTotal(total) })
	} else {
		log.Printf("unread total refresh failed: %s", res.Message)
	}

	conv, res := r.api.LastConversation(r.ctx(), p.Sender.ID)
	if !res.Authorized {
		r.sess.ForceLogout("conversation refresh unauthorized")
		return
	}
	if res.Valid {
		key := store.Thread(p.Sender.ID, self)
		r.guarded(epoch, func() { r.stores.Messages.SetThreadUnread(key, conv.Unread) })
	} else {
		log.Printf("conversation refresh failed: %s", res.Message)
	}
}

func (r *Router) notifyConnection(p PresencePayload) {
	if p.UserID == r.sess.UserID() {
		return
	}
	r.stores.Contacts.SetPresence(p.UserID, p.Connected)
}

func (r *Router) receiveInvitation(p InvitationPayload) {
	if p.Receiver.ID != r.sess.UserID() {
		return
	}
	r.stores.Contacts.AddInvitation(models.Invitation{
		SenderID:       p.Sender.ID,
		SenderUsername: p.Sender.Username,
		ReceiverID:     p.Receiver.ID,
		Status:         models.InvitationPending,
	})
	r.presenter.Publish(notify.InvitationReceived{SenderID: p.Sender.ID, SenderUsername: p.Sender.Username})
}

// invitationAccepted fires on the inviter's side when the peer accepts. The
// contact is materialized from the event payload first, so a failed profile
// fetch can never lose the acceptance; the fetch only upgrades the entry.
func (r *Router) invitationAccepted(p InvitationPayload) {
	self := r.sess.UserID()
	if p.Sender.ID != self {
		return
	}

	r.stores.Contacts.ResolveInvitation(self, p.Receiver.ID, models.InvitationAccepted)
	placeholder := models.User{ID: p.Receiver.ID, Username: p.Receiver.Username}
	r.stores.Contacts.AddContact(placeholder, false)
	r.presenter.Publish(notify.InvitationAccepted{
		Contact: models.Contact{User: placeholder},
	})

	epoch := r.sess.Epoch()
	profile, res := r.api.Profile(r.ctx(), p.Receiver.ID)
	if !res.Authorized {
		r.sess.ForceLogout("profile fetch unauthorized")
		return
	}
	if res.Valid {
		r.guarded(epoch, func() { r.stores.Contacts.AddContact(profile, true) })
	} else {
		log.Printf("contact profile fetch failed, keeping placeholder: %s", res.Message)
	}
}

func (r *Router) contactRemoved(p ContactRemovedPayload) {
	if p.ReceiverID != r.sess.UserID() {
		return
	}
	if r.stores.Contacts.RemoveContact(p.SenderID) {
		r.presenter.Publish(notify.ContactRemoved{PeerID: p.SenderID})
	}
}

func (r *Router) receiveDemand(p DemandPayload) {
	if p.Demand.ReceiverID != r.sess.UserID() {
		return
	}
	r.stores.Demands.Upsert(p.Demand)
	r.presenter.Publish(notify.DemandReceived{Demand: p.Demand})
}

// demandAccepted fires on the student's side. Accepting one demand cancels
// the student's other pending demands, mirroring server-side exclusivity.
func (r *Router) demandAccepted(p DemandPayload) {
	if p.Demand.SenderID != r.sess.UserID() {
		return
	}
	if _, ok := r.stores.Demands.Demand(p.Demand.ID); !ok {
		// Delivery gap: the demand was never fetched locally.
		r.stores.Demands.Upsert(p.Demand)
	}
	r.stores.Demands.Accept(p.Demand.ID)
	if d, ok := r.stores.Demands.Demand(p.Demand.ID); ok {
		r.presenter.Publish(notify.DemandAccepted{Demand: d})
	}
}

func (r *Router) demandCancelled(p DemandPayload) {
	if r.stores.Demands.Cancel(p.Demand.ID) {
		r.presenter.Publish(notify.DemandCancelled{DemandID: p.Demand.ID})
	}
}

func (r *Router) receiveEvent(p EventPayload) {
	self := r.sess.UserID()
	if !p.Event.VisibleTo(self) {
		return
	}
	r.stores.Calendar.Upsert(p.Event, self)
	r.presenter.Publish(notify.CalendarChanged{Event: p.Event})
}

func (r *Router) eventParticipation(p EventPayload) {
	self := r.sess.UserID()
	if !p.Event.VisibleTo(self) {
		return
	}
	r.stores.Calendar.Upsert(p.Event, self)
	r.presenter.Publish(notify.CalendarChanged{Event: p.Event})
}

// eventModified re-applies window filtering: a modified event that moved
// outside the displayed window disappears from view even though it still
// exists server-side.
func (r *Router) eventModified(p EventPayload) {
	self := r.sess.UserID()
	if !p.Event.VisibleTo(self) {
		// Self may have been dropped from the guest list.
		if r.stores.Calendar.Remove(p.Event.ID) {
			r.presenter.Publish(notify.CalendarChanged{Event: p.Event, Removed: true})
		}
		return
	}
	visible := r.stores.Calendar.Upsert(p.Event, self)
	r.presenter.Publish(notify.CalendarChanged{Event: p.Event, Removed: !visible})
}

func (r *Router) eventDeleted(p EventPayload) {
	if !p.Event.VisibleTo(r.sess.UserID()) {
		return
	}
	if r.stores.Calendar.Remove(p.Event.ID) {
		r.presenter.Publish(notify.CalendarChanged{Event: p.Event, Removed: true})
	}
}

func (r *Router) taskCreated(p TaskPayload) {
	if !r.taskRelevant(p.Task) {
		return
	}
	r.stores.Tasks.Upsert(p.Task)
	r.presenter.Publish(notify.TaskChanged{Task: p.Task})
}

// taskUpdated applies completed/validated transitions. Status only moves
// forward, so a stale retry cannot regress a validated task.
func (r *Router) taskUpdated(p TaskPayload) {
	if !r.taskRelevant(p.Task) {
		return
	}
	if local, ok := r.stores.Tasks.Task(p.Task.ID); ok && local.Validated && !p.Task.Validated {
		return
	}
	r.stores.Tasks.Upsert(p.Task)
	r.presenter.Publish(notify.TaskChanged{Task: p.Task})
}

func (r *Router) taskRelevant(t models.Task) bool {
	return t.PerformerID == r.sess.UserID() || r.sess.Role() == models.RoleTeacher
}
