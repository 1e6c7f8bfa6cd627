package session

import (
	"context"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/realtime"
	"github.com/learnhome/client/internal/store"
)

// User-facing operations. Each one is REST first, local state second, then
// an outbound emit so the peer's router can reconcile. The emit carries the
// mutated entity plus the identity metadata the recipient filters on.

// applied folds the forced-logout rule into one place: an unauthorized
// result anywhere tears the session down.
func (s *Session) applied(res api.Result) bool {
	if !res.Authorized {
		s.ForceLogout("rest call unauthorized")
		return false
	}
	return res.Valid
}

func (s *Session) selfRef() realtime.UserRef {
	u := s.User()
	return realtime.UserRef{ID: u.ID, Username: u.Username}
}

// OpenConversation makes a thread active: its inbound messages no longer
// toast and arrive already read. The thread is rehydrated and marked read
// server-side.
func (s *Session) OpenConversation(ctx context.Context, peerID string) api.Result {
	self := s.UserID()
	s.stores.Messages.SetActiveThread(self, peerID)

	if res := s.api.MarkThreadRead(ctx, peerID); !s.applied(res) {
		return res
	}
	conv, res := s.api.LastConversation(ctx, peerID)
	if !s.applied(res) {
		return res
	}
	key := store.Thread(self, peerID)
	s.stores.Messages.ReplaceThread(key, conv.Messages)
	s.stores.Messages.SetThreadUnread(key, conv.Unread)

	if total, res := s.api.UnreadTotal(ctx); s.applied(res) {
		s.stores.Messages.SetUnreadTotal(total)
	}
	return res
}

func (s *Session) CloseConversation() {
	s.stores.Messages.ClearActiveThread()
}

func (s *Session) SendMessage(ctx context.Context, peerID, content string, files []string) (models.Message, api.Result) {
	msg, res := s.api.SendMessage(ctx, peerID, content, files)
	if !s.applied(res) {
		return models.Message{}, res
	}
	s.stores.Messages.Append(msg)
	s.router.Emit(realtime.EmitSendMessage, realtime.MessagePayload{
		Sender:   s.selfRef(),
		Receiver: realtime.UserRef{ID: peerID},
		Message:  msg,
	})
	return msg, res
}

func (s *Session) SendInvitation(ctx context.Context, receiverID string) api.Result {
	res := s.api.SendInvitation(ctx, receiverID)
	if !s.applied(res) {
		return res
	}
	s.stores.Contacts.AddInvitation(models.Invitation{
		SenderID:       s.UserID(),
		SenderUsername: s.User().Username,
		ReceiverID:     receiverID,
		Status:         models.InvitationPending,
	})
	s.router.Emit(realtime.EmitSendInvite, realtime.InvitationPayload{
		Sender:   s.selfRef(),
		Receiver: realtime.UserRef{ID: receiverID},
	})
	return res
}

// AcceptInvitation runs on the invited side. The inviter's profile is
// fetched to materialize the contact fully; a failed fetch keeps a
// placeholder rather than dropping the acceptance.
func (s *Session) AcceptInvitation(ctx context.Context, senderID string) api.Result {
	res := s.api.AcceptInvitation(ctx, senderID)
	if !s.applied(res) {
		return res
	}
	s.stores.Contacts.ResolveInvitation(senderID, s.UserID(), models.InvitationAccepted)

	if profile, pres := s.api.Profile(ctx, senderID); s.applied(pres) {
		s.stores.Contacts.AddContact(profile, true)
	} else {
		s.stores.Contacts.AddContact(models.User{ID: senderID}, false)
	}

	s.router.Emit(realtime.EmitAcceptInvite, realtime.InvitationPayload{
		Sender:   realtime.UserRef{ID: senderID},
		Receiver: s.selfRef(),
	})
	return res
}

func (s *Session) DeclineInvitation(ctx context.Context, senderID string) api.Result {
	res := s.api.DeclineInvitation(ctx, senderID)
	if !s.applied(res) {
		return res
	}
	s.stores.Contacts.ResolveInvitation(senderID, s.UserID(), models.InvitationDeclined)
	return res
}

func (s *Session) RemoveContact(ctx context.Context, peerID string) api.Result {
	res := s.api.RemoveContact(ctx, peerID)
	if !s.applied(res) {
		return res
	}
	s.stores.Contacts.RemoveContact(peerID)
	s.router.Emit(realtime.EmitRemoveContact, realtime.ContactRemovedPayload{
		SenderID:   s.UserID(),
		ReceiverID: peerID,
	})
	return res
}

// RefreshContacts rehydrates the contact set from the server.
func (s *Session) RefreshContacts(ctx context.Context) api.Result {
	users, res := s.api.Contacts(ctx)
	if !s.applied(res) {
		return res
	}
	for _, u := range users {
		s.stores.Contacts.AddContact(u, true)
	}
	invs, res := s.api.PendingInvitations(ctx)
	if !s.applied(res) {
		return res
	}
	for _, inv := range invs {
		s.stores.Contacts.AddInvitation(inv)
	}
	return res
}

func (s *Session) SendDemand(ctx context.Context, teacherID string) (models.TeachingDemand, api.Result) {
	demand, res := s.api.SendDemand(ctx, teacherID)
	if !s.applied(res) {
		return models.TeachingDemand{}, res
	}
	s.stores.Demands.Upsert(demand)
	s.router.Emit(realtime.EmitSendDemand, realtime.DemandPayload{Demand: demand})
	return demand, res
}

// AcceptDemand runs on the teacher's side. The local accept mirrors the
// server's exclusivity rule for that student's other demands.
func (s *Session) AcceptDemand(ctx context.Context, demandID string) api.Result {
	res := s.api.AcceptDemand(ctx, demandID)
	if !s.applied(res) {
		return res
	}
	s.stores.Demands.Accept(demandID)
	if d, ok := s.stores.Demands.Demand(demandID); ok {
		s.router.Emit(realtime.EmitAcceptDemand, realtime.DemandPayload{Demand: d})
	}
	return res
}

func (s *Session) CancelDemand(ctx context.Context, demandID string) api.Result {
	res := s.api.CancelDemand(ctx, demandID)
	if !s.applied(res) {
		return res
	}
	s.stores.Demands.Cancel(demandID)
	if d, ok := s.stores.Demands.Demand(demandID); ok {
		s.router.Emit(realtime.EmitCancelDemand, realtime.DemandPayload{Demand: d})
	}
	return res
}

func (s *Session) RefreshDemands(ctx context.Context) api.Result {
	demands, res := s.api.Demands(ctx)
	if !s.applied(res) {
		return res
	}
	for _, d := range demands {
		s.stores.Demands.Upsert(d)
	}
	return res
}

// SetCalendarWindow switches the displayed period and refetches the events
// inside it. Only events beginning inside the window become visible.
func (s *Session) SetCalendarWindow(ctx context.Context, w store.Window) api.Result {
	from, to := w.Bounds()
	events, res := s.api.EventsBetween(ctx, from, to)
	if !s.applied(res) {
		return res
	}
	s.stores.Calendar.SetWindow(w, events)
	return res
}

func (s *Session) CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, api.Result) {
	created, res := s.api.CreateEvent(ctx, ev)
	if !s.applied(res) {
		return models.CalendarEvent{}, res
	}
	s.stores.Calendar.Upsert(created, s.UserID())
	s.router.Emit(realtime.EmitEventCreated, realtime.EventPayload{Event: created})
	return created, res
}

func (s *Session) ModifyEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, api.Result) {
	updated, res := s.api.ModifyEvent(ctx, ev)
	if !s.applied(res) {
		return models.CalendarEvent{}, res
	}
	s.stores.Calendar.Upsert(updated, s.UserID())
	s.router.Emit(realtime.EmitModifyEvent, realtime.EventPayload{Event: updated})
	return updated, res
}

func (s *Session) DeleteEvent(ctx context.Context, eventID string) api.Result {
	ev, known := s.stores.Calendar.Event(eventID)
	res := s.api.DeleteEvent(ctx, eventID)
	if !s.applied(res) {
		return res
	}
	s.stores.Calendar.Remove(eventID)
	if known {
		s.router.Emit(realtime.EmitDeleteEvent, realtime.EventPayload{Event: ev})
	}
	return res
}

// AcceptEvent moves the caller from guests to attendees.
func (s *Session) AcceptEvent(ctx context.Context, eventID string) api.Result {
	res := s.api.AcceptEvent(ctx, eventID)
	if !s.applied(res) {
		return res
	}
	self := s.UserID()
	if ev, ok := s.stores.Calendar.Event(eventID); ok {
		ev.Guests = removeID(ev.Guests, self)
		ev.Attendees = appendID(ev.Attendees, self)
		s.stores.Calendar.Upsert(ev, self)
		s.router.Emit(realtime.EmitAcceptEvent, realtime.EventPayload{Event: ev})
	}
	return res
}

func (s *Session) DeclineEvent(ctx context.Context, eventID string) api.Result {
	res := s.api.DeclineEvent(ctx, eventID)
	if !s.applied(res) {
		return res
	}
	self := s.UserID()
	if ev, ok := s.stores.Calendar.Event(eventID); ok {
		ev.Guests = removeID(ev.Guests, self)
		ev.Attendees = removeID(ev.Attendees, self)
		s.stores.Calendar.Remove(eventID)
		s.router.Emit(realtime.EmitDeclineEvent, realtime.EventPayload{Event: ev})
	}
	return res
}

func (s *Session) CreateTask(ctx context.Context, task models.Task) (models.Task, api.Result) {
	created, res := s.api.CreateTask(ctx, task)
	if !s.applied(res) {
		return models.Task{}, res
	}
	s.stores.Tasks.Upsert(created)
	s.router.Emit(realtime.EmitCreateTask, realtime.TaskPayload{Task: created})
	return created, res
}

func (s *Session) CompleteTask(ctx context.Context, taskID string) api.Result {
	res := s.api.CompleteTask(ctx, taskID)
	if !s.applied(res) {
		return res
	}
	s.stores.Tasks.Complete(taskID, s.UserID())
	if t, ok := s.stores.Tasks.Task(taskID); ok {
		s.router.Emit(realtime.EmitCompleteTask, realtime.TaskPayload{Task: t})
	}
	return res
}

func (s *Session) ValidateTask(ctx context.Context, taskID string) api.Result {
	res := s.api.ValidateTask(ctx, taskID)
	if !s.applied(res) {
		return res
	}
	s.stores.Tasks.Validate(taskID, s.Role())
	if t, ok := s.stores.Tasks.Task(taskID); ok {
		s.router.Emit(realtime.EmitValidateTask, realtime.TaskPayload{Task: t})
	}
	return res
}

func (s *Session) RefreshTasks(ctx context.Context) api.Result {
	tasks, res := s.api.Tasks(ctx)
	if !s.applied(res) {
		return res
	}
	for _, t := range tasks {
		s.stores.Tasks.Upsert(t)
	}
	return res
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func appendID(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
