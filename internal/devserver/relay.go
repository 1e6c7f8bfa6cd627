package devserver

import (
	"encoding/json"
	"log"

	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/realtime"
)

// route maps one outbound client event onto the inbound events its
// recipients should see. Senders never get their own event back; their
// local state was already mutated by the REST call that preceded the emit.
func (h *Hub) route(senderID string, frame realtime.Frame) {
	switch frame.Event {
	case realtime.EmitSendMessage:
		var p realtime.MessagePayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		h.Deliver(p.Receiver.ID, realtime.EventReceiveMessage, p)

	case realtime.EmitSendInvite:
		var p realtime.InvitationPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		h.Deliver(p.Receiver.ID, realtime.EventReceiveInvite, p)

	case realtime.EmitAcceptInvite:
		var p realtime.InvitationPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		// The original inviter learns their invitation was accepted.
		h.Deliver(p.Sender.ID, realtime.EventInviteAccepted, p)

	case realtime.EmitRemoveContact:
		var p realtime.ContactRemovedPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		h.Deliver(p.ReceiverID, realtime.EventContactRemoved, p)

	case realtime.EmitSendDemand:
		var p realtime.DemandPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		h.Deliver(p.Demand.ReceiverID, realtime.EventReceiveDemand, p)

	case realtime.EmitAcceptDemand:
		var p realtime.DemandPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		h.Deliver(p.Demand.SenderID, realtime.EventDemandAccepted, p)
		// Acceptance cancelled the student's other pending demands; tell
		// the teachers holding them.
		for _, d := range h.cancelledSiblings(p.Demand.SenderID, p.Demand.ID) {
			h.Deliver(d.ReceiverID, realtime.EventDemandCancelled, realtime.DemandPayload{Demand: d})
		}

	case realtime.EmitCancelDemand:
		var p realtime.DemandPayload
		if !decodeFrame(frame.Data, &p) {
			return
		}
		peer := p.Demand.ReceiverID
		if senderID == peer {
			peer = p.Demand.SenderID
		}
		h.Deliver(peer, realtime.EventDemandCancelled, p)

	case realtime.EmitEventCreated:
		h.relayCalendar(senderID, frame.Data, realtime.EventReceiveEvent)
	case realtime.EmitModifyEvent:
		h.relayCalendar(senderID, frame.Data, realtime.EventEventModified)
	case realtime.EmitDeleteEvent:
		h.relayCalendar(senderID, frame.Data, realtime.EventEventDeleted)
	case realtime.EmitAcceptEvent, realtime.EmitDeclineEvent:
		h.relayCalendar(senderID, frame.Data, realtime.EventParticipation)

	case realtime.EmitCreateTask:
		h.relayTask(senderID, frame.Data, realtime.EventTaskCreated)
	case realtime.EmitCompleteTask:
		h.relayTask(senderID, frame.Data, realtime.EventTaskCompleted)
	case realtime.EmitValidateTask:
		h.relayTask(senderID, frame.Data, realtime.EventTaskValidated)

	default:
		log.Printf("hub: unknown client event %q from %s", frame.Event, senderID)
	}
}

// cancelledSiblings lists the student's other demands that ended up
// cancelled without being accepted.
func (h *Hub) cancelledSiblings(studentID, acceptedID string) []models.TeachingDemand {
	demands, err := h.store.DemandsFor(studentID)
	if err != nil {
		log.Printf("hub: demand lookup: %v", err)
		return nil
	}
	var out []models.TeachingDemand
	for _, d := range demands {
		if d.ID != acceptedID && d.Cancelled && !d.Accepted {
			out = append(out, d)
		}
	}
	return out
}

// relayCalendar fans a calendar event out to everyone who can see it,
// except the originator.
func (h *Hub) relayCalendar(senderID string, raw json.RawMessage, inbound string) {
	var p realtime.EventPayload
	if !decodeFrame(raw, &p) {
		return
	}
	seen := map[string]bool{senderID: true}
	recipients := append([]string{p.Event.OrganizerID}, p.Event.Guests...)
	recipients = append(recipients, p.Event.Attendees...)
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		h.Deliver(id, inbound, p)
	}
}

// relayTask fans a task event out to the performer and the teachers
// supervising them.
func (h *Hub) relayTask(senderID string, raw json.RawMessage, inbound string) {
	var p realtime.TaskPayload
	if !decodeFrame(raw, &p) {
		return
	}
	seen := map[string]bool{senderID: true}
	recipients := []string{p.Task.PerformerID}
	teachers, err := h.store.TeacherContactsOf(p.Task.PerformerID)
	if err != nil {
		log.Printf("hub: teacher lookup: %v", err)
	}
	recipients = append(recipients, teachers...)
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		h.Deliver(id, inbound, p)
	}
}

func decodeFrame(raw json.RawMessage, out interface{}) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("hub: bad payload: %v", err)
		return false
	}
	return true
}
