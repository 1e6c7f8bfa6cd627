package realtime

import "github.com/learnhome/client/internal/models"

// Inbound event names. The router registers exactly one handler per name.
const (
	EventReceiveMessage   = "receive_message"
	EventNotifyConnection = "notify_connection"
	EventReceiveInvite    = "receive_invitation"
	EventInviteAccepted   = "invitation_accepted"
	EventContactRemoved   = "contact_removed"
	EventReceiveDemand    = "receive_teaching_demand"
	EventDemandAccepted   = "teaching_demand_accepted"
	EventDemandCancelled  = "teaching_demand_cancelled"
	EventReceiveEvent     = "receive_event"
	EventParticipation    = "event_participation"
	EventEventModified    = "event_modified"
	EventEventDeleted     = "event_deleted"
	EventTaskCreated      = "task_created"
	EventTaskCompleted    = "task_completed"
	EventTaskValidated    = "task_validated"
)

// Outbound event names, emitted after the matching REST mutation succeeded.
const (
	EmitSendMessage   = "send_message"
	EmitSendInvite    = "send_invitation"
	EmitAcceptInvite  = "accept_invitation"
	EmitRemoveContact = "remove_contact"
	EmitSendDemand    = "send_teaching_demand"
	EmitAcceptDemand  = "accept_teaching_demand"
	EmitCancelDemand  = "cancel_teaching_demand"
	EmitEventCreated  = "event_created"
	EmitModifyEvent   = "modify_event"
	EmitDeleteEvent   = "delete_event"
	EmitAcceptEvent   = "accept_event"
	EmitDeclineEvent  = "decline_event"
	EmitCreateTask    = "create_task"
	EmitCompleteTask  = "complete_task"
	EmitValidateTask  = "validate_task"
)

// UserRef is the identity stub events carry for filtering.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type MessagePayload struct {
	Sender   UserRef        `json:"sender"`
	Receiver UserRef        `json:"receiver"`
	Message  models.Message `json:"message"`
}

type PresencePayload struct {
	UserID    string `json:"user_id"`
	Connected bool   `json:"connected"`
}

type InvitationPayload struct {
	Sender   UserRef `json:"sender"`
	Receiver UserRef `json:"receiver"`
}

type ContactRemovedPayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

type DemandPayload struct {
	Demand models.TeachingDemand `json:"demand"`
}

type EventPayload struct {
	Event models.CalendarEvent `json:"event"`
}

type TaskPayload struct {
	Task models.Task `json:"task"`
}
