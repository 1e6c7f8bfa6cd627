package models

import "time"

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Photo     string `json:"photo"`
	Role      string `json:"role"`
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Files      []string  `json:"files,omitempty"`
	SentAt     time.Time `json:"sent_at"`
	Read       bool      `json:"read"`
}

// Invitation status values
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation is a directed contact request. On acceptance both users end up
// with a symmetric contact edge.
type Invitation struct {
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	ReceiverID     string `json:"receiver_id"`
	Status         string `json:"status"`
}

// Contact is a materialized contact edge as seen by one user. Hydrated is
// false until the peer's full profile has been fetched; until then only the
// id and username carried by the acceptance event are reliable.
type Contact struct {
	User      User `json:"user"`
	Connected bool `json:"connected"`
	Hydrated  bool `json:"hydrated"`
}

// TeachingDemand is a student's request to be tutored by a teacher. A
// student has at most one active (non-cancelled) demand at a time.
type TeachingDemand struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Sent       time.Time `json:"sent"`
	Accepted   bool      `json:"accepted"`
	Cancelled  bool      `json:"cancelled"`
}

// CalendarEvent guests are invited-not-yet-responded; attendees are guests
// who accepted. Invariant: Beginning <= End.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Beginning   time.Time `json:"beginning"`
	End         time.Time `json:"end"`
	OrganizerID string    `json:"organizer_id"`
	Guests      []string  `json:"guests"`
	Attendees   []string  `json:"attendees"`
}

// VisibleTo reports whether a user should see the event at all.
func (e CalendarEvent) VisibleTo(userID string) bool {
	if e.OrganizerID == userID {
		return true
	}
	for _, id := range e.Guests {
		if id == userID {
			return true
		}
	}
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// Task moves through todo -> done -> validated. Only the performer may
// complete it and only a supervising teacher may validate it.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PerformerID string `json:"performer_id"`
	Done        bool   `json:"done"`
	Validated   bool   `json:"validated"`
}
