package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/store"
)

type fakeSession struct {
	id, role  string
	epoch     uint64
	loggedOut atomic.Bool
}

func (s *fakeSession) UserID() string { return s.id }
func (s *fakeSession) Role() string   { return s.role }
func (s *fakeSession) Epoch() uint64  { return atomic.LoadUint64(&s.epoch) }
func (s *fakeSession) ForceLogout(string) {
	s.loggedOut.Store(true)
}

type fixture struct {
	router    *Router
	stores    *store.Stores
	presenter *notify.Presenter
	sess      *fakeSession
	calls     *atomic.Int64
}

// newFixture wires a router against a stub REST server. The handler serves
// the refresh endpoints the reconcilers hit after a message arrives.
func newFixture(t *testing.T, status int) *fixture {
	t.Helper()
	calls := &atomic.Int64{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch {
		case r.URL.Path == "/api/messages/unread":
			json.NewEncoder(w).Encode(map[string]int{"total": 4})
		case strings.HasPrefix(r.URL.Path, "/api/conversations/"):
			json.NewEncoder(w).Encode(api.Conversation{Unread: 2})
		case strings.HasPrefix(r.URL.Path, "/api/users/"):
			json.NewEncoder(w).Encode(models.User{
				ID:       strings.TrimPrefix(r.URL.Path, "/api/users/"),
				Username: "peer",
				Email:    "peer@example.com",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	sess := &fakeSession{id: "u1", role: models.RoleStudent}
	stores := store.New()
	presenter := notify.NewPresenter()
	router := NewRouter(sess, stores, presenter, api.NewClient(ts.URL))
	return &fixture{router: router, stores: stores, presenter: presenter, sess: sess, calls: calls}
}

func TestReceiveMessageForOtherRecipientIgnored(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.router.receiveMessage(MessagePayload{
		Sender:   UserRef{ID: "u2"},
		Receiver: UserRef{ID: "u3"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u3", Content: "hi"},
	})

	if got := len(f.stores.Messages.Messages(store.Thread("u1", "u2"))); got != 0 {
		t.Errorf("stored %d messages for a foreign recipient", got)
	}
	if _, ok := f.presenter.Current(notify.AreaMessages); ok {
		t.Error("no toast for a foreign recipient")
	}
	if f.calls.Load() != 0 {
		t.Error("no refresh round-trips for a foreign recipient")
	}
}

func TestReceiveMessageActiveThread(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Messages.SetActiveThread("u1", "u2")

	f.router.receiveMessage(MessagePayload{
		Sender:   UserRef{ID: "u2", Username: "alice"},
		Receiver: UserRef{ID: "u1"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"},
	})

	msgs := f.stores.Messages.Messages(store.Thread("u1", "u2"))
	if len(msgs) != 1 || !msgs[0].Read {
		t.Error("message in the open thread should be stored read")
	}
	if _, ok := f.presenter.Current(notify.AreaMessages); ok {
		t.Error("no toast while the thread is open")
	}
	if f.stores.Messages.UnreadTotal() != 4 {
		t.Errorf("unread total = %d, want the server's 4", f.stores.Messages.UnreadTotal())
	}
}

func TestReceiveMessageInactiveThreadToast(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Contacts.AddContact(models.User{ID: "u2", Username: "alice", Email: "a@x"}, true)

	f.router.receiveMessage(MessagePayload{
		Sender:   UserRef{ID: "u2", Username: "alice"},
		Receiver: UserRef{ID: "u1"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hello there"},
	})

	n, ok := f.presenter.Current(notify.AreaMessages)
	if !ok {
		t.Fatal("expected a toast")
	}
	toast := n.(notify.MessageReceived)
	if toast.Preview != "hello there" || toast.Sender.Email != "a@x" {
		t.Errorf("toast should carry the hydrated sender profile: %+v", toast)
	}
	if f.stores.Messages.ThreadUnread(store.Thread("u1", "u2")) != 2 {
		t.Error("thread unread should come from the server refresh")
	}
}

func TestReceiveMessageDuplicateDelivery(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	msg := MessagePayload{
		Sender:   UserRef{ID: "u2", Username: "alice"},
		Receiver: UserRef{ID: "u1"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"},
	}
	f.router.receiveMessage(msg)
	f.router.receiveMessage(msg)

	if got := len(f.stores.Messages.Messages(store.Thread("u1", "u2"))); got != 1 {
		t.Errorf("duplicate delivery stored %d copies", got)
	}
}

func TestReceiveMessageUnauthorizedRefreshForcesLogout(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)

	f.router.receiveMessage(MessagePayload{
		Sender:   UserRef{ID: "u2"},
		Receiver: UserRef{ID: "u1"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"},
	})

	if !f.sess.loggedOut.Load() {
		t.Error("an unauthorized refresh must tear down the session")
	}
}

func TestReceiveMessageTransientRefreshKeepsCounter(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)
	f.stores.Messages.SetUnreadTotal(7)

	f.router.receiveMessage(MessagePayload{
		Sender:   UserRef{ID: "u2"},
		Receiver: UserRef{ID: "u1"},
		Message:  models.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"},
	})

	if f.sess.loggedOut.Load() {
		t.Error("a transient failure must not force a logout")
	}
	if f.stores.Messages.UnreadTotal() != 7 {
		t.Error("a failed refresh should keep the previous counter")
	}
}

func TestInvitationAcceptedHydratesContact(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Contacts.AddInvitation(models.Invitation{SenderID: "u1", ReceiverID: "u2"})

	f.router.invitationAccepted(InvitationPayload{
		Sender:   UserRef{ID: "u1"},
		Receiver: UserRef{ID: "u2", Username: "peer"},
	})

	c, ok := f.stores.Contacts.Contact("u2")
	if !ok {
		t.Fatal("acceptance should create the contact")
	}
	if !c.Hydrated || c.User.Email != "peer@example.com" {
		t.Errorf("contact should be upgraded from the profile fetch: %+v", c)
	}
}

func TestInvitationAcceptedProfileFetchFails(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)

	f.router.invitationAccepted(InvitationPayload{
		Sender:   UserRef{ID: "u1"},
		Receiver: UserRef{ID: "u2", Username: "peer"},
	})

	c, ok := f.stores.Contacts.Contact("u2")
	if !ok {
		t.Fatal("a failed profile fetch must not lose the acceptance")
	}
	if c.Hydrated || c.User.Username != "peer" {
		t.Errorf("contact should stay a placeholder: %+v", c)
	}
}

func TestContactRemovedDuplicateDelivery(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Contacts.AddContact(models.User{ID: "u2"}, true)

	payload := ContactRemovedPayload{SenderID: "u2", ReceiverID: "u1"}
	f.router.contactRemoved(payload)
	if _, ok := f.presenter.Current(notify.AreaUsers); !ok {
		t.Fatal("first removal should notify")
	}
	f.presenter.Dismiss(notify.AreaUsers)

	f.router.contactRemoved(payload)
	if _, ok := f.presenter.Current(notify.AreaUsers); ok {
		t.Error("a repeated removal must stay silent")
	}
}

func TestDemandAcceptedCancelsSiblings(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Demands.Upsert(models.TeachingDemand{ID: "d1", SenderID: "u1", ReceiverID: "t1"})
	f.stores.Demands.Upsert(models.TeachingDemand{ID: "d2", SenderID: "u1", ReceiverID: "t2"})

	f.router.demandAccepted(DemandPayload{
		Demand: models.TeachingDemand{ID: "d1", SenderID: "u1", ReceiverID: "t1", Accepted: true},
	})

	d1, _ := f.stores.Demands.Demand("d1")
	if !d1.Accepted {
		t.Error("accepted demand should be marked accepted")
	}
	d2, _ := f.stores.Demands.Demand("d2")
	if !d2.Cancelled {
		t.Error("the student's other pending demand should be cancelled")
	}
	if _, ok := f.presenter.Current(notify.AreaDemands); !ok {
		t.Error("acceptance should notify")
	}
}

func TestDemandAcceptedDeliveryGap(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	// The demand was never fetched locally; the event alone must suffice.
	f.router.demandAccepted(DemandPayload{
		Demand: models.TeachingDemand{ID: "d1", SenderID: "u1", ReceiverID: "t1", Accepted: true},
	})

	d, ok := f.stores.Demands.Demand("d1")
	if !ok || !d.Accepted {
		t.Errorf("demand should be materialized and accepted: %+v", d)
	}
}

func TestEventModifiedMovesOutOfWindow(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	anchor := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	f.stores.Calendar.SetWindow(store.Window{Period: store.PeriodMonth, Anchor: anchor}, nil)

	ev := models.CalendarEvent{
		ID: "e1", Title: "lesson", OrganizerID: "t1", Guests: []string{"u1"},
		Beginning: anchor.Add(time.Hour), End: anchor.Add(2 * time.Hour),
	}
	f.router.receiveEvent(EventPayload{Event: ev})
	if _, ok := f.stores.Calendar.Event("e1"); !ok {
		t.Fatal("event inside the window should be visible")
	}

	ev.Beginning = anchor.AddDate(0, 2, 0)
	ev.End = ev.Beginning.Add(time.Hour)
	f.router.eventModified(EventPayload{Event: ev})

	if _, ok := f.stores.Calendar.Event("e1"); ok {
		t.Error("event moved outside the window should disappear from view")
	}
	n, ok := f.presenter.Current(notify.AreaCalendar)
	if !ok || !n.(notify.CalendarChanged).Removed {
		t.Error("removal should be announced")
	}
}

func TestEventModifiedDroppedFromGuestList(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	anchor := time.Now().UTC()
	f.stores.Calendar.SetWindow(store.Window{Period: store.PeriodMonth, Anchor: anchor}, nil)

	ev := models.CalendarEvent{
		ID: "e1", OrganizerID: "t1", Guests: []string{"u1"},
		Beginning: anchor, End: anchor.Add(time.Hour),
	}
	f.router.receiveEvent(EventPayload{Event: ev})

	ev.Guests = []string{"u9"}
	f.router.eventModified(EventPayload{Event: ev})

	if _, ok := f.stores.Calendar.Event("e1"); ok {
		t.Error("event should vanish once self is off the guest list")
	}
}

func TestTaskValidatedNeverRegresses(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Tasks.Upsert(models.Task{ID: "t1", PerformerID: "u1", Done: true, Validated: true})

	// Stale completion event arriving after validation.
	f.router.taskUpdated(TaskPayload{Task: models.Task{ID: "t1", PerformerID: "u1", Done: true}})

	task, _ := f.stores.Tasks.Task("t1")
	if !task.Validated {
		t.Error("a stale event must not regress a validated task")
	}
}

func TestTaskIrrelevantToStudent(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.router.taskCreated(TaskPayload{Task: models.Task{ID: "t1", PerformerID: "u9"}})
	if _, ok := f.stores.Tasks.Task("t1"); ok {
		t.Error("a student should not track another performer's task")
	}

	// A teacher tracks every contact student's task.
	f.sess.role = models.RoleTeacher
	f.router.taskCreated(TaskPayload{Task: models.Task{ID: "t2", PerformerID: "u9"}})
	if _, ok := f.stores.Tasks.Task("t2"); !ok {
		t.Error("a teacher should track student tasks")
	}
}

func TestNotifyConnection(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.stores.Contacts.AddContact(models.User{ID: "u2"}, true)

	f.router.notifyConnection(PresencePayload{UserID: "u2", Connected: true})
	c, _ := f.stores.Contacts.Contact("u2")
	if !c.Connected {
		t.Error("presence should flip to connected")
	}

	// Own presence echoes are ignored.
	f.router.notifyConnection(PresencePayload{UserID: "u1", Connected: false})
}
