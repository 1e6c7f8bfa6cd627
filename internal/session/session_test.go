package session

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/devserver"
	devstore "github.com/learnhome/client/internal/devserver/store"
	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/store"
)

// The tests here run the whole loop: two real sessions against one devserver,
// REST mutations on one side showing up in the other side's stores through
// the websocket relay.

type env struct {
	ts    *httptest.Server
	wsURL string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := devstore.New(":memory:")
	if err != nil {
		t.Fatalf("devserver store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := devserver.New(st, devserver.Options{JWTSecret: "test-secret", JWTIssuer: "learnhome-test"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &env{ts: ts, wsURL: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"}
}

type harness struct {
	sess      *Session
	stores    *store.Stores
	presenter *notify.Presenter
	user      models.User
	client    *api.Client
	tokenPath string
}

// newHarness signs the user up and logs a fresh session in.
func (e *env) newHarness(t *testing.T, username, role string) *harness {
	t.Helper()
	ctx := context.Background()

	signupClient := api.NewClient(e.ts.URL)
	user, res := signupClient.Signup(ctx, api.SignupRequest{Username: username, Password: "secret", Role: role})
	if !res.Valid {
		t.Fatalf("signup %s: %+v", username, res)
	}

	h := &harness{
		stores:    store.New(),
		presenter: notify.NewPresenter(),
		user:      user,
		client:    api.NewClient(e.ts.URL),
		tokenPath: filepath.Join(t.TempDir(), "token"),
	}
	h.sess = New(h.client, h.stores, h.presenter, NewTokenStore(h.tokenPath), e.wsURL)
	if res := h.sess.Login(ctx, username, "secret"); !res.Valid {
		t.Fatalf("login %s: %+v", username, res)
	}
	t.Cleanup(h.sess.Logout)
	return h
}

// waitFor polls until cond holds; realtime propagation is asynchronous.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitConnected blocks until the peer's socket is registered on the hub, so
// a following emit cannot race the peer's registration.
func (h *harness) waitConnected(t *testing.T, peerID string) {
	t.Helper()
	waitFor(t, "peer socket", func() bool {
		connected, res := h.client.ConnectionStatus(context.Background(), peerID)
		return res.Valid && connected
	})
}

func TestLoginRestoreLogout(t *testing.T) {
	e := newEnv(t)
	h := e.newHarness(t, "alice", models.RoleStudent)

	if !h.sess.LoggedIn() || h.sess.UserID() != h.user.ID {
		t.Fatalf("session identity: %q", h.sess.UserID())
	}
	if h.sess.Connection() == nil || !h.sess.Connection().Alive() {
		t.Fatal("login should open the socket")
	}

	// A fresh process with the same token file resumes the session.
	restored := New(api.NewClient(e.ts.URL), store.New(), notify.NewPresenter(), NewTokenStore(h.tokenPath), e.wsURL)
	ok, err := restored.Restore(context.Background())
	if err != nil || !ok {
		t.Fatalf("restore: %v %v", ok, err)
	}
	if restored.UserID() != h.user.ID || restored.Role() != models.RoleStudent {
		t.Errorf("restored identity = %q/%q", restored.UserID(), restored.Role())
	}
	restored.Logout()

	h.sess.Logout()
	if h.sess.LoggedIn() {
		t.Error("logout should clear the identity")
	}
	if _, ok := NewTokenStore(h.tokenPath).Load(); ok {
		t.Error("logout should remove the durable token")
	}

	// No token, no session.
	cold := New(api.NewClient(e.ts.URL), store.New(), notify.NewPresenter(), NewTokenStore(h.tokenPath), e.wsURL)
	if ok, err := cold.Restore(context.Background()); ok || err != nil {
		t.Errorf("restore without token: %v %v", ok, err)
	}
}

func TestMessageArrivesWithToastWhenThreadClosed(t *testing.T) {
	e := newEnv(t)
	alice := e.newHarness(t, "alice", models.RoleStudent)
	bob := e.newHarness(t, "bob", models.RoleTeacher)
	alice.waitConnected(t, bob.user.ID)

	sent, res := alice.sess.SendMessage(context.Background(), bob.user.ID, "hello bob", nil)
	if !res.Valid {
		t.Fatalf("send: %+v", res)
	}

	key := store.Thread(alice.user.ID, bob.user.ID)
	waitFor(t, "message at bob", func() bool {
		return len(bob.stores.Messages.Messages(key)) == 1
	})

	msgs := bob.stores.Messages.Messages(key)
	if msgs[0].ID != sent.ID || msgs[0].Read {
		t.Errorf("message should arrive unread: %+v", msgs[0])
	}
	waitFor(t, "toast at bob", func() bool {
		n, ok := bob.presenter.Current(notify.AreaMessages)
		return ok && n.(notify.MessageReceived).Preview == "hello bob"
	})
	waitFor(t, "unread refresh", func() bool {
		return bob.stores.Messages.UnreadTotal() == 1
	})

	// The sender keeps their own copy without any notification.
	if len(alice.stores.Messages.Messages(key)) != 1 {
		t.Error("sender should hold the message locally")
	}
	if _, ok := alice.presenter.Current(notify.AreaMessages); ok {
		t.Error("the sender must not be toasted")
	}
}

func TestMessageIntoOpenThreadStaysSilent(t *testing.T) {
	e := newEnv(t)
	alice := e.newHarness(t, "alice", models.RoleStudent)
	bob := e.newHarness(t, "bob", models.RoleTeacher)
	alice.waitConnected(t, bob.user.ID)

	if res := bob.sess.OpenConversation(context.Background(), alice.user.ID); !res.Valid {
		t.Fatalf("open conversation: %+v", res)
	}

	if _, res := alice.sess.SendMessage(context.Background(), bob.user.ID, "you there?", nil); !res.Valid {
		t.Fatalf("send: %+v", res)
	}

	key := store.Thread(alice.user.ID, bob.user.ID)
	waitFor(t, "message at bob", func() bool {
		return len(bob.stores.Messages.Messages(key)) == 1
	})
	if msgs := bob.stores.Messages.Messages(key); !msgs[0].Read {
		t.Error("message into the open thread should arrive read")
	}
	if _, ok := bob.presenter.Current(notify.AreaMessages); ok {
		t.Error("no toast while the thread is open")
	}
}

func TestInvitationLifecycle(t *testing.T) {
	e := newEnv(t)
	alice := e.newHarness(t, "alice", models.RoleStudent)
	bob := e.newHarness(t, "bob", models.RoleTeacher)
	alice.waitConnected(t, bob.user.ID)
	bob.waitConnected(t, alice.user.ID)

	ctx := context.Background()
	if res := alice.sess.SendInvitation(ctx, bob.user.ID); !res.Valid {
		t.Fatalf("invite: %+v", res)
	}
	waitFor(t, "invitation at bob", func() bool {
		return len(bob.stores.Contacts.PendingInvitations(bob.user.ID)) == 1
	})
	if _, ok := bob.presenter.Current(notify.AreaUsers); !ok {
		t.Error("invitation should notify the receiver")
	}

	if res := bob.sess.AcceptInvitation(ctx, alice.user.ID); !res.Valid {
		t.Fatalf("accept: %+v", res)
	}
	// Both sides converge on a hydrated contact.
	waitFor(t, "contact at alice", func() bool {
		c, ok := alice.stores.Contacts.Contact(bob.user.ID)
		return ok && c.Hydrated
	})
	if c, ok := bob.stores.Contacts.Contact(alice.user.ID); !ok || !c.Hydrated {
		t.Error("accepting side should hold the contact too")
	}

	if res := alice.sess.RemoveContact(ctx, bob.user.ID); !res.Valid {
		t.Fatalf("remove: %+v", res)
	}
	waitFor(t, "removal at bob", func() bool {
		_, ok := bob.stores.Contacts.Contact(alice.user.ID)
		return !ok
	})
	if _, ok := alice.stores.Contacts.Contact(bob.user.ID); ok {
		t.Error("remover should drop the contact immediately")
	}
}

func TestDemandLifecycle(t *testing.T) {
	e := newEnv(t)
	student := e.newHarness(t, "student", models.RoleStudent)
	teacher := e.newHarness(t, "teacher", models.RoleTeacher)
	student.waitConnected(t, teacher.user.ID)
	teacher.waitConnected(t, student.user.ID)

	ctx := context.Background()
	demand, res := student.sess.SendDemand(ctx, teacher.user.ID)
	if !res.Valid {
		t.Fatalf("send demand: %+v", res)
	}

	waitFor(t, "demand at teacher", func() bool {
		_, ok := teacher.stores.Demands.Demand(demand.ID)
		return ok
	})
	if n, ok := teacher.presenter.Current(notify.AreaDemands); !ok {
		t.Error("teacher should be notified of the demand")
	} else if n.(notify.DemandReceived).Demand.SenderID != student.user.ID {
		t.Errorf("notification payload: %+v", n)
	}

	if res := teacher.sess.AcceptDemand(ctx, demand.ID); !res.Valid {
		t.Fatalf("accept demand: %+v", res)
	}
	waitFor(t, "acceptance at student", func() bool {
		d, ok := student.stores.Demands.Demand(demand.ID)
		return ok && d.Accepted
	})

	// Acceptance made them contacts server-side.
	if res := student.sess.RefreshContacts(ctx); !res.Valid {
		t.Fatalf("refresh contacts: %+v", res)
	}
	if _, ok := student.stores.Contacts.Contact(teacher.user.ID); !ok {
		t.Error("tutoring should link the pair as contacts")
	}
}

func TestTaskFlowAcrossSessions(t *testing.T) {
	e := newEnv(t)
	student := e.newHarness(t, "student", models.RoleStudent)
	teacher := e.newHarness(t, "teacher", models.RoleTeacher)
	student.waitConnected(t, teacher.user.ID)
	teacher.waitConnected(t, student.user.ID)

	ctx := context.Background()
	// Link them so the teacher supervises the student.
	if res := student.sess.SendInvitation(ctx, teacher.user.ID); !res.Valid {
		t.Fatalf("invite: %+v", res)
	}
	waitFor(t, "invitation at teacher", func() bool {
		return len(teacher.stores.Contacts.PendingInvitations(teacher.user.ID)) == 1
	})
	if res := teacher.sess.AcceptInvitation(ctx, student.user.ID); !res.Valid {
		t.Fatalf("accept invite: %+v", res)
	}

	task, res := teacher.sess.CreateTask(ctx, models.Task{Title: "read chapter 2", PerformerID: student.user.ID})
	if !res.Valid {
		t.Fatalf("create task: %+v", res)
	}
	waitFor(t, "task at student", func() bool {
		_, ok := student.stores.Tasks.Task(task.ID)
		return ok
	})

	if res := student.sess.CompleteTask(ctx, task.ID); !res.Valid {
		t.Fatalf("complete: %+v", res)
	}
	waitFor(t, "completion at teacher", func() bool {
		tk, ok := teacher.stores.Tasks.Task(task.ID)
		return ok && tk.Done
	})

	if res := teacher.sess.ValidateTask(ctx, task.ID); !res.Valid {
		t.Fatalf("validate: %+v", res)
	}
	waitFor(t, "validation at student", func() bool {
		tk, ok := student.stores.Tasks.Task(task.ID)
		return ok && tk.Validated
	})
}

func TestCalendarFlowAcrossSessions(t *testing.T) {
	e := newEnv(t)
	teacher := e.newHarness(t, "teacher", models.RoleTeacher)
	student := e.newHarness(t, "student", models.RoleStudent)
	teacher.waitConnected(t, student.user.ID)

	ctx := context.Background()
	anchor := time.Date(2030, time.September, 15, 0, 0, 0, 0, time.UTC)
	window := store.Window{Period: store.PeriodMonth, Anchor: anchor}
	for _, h := range []*harness{student, teacher} {
		if res := h.sess.SetCalendarWindow(ctx, window); !res.Valid {
			t.Fatalf("set window: %+v", res)
		}
	}

	begin := anchor.Add(10 * time.Hour)
	created, res := teacher.sess.CreateEvent(ctx, models.CalendarEvent{
		Title: "lesson", Beginning: begin, End: begin.Add(time.Hour),
		Guests: []string{student.user.ID},
	})
	if !res.Valid {
		t.Fatalf("create event: %+v", res)
	}

	waitFor(t, "event at student", func() bool {
		_, ok := student.stores.Calendar.Event(created.ID)
		return ok
	})

	if res := teacher.sess.DeleteEvent(ctx, created.ID); !res.Valid {
		t.Fatalf("delete event: %+v", res)
	}
	waitFor(t, "deletion at student", func() bool {
		_, ok := student.stores.Calendar.Event(created.ID)
		return !ok
	})
	if n, ok := student.presenter.Current(notify.AreaCalendar); ok {
		if !n.(notify.CalendarChanged).Removed {
			t.Errorf("latest calendar notification should be the removal: %+v", n)
		}
	}
}
