package notify

import (
	"testing"
	"time"

	"github.com/learnhome/client/internal/models"
)

func TestPublishOverwritesSameArea(t *testing.T) {
	p := NewPresenter()

	var changes []Notification
	p.Observe(func(_ Area, n Notification) { changes = append(changes, n) })

	a := MessageReceived{Sender: models.User{ID: "u2", Username: "alice"}, Preview: "first"}
	b := MessageReceived{Sender: models.User{ID: "u3", Username: "bob"}, Preview: "second"}
	p.Publish(a)
	p.Publish(b)

	cur, ok := p.Current(AreaMessages)
	if !ok {
		t.Fatal("area should hold a notification")
	}
	if got := cur.(MessageReceived); got.Preview != "second" {
		t.Errorf("slot holds %q, want the newer toast", got.Preview)
	}
	// No intermediate empty state: two changes, both non-nil.
	if len(changes) != 2 || changes[0] == nil || changes[1] == nil {
		t.Errorf("unexpected observer sequence: %v", changes)
	}
}

func TestAreasAreIndependent(t *testing.T) {
	p := NewPresenter()
	p.Publish(MessageReceived{Preview: "hi"})
	p.Publish(DemandReceived{Demand: models.TeachingDemand{ID: "d1"}})

	p.Dismiss(AreaMessages)
	if _, ok := p.Current(AreaMessages); ok {
		t.Error("messages area should be dismissed")
	}
	if _, ok := p.Current(AreaDemands); !ok {
		t.Error("demands area should be untouched")
	}
}

func TestDismissEmptyAreaNoop(t *testing.T) {
	p := NewPresenter()
	called := false
	p.Observe(func(Area, Notification) { called = true })
	p.Dismiss(AreaTasks)
	if called {
		t.Error("dismissing an empty slot should not notify observers")
	}
}

func TestTransientAutoDismiss(t *testing.T) {
	p := NewPresenter()
	p.SetToastTTL(20 * time.Millisecond)

	dismissed := make(chan Area, 1)
	p.Observe(func(area Area, n Notification) {
		if n == nil {
			dismissed <- area
		}
	})
	p.Publish(MessageReceived{Preview: "hi"})

	select {
	case area := <-dismissed:
		if area != AreaMessages {
			t.Errorf("dismissed %q, want messages", area)
		}
	case <-time.After(time.Second):
		t.Fatal("toast never auto-dismissed")
	}
	if _, ok := p.Current(AreaMessages); ok {
		t.Error("slot should be empty after auto-dismiss")
	}
}

func TestOverwriteRearmsTimer(t *testing.T) {
	p := NewPresenter()
	p.SetToastTTL(40 * time.Millisecond)

	p.Publish(MessageReceived{Preview: "first"})
	time.Sleep(25 * time.Millisecond)
	p.Publish(MessageReceived{Preview: "second"})
	time.Sleep(25 * time.Millisecond)

	// The first toast's timer has expired by now, but the overwrite rearmed
	// the slot: the second toast must still be visible.
	cur, ok := p.Current(AreaMessages)
	if !ok {
		t.Fatal("second toast should still be visible")
	}
	if got := cur.(MessageReceived); got.Preview != "second" {
		t.Errorf("slot holds %q, want second", got.Preview)
	}
}

func TestActionableNotificationStays(t *testing.T) {
	p := NewPresenter()
	p.SetToastTTL(10 * time.Millisecond)

	p.Publish(InvitationReceived{SenderID: "u2", SenderUsername: "alice"})
	time.Sleep(50 * time.Millisecond)

	if _, ok := p.Current(AreaUsers); !ok {
		t.Error("an actionable notification must not auto-dismiss")
	}
}

func TestResetSilent(t *testing.T) {
	p := NewPresenter()
	p.Publish(TaskChanged{Task: models.Task{ID: "t1"}})

	called := false
	p.Observe(func(Area, Notification) { called = true })
	p.Reset()

	if _, ok := p.Current(AreaTasks); ok {
		t.Error("reset should clear every slot")
	}
	if called {
		t.Error("reset must not invoke observers")
	}
}
