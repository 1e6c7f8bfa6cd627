package notify

import (
	"sync"
	"time"

	"github.com/learnhome/client/internal/models"
)

// Area is a notification domain. Each area holds at most one visible
// notification at a time; a newer one overwrites the older without an
// intermediate empty state.
type Area string

const (
	AreaMessages Area = "messages"
	AreaUsers    Area = "users"
	AreaDemands  Area = "demands"
	AreaCalendar Area = "calendar"
	AreaTasks    Area = "tasks"
)

// Notification is a closed set of payload variants, one per kind. Each
// variant carries exactly the fields its kind needs.
type Notification interface {
	Area() Area
	// Transient notifications auto-dismiss after ToastDuration; actionable
	// ones (invitations, demands) stay until the user responds.
	Transient() bool
}

// MessageReceived is the toast raised when a message arrives for a thread
// that is not currently open.
type MessageReceived struct {
	Sender  models.User
	Preview string
}

func (MessageReceived) Area() Area      { return AreaMessages }
func (MessageReceived) Transient() bool { return true }

type InvitationReceived struct {
	SenderID       string
	SenderUsername string
}

func (InvitationReceived) Area() Area      { return AreaUsers }
func (InvitationReceived) Transient() bool { return false }

type InvitationAccepted struct {
	Contact models.Contact
}

func (InvitationAccepted) Area() Area      { return AreaUsers }
func (InvitationAccepted) Transient() bool { return true }

type ContactRemoved struct {
	PeerID string
}

func (ContactRemoved) Area() Area      { return AreaUsers }
func (ContactRemoved) Transient() bool { return true }

type DemandReceived struct {
	Demand models.TeachingDemand
}

func (DemandReceived) Area() Area      { return AreaDemands }
func (DemandReceived) Transient() bool { return false }

type DemandAccepted struct {
	Demand models.TeachingDemand
}

func (DemandAccepted) Area() Area      { return AreaDemands }
func (DemandAccepted) Transient() bool { return true }

type DemandCancelled struct {
	DemandID string
}

func (DemandCancelled) Area() Area      { return AreaDemands }
func (DemandCancelled) Transient() bool { return true }

type CalendarChanged struct {
	Event   models.CalendarEvent
	Removed bool
}

func (CalendarChanged) Area() Area      { return AreaCalendar }
func (CalendarChanged) Transient() bool { return true }

type TaskChanged struct {
	Task models.Task
}

func (TaskChanged) Area() Area      { return AreaTasks }
func (TaskChanged) Transient() bool { return true }

// ToastDuration is how long a transient notification stays visible.
const ToastDuration = 5 * time.Second

// Presenter keeps the single visible slot per area and notifies observers
// on every change. Observers run on the caller's goroutine and must be fast.
type Presenter struct {
	mu        sync.Mutex
	slots     map[Area]Notification
	seq       map[Area]uint64
	timers    map[Area]*time.Timer
	observers []func(Area, Notification)
	toastTTL  time.Duration
}

func NewPresenter() *Presenter {
	return &Presenter{
		slots:    make(map[Area]Notification),
		seq:      make(map[Area]uint64),
		timers:   make(map[Area]*time.Timer),
		toastTTL: ToastDuration,
	}
}

// Observe registers a callback invoked with the area and its new content
// (nil on dismissal). Meant to be called during setup, before events flow.
func (p *Presenter) Observe(fn func(Area, Notification)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Publish places a notification in its area's slot, replacing whatever was
// there. Transient notifications arm an auto-dismiss timer; publishing
// rearms it so the newest payload gets the full duration.
func (p *Presenter) Publish(n Notification) {
	p.mu.Lock()
	area := n.Area()
	p.slots[area] = n
	p.seq[area]++
	seq := p.seq[area]
	if t := p.timers[area]; t != nil {
		t.Stop()
		delete(p.timers, area)
	}
	if n.Transient() {
		p.timers[area] = time.AfterFunc(p.toastTTL, func() { p.dismissIf(area, seq) })
	}
	observers := append([](func(Area, Notification))(nil), p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(area, n)
	}
}

// Dismiss clears the area's slot. Dismissing an empty slot is a no-op.
func (p *Presenter) Dismiss(area Area) {
	p.mu.Lock()
	if _, ok := p.slots[area]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.slots, area)
	if t := p.timers[area]; t != nil {
		t.Stop()
		delete(p.timers, area)
	}
	observers := append([](func(Area, Notification))(nil), p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(area, nil)
	}
}

// dismissIf clears the slot only if it still holds the notification the
// timer was armed for; a later overwrite keeps its own payload.
func (p *Presenter) dismissIf(area Area, seq uint64) {
	p.mu.Lock()
	if p.seq[area] != seq {
		p.mu.Unlock()
		return
	}
	if _, ok := p.slots[area]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.slots, area)
	delete(p.timers, area)
	observers := append([](func(Area, Notification))(nil), p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(area, nil)
	}
}

// Current returns the visible notification for the area, if any.
func (p *Presenter) Current(area Area) (Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.slots[area]
	return n, ok
}

// Reset clears every slot without invoking observers. Called on logout.
func (p *Presenter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for area, t := range p.timers {
		t.Stop()
		delete(p.timers, area)
	}
	p.slots = make(map[Area]Notification)
}

// SetToastTTL overrides the auto-dismiss duration. Tests use this to avoid
// waiting out the full toast.
func (p *Presenter) SetToastTTL(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toastTTL = d
}
