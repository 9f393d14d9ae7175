package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is the notice severity shown to the user.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// EventKind tags what a subscriber is being told about.
type EventKind string

const (
	EventNotice       EventKind = "notice"
	EventStatsChanged EventKind = "stats_changed"
	EventPlayback     EventKind = "playback"
)

// Event is delivered to live subscribers. Notice is set for EventNotice; Data carries the
// payload of the other kinds.
type Event struct {
	Kind   EventKind
	Notice *Notice
	Unread int
	Data   any
}

type mailbox struct {
	notices []Notice // oldest first
	subs    map[int]chan Event
}

// Center keeps a bounded notice list per user and fans events out to subscribers.
type Center struct {
	mu        sync.Mutex
	limit     int
	boxes     map[string]*mailbox
	nextSub   int
	onPublish func(Notice)
	now       func() time.Time
}

func NewCenter(limit int) *Center {
	if limit <= 0 {
		limit = 50
	}
	return &Center{
		limit: limit,
		boxes: make(map[string]*mailbox),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetPublishHook registers a callback invoked for every published notice.
func (c *Center) SetPublishHook(fn func(Notice)) {
	c.mu.Lock()
	c.onPublish = fn
	c.mu.Unlock()
}

// Publish records a notice for userID and delivers it to subscribers. Notices for an
// empty userID are returned but not stored.
func (c *Center) Publish(userID, title, message string, typ Type) Notice {
	n := Notice{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Type:      typ,
		Timestamp: c.now(),
	}

	c.mu.Lock()
	hook := c.onPublish
	if userID != "" {
		box := c.boxLocked(userID)
		box.notices = append(box.notices, n)
		if over := len(box.notices) - c.limit; over > 0 {
			box.notices = append([]Notice(nil), box.notices[over:]...)
		}
		delivered := n
		c.fanoutLocked(box, Event{Kind: EventNotice, Notice: &delivered, Unread: unread(box.notices)})
	}
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return n
}

// Signal delivers a non-notice event to userID's subscribers without storing it.
func (c *Center) Signal(userID string, kind EventKind, data any) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	box, ok := c.boxes[userID]
	if !ok {
		return
	}
	c.fanoutLocked(box, Event{Kind: kind, Data: data})
}

// List returns userID's notices, newest first.
func (c *Center) List(userID string) []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	box, ok := c.boxes[userID]
	if !ok {
		return []Notice{}
	}
	out := make([]Notice, 0, len(box.notices))
	for i := len(box.notices) - 1; i >= 0; i-- {
		out = append(out, box.notices[i])
	}
	return out
}

func (c *Center) UnreadCount(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	box, ok := c.boxes[userID]
	if !ok {
		return 0
	}
	return unread(box.notices)
}

// MarkRead marks one notice read, or all of them when id is empty. It returns how many
// notices changed state.
func (c *Center) MarkRead(userID, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	box, ok := c.boxes[userID]
	if !ok {
		return 0
	}
	changed := 0
	for i := range box.notices {
		if box.notices[i].Read || (id != "" && box.notices[i].ID != id) {
			continue
		}
		box.notices[i].Read = true
		changed++
	}
	return changed
}

func (c *Center) MarkAllRead(userID string) int {
	return c.MarkRead(userID, "")
}

// Remove deletes one notice and reports whether it existed.
func (c *Center) Remove(userID, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	box, ok := c.boxes[userID]
	if !ok || id == "" {
		return false
	}
	for i := range box.notices {
		if box.notices[i].ID != id {
			continue
		}
		box.notices = append(box.notices[:i], box.notices[i+1:]...)
		return true
	}
	return false
}

func (c *Center) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if box, ok := c.boxes[userID]; ok {
		box.notices = nil
	}
}

// Subscribe returns a channel of live events for userID and a cancel func. Events are
// dropped for a subscriber whose buffer is full.
func (c *Center) Subscribe(userID string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	c.mu.Lock()
	box := c.boxLocked(userID)
	c.nextSub++
	id := c.nextSub
	box.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(box.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Center) boxLocked(userID string) *mailbox {
	box, ok := c.boxes[userID]
	if !ok {
		box = &mailbox{subs: make(map[int]chan Event)}
		c.boxes[userID] = box
	}
	return box
}

func (c *Center) fanoutLocked(box *mailbox, ev Event) {
	for _, ch := range box.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func unread(ns []Notice) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}
