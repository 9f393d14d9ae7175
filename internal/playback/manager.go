package playback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/audio"
)

type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
)

// EventKind names a transition of the manager.
type EventKind string

const (
	EventStarted    EventKind = "started"
	EventStopped    EventKind = "stopped"
	EventEnded      EventKind = "ended"
	EventSuperseded EventKind = "superseded"
	EventFailed     EventKind = "failed"
)

// Session is the binding between a resource handle and the "now playing" marker. Ref
// names the artifact (or ad hoc preview) the audio belongs to.
type Session struct {
	ID        string       `json:"session_id"`
	Ref       string       `json:"ref"`
	Handle    audio.Handle `json:"handle"`
	StartedAt time.Time    `json:"started_at"`
}

type Event struct {
	Kind    EventKind
	Session Session
}

// ResourceStore is the subset of the resource registry the manager needs.
type ResourceStore interface {
	// Acquire opens h and pins it against expiry.
	Acquire(h audio.Handle) ([]byte, audio.Resource, error)
	Release(h audio.Handle) bool
	Unpin(h audio.Handle) error
}

type binding struct {
	session Session
	media   Media
	gen     uint64
}

// Manager owns at most one playing session. All transitions are serialized; a new Play
// completes the stop-and-release of the previous session before binding its resource.
type Manager struct {
	mu        sync.Mutex
	resources ResourceStore
	player    Player
	current   *binding
	gen       uint64
	onEvent   func(Event)
}

func NewManager(resources ResourceStore, player Player) *Manager {
	if player == nil {
		player = ClockPlayer{}
	}
	return &Manager{resources: resources, player: player}
}

// SetEventHook registers fn to receive every transition. fn runs outside the lock.
func (m *Manager) SetEventHook(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

// Play binds handle and starts it, stopping any current session first.
func (m *Manager) Play(ctx context.Context, handle audio.Handle, ref string) (string, error) {
	m.mu.Lock()
	var events []Event
	id, err := m.playLocked(ctx, handle, ref, &events)
	hook := m.onEvent
	m.mu.Unlock()

	emit(hook, events)
	return id, err
}

// Stop ends the current session, if any. It reports whether a session was stopped.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	var events []Event
	stopped := m.stopLocked(EventStopped, &events)
	hook := m.onEvent
	m.mu.Unlock()

	emit(hook, events)
	return stopped
}

// StopIf stops the current session only when it plays ref. The check and the stop
// happen under one lock, so a session started concurrently is never stopped by mistake.
func (m *Manager) StopIf(ref string) bool {
	return m.stopMatching(func(s Session) bool { return s.Ref == ref })
}

// StopHandle stops the current session only when it is bound to h.
func (m *Manager) StopHandle(h audio.Handle) bool {
	return m.stopMatching(func(s Session) bool { return s.Handle == h })
}

func (m *Manager) stopMatching(match func(Session) bool) bool {
	m.mu.Lock()
	var events []Event
	stopped := false
	if m.current != nil && match(m.current.session) {
		stopped = m.stopLocked(EventStopped, &events)
	}
	hook := m.onEvent
	m.mu.Unlock()

	emit(hook, events)
	return stopped
}

// Toggle stops playback when ref is the one playing. Otherwise it resolves a handle and
// plays it; resolve is only called on that path, so nothing is allocated for a stop. The
// returned session id is empty when the call stopped playback.
func (m *Manager) Toggle(ctx context.Context, ref string, resolve func(context.Context) (audio.Handle, error)) (string, bool, error) {
	m.mu.Lock()
	var events []Event
	if m.current != nil && m.current.session.Ref == ref {
		m.stopLocked(EventStopped, &events)
		hook := m.onEvent
		m.mu.Unlock()
		emit(hook, events)
		return "", false, nil
	}

	var id string
	handle, err := resolve(ctx)
	if err == nil {
		id, err = m.playLocked(ctx, handle, ref, &events)
	}
	hook := m.onEvent
	m.mu.Unlock()

	emit(hook, events)
	return id, err == nil, err
}

func (m *Manager) IsPlaying(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.session.Ref == ref
}

func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return m.current.session, true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return StateIdle
	}
	return StatePlaying
}

func (m *Manager) playLocked(ctx context.Context, handle audio.Handle, ref string, events *[]Event) (string, error) {
	// The bound handle is owned by the session; replaying it would release it first.
	if m.current != nil && m.current.session.Handle == handle {
		return m.current.session.ID, nil
	}
	m.stopLocked(EventSuperseded, events)

	data, res, err := m.resources.Acquire(handle)
	if err != nil {
		return "", err
	}
	if ref == "" {
		ref = string(handle)
	}
	session := Session{
		ID:        uuid.NewString(),
		Ref:       ref,
		Handle:    handle,
		StartedAt: time.Now().UTC(),
	}

	media, err := m.player.Start(ctx, data, res.MIME)
	if err != nil {
		_ = m.resources.Unpin(handle)
		m.resources.Release(handle)
		*events = append(*events, Event{Kind: EventFailed, Session: session})
		return "", apperr.Playback("media could not start", err)
	}

	m.gen++
	b := &binding{session: session, media: media, gen: m.gen}
	m.current = b
	go m.watch(b)

	*events = append(*events, Event{Kind: EventStarted, Session: session})
	return session.ID, nil
}

// stopLocked runs the full stop sequence: pause media, release the resource, clear the
// marker. It is a no-op when idle.
func (m *Manager) stopLocked(kind EventKind, events *[]Event) bool {
	b := m.current
	if b == nil {
		return false
	}
	m.current = nil
	b.media.Pause()
	_ = m.resources.Unpin(b.session.Handle)
	m.resources.Release(b.session.Handle)
	*events = append(*events, Event{Kind: kind, Session: b.session})
	return true
}

// watch waits for b's media to finish. A binding that was superseded or stopped in the
// meantime is abandoned untouched.
func (m *Manager) watch(b *binding) {
	<-b.media.Done()

	m.mu.Lock()
	if m.current == nil || m.current.gen != b.gen {
		m.mu.Unlock()
		return
	}
	var events []Event
	m.stopLocked(EventEnded, &events)
	hook := m.onEvent
	m.mu.Unlock()

	emit(hook, events)
}

func emit(hook func(Event), events []Event) {
	if hook == nil {
		return
	}
	for _, ev := range events {
		hook(ev)
	}
}
