package playback

import (
	"context"
	"sync"

	"github.com/antoniostano/reelstudio/internal/audio"
)

type hubEntry struct {
	m       *Manager
	holders int
}

// Hub hands each identity its own Manager so one user's playback never stops another's.
// A manager lives only while it is playing or a call is using it; idle ones are dropped.
type Hub struct {
	mu        sync.Mutex
	managers  map[string]*hubEntry
	resources ResourceStore
	player    Player
	onEvent   func(owner string, ev Event)
}

func NewHub(resources ResourceStore, player Player) *Hub {
	return &Hub{
		managers:  make(map[string]*hubEntry),
		resources: resources,
		player:    player,
	}
}

// SetEventHook registers fn for transitions of every manager.
func (h *Hub) SetEventHook(fn func(owner string, ev Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

func (h *Hub) Play(ctx context.Context, owner string, handle audio.Handle, ref string) (string, error) {
	e := h.acquire(owner)
	defer h.release(owner, e)
	return e.m.Play(ctx, handle, ref)
}

func (h *Hub) Stop(owner string) bool {
	e := h.acquire(owner)
	defer h.release(owner, e)
	return e.m.Stop()
}

// StopIf stops owner's session only when it plays ref.
func (h *Hub) StopIf(owner, ref string) bool {
	e := h.acquire(owner)
	defer h.release(owner, e)
	return e.m.StopIf(ref)
}

// StopHandle stops owner's session only when it is bound to handle.
func (h *Hub) StopHandle(owner string, handle audio.Handle) bool {
	e := h.acquire(owner)
	defer h.release(owner, e)
	return e.m.StopHandle(handle)
}

func (h *Hub) Toggle(ctx context.Context, owner, ref string, resolve func(context.Context) (audio.Handle, error)) (string, bool, error) {
	e := h.acquire(owner)
	defer h.release(owner, e)
	return e.m.Toggle(ctx, ref, resolve)
}

// Current reports owner's session without creating a manager.
func (h *Hub) Current(owner string) (Session, bool) {
	h.mu.Lock()
	e, ok := h.managers[owner]
	h.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	return e.m.Current()
}

func (h *Hub) IsPlaying(owner, ref string) bool {
	h.mu.Lock()
	e, ok := h.managers[owner]
	h.mu.Unlock()
	return ok && e.m.IsPlaying(ref)
}

// Len is the number of retained managers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.managers)
}

// StopAll stops every session, releasing their resources. Used at shutdown.
func (h *Hub) StopAll() int {
	h.mu.Lock()
	owners := make([]string, 0, len(h.managers))
	entries := make([]*hubEntry, 0, len(h.managers))
	for owner, e := range h.managers {
		e.holders++
		owners = append(owners, owner)
		entries = append(entries, e)
	}
	h.mu.Unlock()

	stopped := 0
	for i, e := range entries {
		if e.m.Stop() {
			stopped++
		}
		h.release(owners[i], e)
	}
	return stopped
}

func (h *Hub) acquire(owner string) *hubEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.managers[owner]
	if !ok {
		m := NewManager(h.resources, h.player)
		m.SetEventHook(h.hookFor(owner))
		e = &hubEntry{m: m}
		h.managers[owner] = e
	}
	e.holders++
	return e
}

func (h *Hub) release(owner string, e *hubEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e.holders--
	h.evictLocked(owner, e)
}

// evictLocked drops e when nothing uses it and it is idle. Lock order is hub then
// manager; manager hooks run outside the manager lock.
func (h *Hub) evictLocked(owner string, e *hubEntry) {
	if e.holders > 0 || h.managers[owner] != e {
		return
	}
	if e.m.State() == StateIdle {
		delete(h.managers, owner)
	}
}

func (h *Hub) hookFor(owner string) func(Event) {
	return func(ev Event) {
		h.mu.Lock()
		fn := h.onEvent
		h.mu.Unlock()
		if fn != nil {
			fn(owner, ev)
		}
		if ev.Kind == EventEnded {
			h.mu.Lock()
			if e, ok := h.managers[owner]; ok {
				h.evictLocked(owner, e)
			}
			h.mu.Unlock()
		}
	}
}
