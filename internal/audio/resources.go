package audio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/reelstudio/internal/apperr"
)

// Handle addresses decoded audio held by a Resources registry. Handles are revocable:
// once released, dereferencing fails with a use-after-release error.
type Handle string

// Resource describes a live handle without exposing its bytes.
type Resource struct {
	Handle    Handle    `json:"handle"`
	Owner     string    `json:"-"`
	MIME      string    `json:"mime"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type resourceEntry struct {
	meta   Resource
	data   []byte
	pinned bool
}

// Resources is the registry behind playable handles. Every Allocate must be paired with
// exactly one effective Release; extra releases are no-ops. Unpinned handles that outlive
// the TTL are reclaimed by the janitor.
type Resources struct {
	mu        sync.Mutex
	items     map[Handle]*resourceEntry
	released  map[Handle]time.Time
	ttl       time.Duration
	onRelease func(Resource)
}

func NewResources(ttl time.Duration) *Resources {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Resources{
		items:    make(map[Handle]*resourceEntry),
		released: make(map[Handle]time.Time),
		ttl:      ttl,
	}
}

// SetReleaseHook registers fn to run after each effective release.
func (r *Resources) SetReleaseHook(fn func(Resource)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRelease = fn
}

// Allocate binds data to a fresh handle owned by owner.
func (r *Resources) Allocate(owner string, data []byte, mime string) Handle {
	if mime == "" {
		mime = SniffMIME(data)
	}
	h := Handle(uuid.NewString())
	e := &resourceEntry{
		meta: Resource{
			Handle:    h,
			Owner:     owner,
			MIME:      mime,
			Size:      len(data),
			CreatedAt: time.Now().UTC(),
		},
		data: data,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[h] = e
	return h
}

// Open dereferences h.
func (r *Resources) Open(h Handle) ([]byte, Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[h]
	if !ok {
		return nil, Resource{}, r.missingLocked(h)
	}
	return e.data, e.meta, nil
}

// Acquire dereferences h and pins it in one step so the janitor cannot reclaim it
// between the two.
func (r *Resources) Acquire(h Handle) ([]byte, Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[h]
	if !ok {
		return nil, Resource{}, r.missingLocked(h)
	}
	e.pinned = true
	return e.data, e.meta, nil
}

// Stat returns metadata for h.
func (r *Resources) Stat(h Handle) (Resource, error) {
	_, meta, err := r.Open(h)
	return meta, err
}

// Release invalidates h and reports whether this call did the release.
func (r *Resources) Release(h Handle) bool {
	r.mu.Lock()
	e, ok := r.items[h]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.items, h)
	r.released[h] = time.Now().UTC()
	e.data = nil
	hook := r.onRelease
	r.mu.Unlock()

	if hook != nil {
		hook(e.meta)
	}
	return true
}

// Pin exempts h from TTL reclamation while it is bound to playback.
func (r *Resources) Pin(h Handle) error {
	return r.setPinned(h, true)
}

func (r *Resources) Unpin(h Handle) error {
	return r.setPinned(h, false)
}

func (r *Resources) setPinned(h Handle, pinned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[h]
	if !ok {
		return r.missingLocked(h)
	}
	e.pinned = pinned
	return nil
}

// Live returns the number of unreleased handles.
func (r *Resources) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Resources) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.reclaimExpired()
			}
		}
	}()
}

func (r *Resources) reclaimExpired() {
	now := time.Now().UTC()
	var expired []Handle

	r.mu.Lock()
	for h, e := range r.items {
		if e.pinned || now.Sub(e.meta.CreatedAt) < r.ttl {
			continue
		}
		expired = append(expired, h)
	}
	for h, at := range r.released {
		if now.Sub(at) >= r.ttl {
			delete(r.released, h)
		}
	}
	r.mu.Unlock()

	for _, h := range expired {
		r.Release(h)
	}
}

func (r *Resources) missingLocked(h Handle) error {
	if _, ok := r.released[h]; ok {
		return apperr.UseAfterRelease(string(h))
	}
	return apperr.NotFound("resource", string(h))
}
