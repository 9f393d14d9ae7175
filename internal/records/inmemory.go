package records

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a simple in-process record store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	scripts map[string]map[string]ScriptArtifact
	clips   map[string]map[string]VoiceArtifact
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		scripts: make(map[string]map[string]ScriptArtifact),
		clips:   make(map[string]map[string]VoiceArtifact),
	}
}

func (s *InMemoryStore) InsertScript(_ context.Context, a ScriptArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scripts[a.UserID] == nil {
		s.scripts[a.UserID] = make(map[string]ScriptArtifact)
	}
	s.scripts[a.UserID][a.ID] = a
	return nil
}

func (s *InMemoryStore) InsertVoiceClip(_ context.Context, a VoiceArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clips[a.UserID] == nil {
		s.clips[a.UserID] = make(map[string]VoiceArtifact)
	}
	s.clips[a.UserID][a.ID] = a
	return nil
}

func (s *InMemoryStore) GetScript(_ context.Context, userID, id string) (ScriptArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.scripts[userID][id]
	if !ok {
		return ScriptArtifact{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) GetVoiceClip(_ context.Context, userID, id string) (VoiceArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.clips[userID][id]
	if !ok {
		return VoiceArtifact{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) ListScripts(_ context.Context, userID string, f ListFilter) ([]ScriptArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]ScriptArtifact, 0, len(s.scripts[userID]))
	for _, a := range s.scripts[userID] {
		if q != "" && !containsFold(q, a.Title, a.Content, a.Niche) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt.UnixNano(), out[j].CreatedAt.UnixNano(), out[i].ID, out[j].ID) })
	return truncate(out, normalizeLimit(f.Limit)), nil
}

func (s *InMemoryStore) ListVoiceClips(_ context.Context, userID string, f ListFilter) ([]VoiceArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]VoiceArtifact, 0, len(s.clips[userID]))
	for _, a := range s.clips[userID] {
		if q != "" && !containsFold(q, a.Title, a.VoiceName) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt.UnixNano(), out[j].CreatedAt.UnixNano(), out[i].ID, out[j].ID) })
	return truncate(out, normalizeLimit(f.Limit)), nil
}

func (s *InMemoryStore) DeleteScript(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scripts[userID][id]; !ok {
		return ErrNotFound
	}
	delete(s.scripts[userID], id)
	return nil
}

func (s *InMemoryStore) DeleteVoiceClip(_ context.Context, userID, id string) (VoiceArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.clips[userID][id]
	if !ok {
		return VoiceArtifact{}, ErrNotFound
	}
	delete(s.clips[userID], id)
	return a, nil
}

func (s *InMemoryStore) CountScripts(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.scripts[userID])), nil
}

func (s *InMemoryStore) CountVoiceClips(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.clips[userID])), nil
}

func (s *InMemoryStore) SumVoiceBytes(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, a := range s.clips[userID] {
		total += a.FileSize
	}
	return total, nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ULIDs sort by time, so the id breaks ties between same-instant records.
func newerFirst(ti, tj int64, idi, idj string) bool {
	if ti != tj {
		return ti > tj
	}
	return idi > idj
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
