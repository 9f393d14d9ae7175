package studio

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/audio"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/playback"
	"github.com/antoniostano/reelstudio/internal/protocol"
)

// PlaybackStatus is what a user's player is doing right now.
type PlaybackStatus struct {
	Playing bool              `json:"playing"`
	Session *playback.Session `json:"session,omitempty"`
}

// RequestPlay loads a stored voice clip into a fresh resource and plays it, superseding
// whatever the user was playing.
func (s *Studio) RequestPlay(ctx context.Context, userID, artifactID string) (PlaybackStatus, error) {
	if userID == "" {
		return PlaybackStatus{}, apperr.Unauthenticated()
	}
	artifactID = strings.TrimSpace(artifactID)
	handle, err := s.loadClip(ctx, userID, artifactID)
	if err != nil {
		return PlaybackStatus{}, err
	}
	if _, err := s.players.Play(ctx, userID, handle, artifactID); err != nil {
		s.announceFailure(userID, "Playback failed", err)
		return PlaybackStatus{}, err
	}
	return s.PlaybackState(userID), nil
}

// RequestPlayResource plays an already allocated resource such as a fresh preview. The
// player takes ownership: the handle is released when playback stops.
func (s *Studio) RequestPlayResource(ctx context.Context, userID string, handle audio.Handle) (PlaybackStatus, error) {
	if userID == "" {
		return PlaybackStatus{}, apperr.Unauthenticated()
	}
	if _, err := s.ownedResource(userID, handle); err != nil {
		return PlaybackStatus{}, err
	}
	if _, err := s.players.Play(ctx, userID, handle, string(handle)); err != nil {
		s.announceFailure(userID, "Playback failed", err)
		return PlaybackStatus{}, err
	}
	return s.PlaybackState(userID), nil
}

// RequestStop stops the user's playback. Stopping an idle player is a no-op.
func (s *Studio) RequestStop(userID string) (PlaybackStatus, error) {
	if userID == "" {
		return PlaybackStatus{}, apperr.Unauthenticated()
	}
	s.players.Stop(userID)
	return PlaybackStatus{}, nil
}

// RequestToggle stops ref when it is playing and starts it otherwise. ref is a stored
// voice clip id or a live resource handle owned by the user.
func (s *Studio) RequestToggle(ctx context.Context, userID, ref string) (PlaybackStatus, error) {
	if userID == "" {
		return PlaybackStatus{}, apperr.Unauthenticated()
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PlaybackStatus{}, apperr.Validation("artifact id or handle is required")
	}
	_, playing, err := s.players.Toggle(ctx, userID, ref, func(ctx context.Context) (audio.Handle, error) {
		if res, err := s.ownedResource(userID, audio.Handle(ref)); err == nil {
			return res.Handle, nil
		}
		return s.loadClip(ctx, userID, ref)
	})
	if err != nil {
		s.announceFailure(userID, "Playback failed", err)
		return PlaybackStatus{}, err
	}
	if !playing {
		return PlaybackStatus{}, nil
	}
	return s.PlaybackState(userID), nil
}

func (s *Studio) PlaybackState(userID string) PlaybackStatus {
	if userID == "" {
		return PlaybackStatus{}
	}
	session, ok := s.players.Current(userID)
	if !ok {
		return PlaybackStatus{}
	}
	return PlaybackStatus{Playing: true, Session: &session}
}

// OpenResource dereferences a handle owned by userID for download.
func (s *Studio) OpenResource(userID string, handle audio.Handle) ([]byte, audio.Resource, error) {
	if _, err := s.ownedResource(userID, handle); err != nil {
		return nil, audio.Resource{}, err
	}
	return s.resources.Open(handle)
}

// ReleaseResource discards a handle the caller no longer needs. A handle bound to the
// user's playback is released by stopping it so the player never holds a dead handle.
func (s *Studio) ReleaseResource(userID string, handle audio.Handle) error {
	if _, err := s.ownedResource(userID, handle); err != nil {
		if apperr.Is(err, apperr.KindUseAfterRelease) {
			return nil
		}
		return err
	}
	if userID != "" && s.players.StopHandle(userID, handle) {
		return nil
	}
	s.resources.Release(handle)
	return nil
}

// ReleaseAll stops every player at shutdown.
func (s *Studio) ReleaseAll() int {
	return s.players.StopAll()
}

func (s *Studio) loadClip(ctx context.Context, userID, artifactID string) (audio.Handle, error) {
	data, contentType, _, err := s.bridge.GetAudio(ctx, userID, artifactID)
	if err != nil {
		return "", err
	}
	h := s.resources.Allocate(userID, data, contentType)
	s.syncLiveResources()
	return h, nil
}

// ownedResource hides handles of other users behind not-found.
func (s *Studio) ownedResource(userID string, handle audio.Handle) (audio.Resource, error) {
	res, err := s.resources.Stat(handle)
	if err != nil {
		return audio.Resource{}, err
	}
	if res.Owner != userID {
		return audio.Resource{}, apperr.NotFound("resource", string(handle))
	}
	return res, nil
}

func (s *Studio) onPlayback(owner string, ev playback.Event) {
	s.metrics.ObservePlayback(string(ev.Kind))
	s.syncLiveResources()

	state := protocol.PlaybackState{
		Type:      protocol.TypePlaybackState,
		SessionID: ev.Session.ID,
		Ref:       ev.Session.Ref,
		Reason:    string(ev.Kind),
		Playing:   ev.Kind == playback.EventStarted,
	}
	s.notifier.Signal(owner, notify.EventPlayback, state)
	if ev.Kind == playback.EventFailed {
		s.logger.Warn("playback failed to start", zap.String("user_id", owner), zap.String("ref", ev.Session.Ref))
	}
}
