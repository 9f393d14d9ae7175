package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/reelstudio/internal/apperr"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/records"
)

// Library is a user's saved content, newest first.
type Library struct {
	Scripts    []records.ScriptArtifact `json:"scripts"`
	VoiceClips []records.VoiceArtifact  `json:"voice_clips"`
}

// Export is a downloadable audio file.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RequestDelete removes one of the user's artifacts. Deleting the clip that is playing
// stops it first.
func (s *Studio) RequestDelete(ctx context.Context, userID, artifactID string, kind ArtifactKind) error {
	if userID == "" {
		return apperr.Unauthenticated()
	}
	var err error
	switch kind {
	case KindScript:
		err = s.bridge.DeleteScript(ctx, userID, artifactID)
	case KindVoice:
		s.players.StopIf(userID, artifactID)
		err = s.bridge.DeleteVoiceClip(ctx, userID, artifactID)
	default:
		return apperr.Validation("unknown artifact kind %q", kind)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindPersistence) {
			s.metrics.ObservePersistenceFailure("delete_" + string(kind))
		}
		s.announceFailure(userID, "Delete failed", err)
		return err
	}
	s.notifier.Signal(userID, notify.EventStatsChanged, string(kind))
	return nil
}

// RequestStats computes the user's usage on demand. A failed aggregate is an error,
// never a zero.
func (s *Studio) RequestStats(ctx context.Context, userID string) (records.UsageStatistics, error) {
	if userID == "" {
		return records.UsageStatistics{}, apperr.Unauthenticated()
	}
	stats, err := s.bridge.LoadStatistics(ctx, userID)
	if err != nil {
		s.metrics.ObservePersistenceFailure("load_statistics")
		s.announceFailure(userID, "Statistics unavailable", err)
		return records.UsageStatistics{}, err
	}
	return stats, nil
}

// Library lists the user's scripts and voice clips. An empty kind lists both.
func (s *Studio) Library(ctx context.Context, userID string, kind ArtifactKind, f records.ListFilter) (Library, error) {
	if userID == "" {
		return Library{}, apperr.Unauthenticated()
	}
	lib := Library{Scripts: []records.ScriptArtifact{}, VoiceClips: []records.VoiceArtifact{}}
	var err error
	if kind == "" || kind == KindScript {
		if lib.Scripts, err = s.bridge.ListScripts(ctx, userID, f); err != nil {
			return Library{}, err
		}
	}
	if kind == "" || kind == KindVoice {
		if lib.VoiceClips, err = s.bridge.ListVoiceClips(ctx, userID, f); err != nil {
			return Library{}, err
		}
	}
	return lib, nil
}

// ExportAudio returns a stored clip's audio as a download.
func (s *Studio) ExportAudio(ctx context.Context, userID, artifactID string) (Export, error) {
	if userID == "" {
		return Export{}, apperr.Unauthenticated()
	}
	data, contentType, clip, err := s.bridge.GetAudio(ctx, userID, artifactID)
	if err != nil {
		return Export{}, err
	}
	s.notifier.Publish(userID, "Downloaded!", "Audio file saved to your device.", notify.TypeSuccess)
	return Export{
		Filename:    exportFilename(clip, contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func exportFilename(clip records.VoiceArtifact, contentType string) string {
	ext := "mp3"
	if strings.Contains(contentType, "wav") {
		ext = "wav"
	}
	return fmt.Sprintf("voiceover_%s.%s", clip.ID, ext)
}
